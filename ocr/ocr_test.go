package ocr

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/poiesic/vectorize/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcEngine struct {
	name  string
	fn    func(image []byte) (string, error)
	calls atomic.Int32
}

func (f *funcEngine) Name() string { return f.name }

func (f *funcEngine) ExtractText(_ context.Context, image []byte) (string, error) {
	f.calls.Add(1)
	return f.fn(image)
}

func image(id string, page int, data string) core.Artifact {
	return core.Artifact{ID: id, Type: core.ArtifactImage, Data: []byte(data), SourceName: "doc.pdf", PageNumber: page, OrderIndex: 1}
}

func text(id string, page int, body string) core.Artifact {
	return core.Artifact{ID: id, Type: core.ArtifactText, Text: body, SourceName: "doc.pdf", PageNumber: page}
}

func TestRecognize(t *testing.T) {
	ctx := context.Background()
	engine := &funcEngine{name: "fake", fn: func(image []byte) (string, error) {
		switch string(image) {
		case "blank":
			return "  \n", nil
		case "broken":
			return "", errors.New("decoder crashed")
		}
		return " Hello \n", nil
	}}

	assert.Equal(t, Result{ArtifactID: "a", Status: StatusRecovered, Text: "Hello"}, Recognize(ctx, engine, image("a", 1, "png")))
	assert.Equal(t, StatusEmpty, Recognize(ctx, engine, image("b", 1, "blank")).Status)
	assert.Equal(t, StatusEmpty, Recognize(ctx, engine, image("c", 1, "")).Status)

	failed := Recognize(ctx, engine, image("d", 1, "broken"))
	assert.Equal(t, StatusFailed, failed.Status)
	assert.EqualError(t, failed.Err, "decoder crashed")
	assert.Equal(t, "failed", failed.Status.String())
}

func TestRegistry(t *testing.T) {
	a := &funcEngine{name: "Tesseract"}
	b := &funcEngine{name: "other"}

	r, err := NewRegistry(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "tesseract"}, r.Names())

	got, err := r.Get("")
	require.NoError(t, err)
	assert.Same(t, a, got)

	got, err = r.Get("OTHER")
	require.NoError(t, err)
	assert.Same(t, b, got)

	require.NoError(t, r.SetDefault("other"))
	got, _ = r.Get("")
	assert.Same(t, b, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownEngine)
	assert.ErrorIs(t, r.SetDefault("missing"), ErrUnknownEngine)

	_, err = NewRegistry(a, &funcEngine{name: "tesseract"})
	assert.ErrorIs(t, err, ErrDuplicateEngine)
	_, err = NewRegistry(nil)
	assert.ErrorIs(t, err, ErrEngineRequired)
}

type recordingRunner struct {
	stdin []byte
	name  string
	args  []string
	out   string
	err   error
}

func (r *recordingRunner) Run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	r.stdin, r.name, r.args = stdin, name, args
	return []byte(r.out), r.err
}

func TestTesseractCommand(t *testing.T) {
	runner := &recordingRunner{out: "recognized"}
	engine := NewTesseract("eng", WithRunner(runner), WithBinary("/usr/bin/tesseract"))
	assert.Equal(t, "tesseract", engine.Name())

	got, err := engine.ExtractText(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "recognized", got)
	assert.Equal(t, "/usr/bin/tesseract", runner.name)
	assert.Equal(t, []string{"stdin", "stdout", "-l", "eng"}, runner.args)
	assert.Equal(t, []byte("img"), runner.stdin)

	runner.err = errors.New("exit status 1")
	_, err = engine.ExtractText(context.Background(), []byte("img"))
	assert.Error(t, err)
}

func TestEnricher_AddsDerivedArtifacts(t *testing.T) {
	engine := &funcEngine{name: "fake", fn: func(image []byte) (string, error) {
		return "text in " + string(image), nil
	}}
	e, err := NewEnricher(engine, WithWorkers(4))
	require.NoError(t, err)
	defer e.Release()

	in := []core.Artifact{text("t1", 1, "native"), image("i1", 1, "one"), image("i2", 2, "two")}
	out, results, err := e.Enrich(context.Background(), in)
	require.NoError(t, err)

	ids := make([]string, len(out))
	for i, a := range out {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"t1", "i1", "i1:ocr", "i2", "i2:ocr"}, ids)
	assert.Equal(t, core.ArtifactText, out[2].Type)
	assert.Equal(t, "text in one", out[2].Text)
	assert.Equal(t, 1, out[2].PageNumber)
	assert.Equal(t, "text in one", out[1].Text)
	assert.Len(t, results, 2)
	assert.Equal(t, int32(2), engine.calls.Load())

	// input is not modified
	assert.Empty(t, in[1].Text)
}

func TestEnricher_FailureIsolation(t *testing.T) {
	engine := &funcEngine{name: "fake", fn: func(image []byte) (string, error) {
		if strings.HasPrefix(string(image), "bad") {
			return "", errors.New("simulated OCR failure")
		}
		return "caption", nil
	}}
	e, err := NewEnricher(engine)
	require.NoError(t, err)
	defer e.Release()

	in := []core.Artifact{text("t1", 1, "native"), image("i1", 1, "bad"), image("i2", 1, "good")}
	out, results, err := e.Enrich(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, out, 4)
	assert.Equal(t, "t1", out[0].ID)
	assert.Equal(t, "i1", out[1].ID)
	assert.Equal(t, "i2:ocr", out[3].ID)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, StatusRecovered, results[1].Status)
}

func TestEnricher_Cancelled(t *testing.T) {
	engine := &funcEngine{name: "fake", fn: func([]byte) (string, error) { return "x", nil }}
	e, err := NewEnricher(engine)
	require.NoError(t, err)
	defer e.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = e.Enrich(ctx, []core.Artifact{image("i", 1, "x")})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewEnricher(nil)
	assert.ErrorIs(t, err, ErrEngineRequired)
}
