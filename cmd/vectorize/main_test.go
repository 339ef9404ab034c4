package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestIngestCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "ingest")

	var foundRetries, foundDelay bool
	for _, flag := range cmd.Flags {
		switch f := flag.(type) {
		case *cli.IntFlag:
			if f.Name == "max-retries" {
				foundRetries = true
				assert.Equal(t, 3, f.Value)
			}
		case *cli.DurationFlag:
			if f.Name == "retry-delay" {
				foundDelay = true
				assert.Equal(t, "1s", f.Value.String())
			}
		}
	}
	assert.True(t, foundRetries, "max-retries flag should exist")
	assert.True(t, foundDelay, "retry-delay flag should exist")
}

func TestSearchCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "search")
	require.Len(t, cmd.Flags, 1)
	f, ok := cmd.Flags[0].(*cli.IntFlag)
	require.True(t, ok)
	assert.Equal(t, "limit", f.Name)
	assert.Equal(t, []string{"k"}, f.Aliases)
	assert.Equal(t, 5, f.Value)
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				app := &cli.App{
					Name:   "test",
					Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
					Before: setupLogger,
					Action: func(c *cli.Context) error { return nil },
				}
				require.NoError(t, app.Run([]string{"test", "--log-level", level}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp().Run([]string{"vectorize", "--log-level", "verbose", "status"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
		assert.Contains(t, err.Error(), "verbose")
	})
}

type harness struct {
	t      *testing.T
	config string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, key := range []string{"EMBEDDING_PROVIDER", "DATABASE_URL", "QDRANT_URL", "OCR_PROVIDER", "VECTORIZE_CONFIG"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	cfg := "embedding:\n" +
		"  provider: mock\n" +
		"  dimension: 32\n" +
		"store:\n" +
		"  type: badger\n" +
		"  path: " + filepath.Join(dir, "vectors") + "\n" +
		"status:\n" +
		"  type: sqlite\n" +
		"  path: " + filepath.Join(dir, "status.db") + "\n"
	path := filepath.Join(dir, "vectorize.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return &harness{t: t, config: path}
}

func (h *harness) run(args ...string) (string, error) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"vectorize", "--log-level", "error", "--config", h.config}, args...))
	return out.String(), err
}

func (h *harness) writeFile(name, content string) string {
	path := filepath.Join(h.t.TempDir(), name)
	require.NoError(h.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEndToEnd(t *testing.T) {
	h := newHarness(t)
	text := "Quarterly revenue grew in every region."
	doc := h.writeFile("notes.txt", text)

	out, err := h.run("ingest", "--id", "doc-1", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "ingested")
	assert.Contains(t, out, "doc-1")

	out, err = h.run("search", "-k", "3", text)
	require.NoError(t, err)
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, ":chunk:0")
	assert.Contains(t, out, "[verbatim]")
	assert.Contains(t, out, "Quarterly revenue")

	out, err = h.run("status", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "doc-1\tcompleted\tfile\tnotes.txt")

	out, err = h.run("ingest", "--text", "Inline notes about margins.")
	require.NoError(t, err)
	assert.Contains(t, out, "ingested")

	out, err = h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "doc-1\tcompleted")
	assert.Contains(t, out, "text\tinline")

	_, err = h.run("delete", "doc-1")
	require.NoError(t, err)
	out, err = h.run("search", text)
	require.NoError(t, err)
	assert.NotContains(t, out, "doc-1")

	out, err = h.run("reingest", "doc-1", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "reingested doc-1")

	_, err = h.run("reset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	_, err = h.run("reset", "--yes")
	require.NoError(t, err)
	out, err = h.run("search", text)
	require.NoError(t, err)
	assert.Contains(t, out, "no results")
}

func TestIngestFailures(t *testing.T) {
	h := newHarness(t)

	t.Run("no input", func(t *testing.T) {
		_, err := h.run("ingest")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nothing to ingest")
	})

	t.Run("id with several files", func(t *testing.T) {
		_, err := h.run("ingest", "--id", "x", h.writeFile("a.txt", "a"), h.writeFile("b.txt", "b"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "single input")
	})

	t.Run("invalid max retries", func(t *testing.T) {
		_, err := h.run("ingest", "--max-retries", "0", "--text", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max-retries")
	})

	t.Run("unsupported file is reported and marked failed", func(t *testing.T) {
		good := h.writeFile("good.txt", "A readable document.")
		bad := h.writeFile("scan.bin", "%PDF-1.7")
		out, err := h.run("ingest", "--retry-delay", "1ms", "--content-type", "application/pdf", "--id", "bad-1", bad)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 1 files failed")
		assert.NotContains(t, out, "ingested")

		out, err = h.run("status", "bad-1")
		require.NoError(t, err)
		assert.Contains(t, out, "bad-1\tfailed")

		out, err = h.run("ingest", good)
		require.NoError(t, err)
		assert.Contains(t, out, "good.txt")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := h.run("ingest", filepath.Join(t.TempDir(), "absent.txt"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "absent.txt")
	})
}

func TestArgumentValidation(t *testing.T) {
	h := newHarness(t)
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"search without query", []string{"search"}, "requires a query"},
		{"delete without id", []string{"delete"}, "requires <ingestion-id>"},
		{"reingest without file", []string{"reingest", "doc-1"}, "requires <ingestion-id> <file>"},
		{"status with two ids", []string{"status", "a", "b"}, "at most one"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.run(tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("unknown status id", func(t *testing.T) {
		_, err := h.run("status", "never-ingested")
		require.Error(t, err)
	})

	t.Run("missing config file", func(t *testing.T) {
		app := newApp()
		app.Writer = io.Discard
		err := app.Run([]string{"vectorize", "--config", filepath.Join(t.TempDir(), "none.yaml"), "status"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load config")
	})
}

func TestMigrateCommand(t *testing.T) {
	for _, key := range []string{"EMBEDDING_PROVIDER", "DATABASE_URL", "QDRANT_URL", "OCR_PROVIDER", "VECTORIZE_CONFIG"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	write := func(name, cfg string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
		return path
	}
	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		app := newApp()
		app.Writer = &out
		err := app.Run(append([]string{"vectorize", "--log-level", "error"}, args...))
		return out.String(), err
	}

	t.Run("memory store needs nothing", func(t *testing.T) {
		out, err := run("migrate")
		require.NoError(t, err)
		assert.Contains(t, out, "needs no migration")
	})

	t.Run("pgvector prints DDL", func(t *testing.T) {
		cfg := write("pg.yaml", "embedding:\n  provider: mock\n  dimension: 384\n"+
			"store:\n  type: pgvector\n  pgvector:\n    dsn: postgres://localhost/vectors\n")
		out, err := run("--config", cfg, "migrate")
		require.NoError(t, err)
		assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS")
		assert.Contains(t, out, "vector(384)")
	})

	t.Run("qdrant describes collection", func(t *testing.T) {
		cfg := write("qdrant.yaml", "embedding:\n  provider: mock\n  dimension: 64\n"+
			"store:\n  type: qdrant\n  qdrant:\n    host: localhost\n")
		out, err := run("--config", cfg, "migrate")
		require.NoError(t, err)
		assert.Contains(t, out, `collection "vectors": 64 dimensions`)
	})
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n b\t\tc", 10))
	assert.Equal(t, "abc...", snippet("abcdef", 3))
}

func TestMain(m *testing.M) {
	color.NoColor = true
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}
