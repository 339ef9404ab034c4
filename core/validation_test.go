package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validText() *Artifact {
	return &Artifact{
		ID:         "a1",
		Type:       ArtifactText,
		Text:       "hello",
		SourceName: "doc.txt",
		PageNumber: 1,
	}
}

func TestValidateArtifact(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Artifact)
		wantErr bool
		wantID  string
	}{
		{name: "valid text artifact", mutate: func(a *Artifact) {}},
		{name: "blank text is allowed", mutate: func(a *Artifact) { a.Text = "" }},
		{
			name:    "empty id",
			mutate:  func(a *Artifact) { a.ID = "" },
			wantErr: true,
		},
		{
			name:    "unknown type",
			mutate:  func(a *Artifact) { a.Type = "table" },
			wantErr: true,
			wantID:  "a1",
		},
		{
			name:    "missing source",
			mutate:  func(a *Artifact) { a.SourceName = "" },
			wantErr: true,
			wantID:  "a1",
		},
		{
			name:    "page zero",
			mutate:  func(a *Artifact) { a.PageNumber = 0 },
			wantErr: true,
			wantID:  "a1",
		},
		{
			name:    "negative order",
			mutate:  func(a *Artifact) { a.OrderIndex = -1 },
			wantErr: true,
			wantID:  "a1",
		},
		{
			name: "image without payload",
			mutate: func(a *Artifact) {
				a.Type = ArtifactImage
				a.Text = ""
			},
			wantErr: true,
			wantID:  "a1",
		},
		{
			name: "image with data",
			mutate: func(a *Artifact) {
				a.Type = ArtifactImage
				a.Text = ""
				a.Data = []byte{0x89, 0x50}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validText()
			tt.mutate(a)
			err := ValidateArtifact(a)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidArtifact)
			var aerr *ArtifactError
			require.True(t, errors.As(err, &aerr))
			assert.Equal(t, tt.wantID, aerr.ID)
		})
	}

	t.Run("nil artifact", func(t *testing.T) {
		assert.ErrorIs(t, ValidateArtifact(nil), ErrInvalidArtifact)
	})
}

func TestArtifactError_MatchesCause(t *testing.T) {
	err := &ArtifactError{ID: "x", Reason: "seen twice", Err: ErrDuplicateArtifact}
	assert.ErrorIs(t, err, ErrInvalidArtifact)
	assert.ErrorIs(t, err, ErrDuplicateArtifact)
	assert.Equal(t, "artifact x: seen twice", err.Error())
}

func TestValidateChunk(t *testing.T) {
	ok := &Chunk{ID: "chunk:0", Content: "abc", End: 3}
	assert.NoError(t, ValidateChunk(ok))

	assert.ErrorIs(t, ValidateChunk(nil), ErrInvalidChunk)
	assert.ErrorIs(t, ValidateChunk(&Chunk{Content: "abc"}), ErrInvalidChunk)
	assert.ErrorIs(t, ValidateChunk(&Chunk{ID: "c", Index: -1, Content: "abc"}), ErrInvalidChunk)
	assert.ErrorIs(t, ValidateChunk(&Chunk{ID: "c"}), ErrEmptyContent)
	assert.ErrorIs(t, ValidateChunk(&Chunk{ID: "c", Content: "x", Start: 4, End: 2}), ErrInvalidChunk)
}

func TestValidateVectorRecord(t *testing.T) {
	valid := func() *VectorRecord {
		return &VectorRecord{
			Vector:   []float32{1, 0, 0},
			Metadata: VectorMetadata{IngestionID: "ing", ChunkID: "chunk:0"},
		}
	}

	require.NoError(t, ValidateVectorRecord(valid()))
	assert.ErrorIs(t, ValidateVectorRecord(nil), ErrInvalidRecord)

	r := valid()
	r.Metadata.IngestionID = ""
	assert.ErrorIs(t, ValidateVectorRecord(r), ErrInvalidRecord)

	r = valid()
	r.Metadata.ChunkID = ""
	assert.ErrorIs(t, ValidateVectorRecord(r), ErrInvalidRecord)

	r = valid()
	r.Metadata.ChunkIndex = -2
	assert.ErrorIs(t, ValidateVectorRecord(r), ErrInvalidRecord)

	r = valid()
	r.Vector[1] = float32(math.NaN())
	assert.ErrorIs(t, ValidateVectorRecord(r), ErrInvalidRecord)
}
