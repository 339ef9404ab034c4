package assembly

import (
	"testing"

	"github.com/poiesic/vectorize/chunking"
	"github.com/poiesic/vectorize/core"
	"github.com/poiesic/vectorize/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, artifacts ...core.Artifact) *graph.Graph {
	t.Helper()
	b, err := graph.NewBuilder()
	require.NoError(t, err)
	g, err := b.Build(artifacts)
	require.NoError(t, err)
	return g
}

func TestAssemble_TextAndImageOnSamePage(t *testing.T) {
	g := build(t,
		core.Artifact{ID: "t1", Type: core.ArtifactText, Text: "Intro", SourceName: "report.pdf", PageNumber: 1, OrderIndex: 0},
		core.Artifact{ID: "i1", Type: core.ArtifactImage, Data: []byte{0xff}, SourceName: "report.pdf", PageNumber: 1, OrderIndex: 1},
	)

	chunks, err := New(nil, nil).Assemble(g)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, "t1:chunk:0", c.ID)
	assert.Equal(t, "Intro", c.Content)
	require.NoError(t, c.Metadata.Require(core.AssembledKeys...))

	images, _ := c.Metadata.Get(core.MetaAssociatedImageIDs)
	assert.Equal(t, []string{"i1"}, images)
	pages, _ := c.Metadata.Get(core.MetaPageNumbers)
	assert.Equal(t, []int{1}, pages)
	ids, _ := c.Metadata.Get(core.MetaArtifactIDs)
	assert.Equal(t, []string{"t1"}, ids)
	src, _ := c.Metadata.GetString(core.MetaSourceFile)
	assert.Equal(t, "report.pdf", src)
	assert.Equal(t, "simple", c.Strategy())
}

func TestAssemble_OrderAndSkipping(t *testing.T) {
	g := build(t,
		core.Artifact{ID: "a", Type: core.ArtifactText, Text: "One. Two. Three.", SourceName: "s", PageNumber: 1},
		core.Artifact{ID: "blank", Type: core.ArtifactText, Text: "   ", SourceName: "s", PageNumber: 1, OrderIndex: 1},
		core.Artifact{ID: "img", Type: core.ArtifactImage, Text: "caption", SourceName: "s", PageNumber: 2},
		core.Artifact{ID: "b", Type: core.ArtifactText, Text: "Later text", SourceName: "s", PageNumber: 2, OrderIndex: 1},
	)

	chunks, err := New(nil, nil).Assemble(g)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "a:chunk:0", chunks[0].ID)
	assert.Equal(t, "sentence", chunks[0].Strategy())
	images, _ := chunks[0].Metadata.Get(core.MetaAssociatedImageIDs)
	assert.Equal(t, []string{}, images)

	assert.Equal(t, "b:chunk:0", chunks[1].ID)
	images, _ = chunks[1].Metadata.Get(core.MetaAssociatedImageIDs)
	assert.Equal(t, []string{"img"}, images)
}

func TestAssemble_Deterministic(t *testing.T) {
	artifacts := []core.Artifact{
		{ID: "t1", Type: core.ArtifactText, Text: "Para one.\n\nPara two.\n\nPara three.", SourceName: "s", PageNumber: 1},
		{ID: "i1", Type: core.ArtifactImage, Data: []byte{1}, SourceName: "s", PageNumber: 1, OrderIndex: 1},
	}
	a := New(nil, nil)

	first, err := a.Assemble(build(t, artifacts...))
	require.NoError(t, err)
	second, err := a.Assemble(build(t, artifacts...))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAssemble_ChunkerErrorNamesArtifact(t *testing.T) {
	bad := chunking.NewSelector(chunking.Rule{Chunker: chunking.FixedSize{}, Params: chunking.Params{ChunkSize: 2, Overlap: 5}})
	g := build(t, core.Artifact{ID: "t1", Type: core.ArtifactText, Text: "hello", SourceName: "s", PageNumber: 1})

	_, err := New(bad, nil).Assemble(g)
	require.ErrorIs(t, err, chunking.ErrInvalidParams)
	assert.Contains(t, err.Error(), "t1")
}
