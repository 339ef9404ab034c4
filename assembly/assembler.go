// Package assembly turns an artifact graph into provenance-carrying chunks.
package assembly

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/vectorize/chunking"
	"github.com/poiesic/vectorize/core"
	"github.com/poiesic/vectorize/graph"
)

// Assembler chunks the text artifacts of a graph.
type Assembler struct {
	selector *chunking.Selector
	logger   *slog.Logger
}

// New creates an assembler. A nil selector uses chunking.DefaultSelector;
// a nil logger uses slog.Default().
func New(selector *chunking.Selector, logger *slog.Logger) *Assembler {
	if selector == nil {
		selector = chunking.DefaultSelector()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		selector: selector,
		logger:   logger.With("component", "assembler"),
	}
}

// ChunkID is the id of the index-th chunk of an artifact.
func ChunkID(artifactID string, index int) string {
	return fmt.Sprintf("%s:chunk:%d", artifactID, index)
}

// Assemble chunks every text artifact with a non-blank payload, in graph
// order. Each chunk records its source, page, artifact and the images linked
// to the artifact by image_to_text edges.
func (a *Assembler) Assemble(g *graph.Graph) ([]core.Chunk, error) {
	var out []core.Chunk
	for _, node := range g.Nodes() {
		art := node.Artifact
		if art.Type != core.ArtifactText {
			continue
		}
		if !art.HasText() {
			a.logger.Debug("skipping artifact without text", "artifact", art.ID)
			continue
		}

		chunker, params := a.selector.ChooseStrategy(art.Text)
		chunks, err := chunker.Chunk(art.Text, params)
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", art.ID, err)
		}

		images := g.SourcesOf(art.ID, graph.ImageToText)
		a.logger.Debug("chunked artifact",
			"artifact", art.ID,
			"strategy", chunker.Strategy(),
			"chunks", len(chunks),
			"images", len(images))

		for _, c := range chunks {
			c.ID = ChunkID(art.ID, c.Index)
			c.Metadata.Set(core.MetaSourceFile, art.SourceName)
			c.Metadata.Set(core.MetaPageNumbers, []int{art.PageNumber})
			c.Metadata.Set(core.MetaArtifactIDs, []string{art.ID})
			c.Metadata.Set(core.MetaAssociatedImageIDs, append([]string{}, images...))
			out = append(out, c)
		}
	}
	return out, nil
}
