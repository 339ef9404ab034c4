package graph

import (
	"log/slog"

	"github.com/poiesic/vectorize/core"
)

// AssociationPolicy proposes edges between artifacts. It receives artifacts in
// input order and must be deterministic.
type AssociationPolicy func(artifacts []core.Artifact) []Edge

// SamePage links every image to every text artifact on the same page and
// source. Edges are ordered by image position, then text position.
func SamePage(artifacts []core.Artifact) []Edge {
	var edges []Edge
	for _, img := range artifacts {
		if img.Type != core.ArtifactImage {
			continue
		}
		for _, txt := range artifacts {
			if txt.Type != core.ArtifactText {
				continue
			}
			if txt.PageNumber == img.PageNumber && txt.SourceName == img.SourceName {
				edges = append(edges, Edge{FromID: img.ID, ToID: txt.ID, Relation: ImageToText})
			}
		}
	}
	return edges
}

// Builder constructs artifact graphs.
type Builder struct {
	policy AssociationPolicy
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder) error

// WithPolicy replaces the association policy. Default is SamePage.
func WithPolicy(policy AssociationPolicy) Option {
	return func(b *Builder) error {
		if policy == nil {
			return ErrPolicyRequired
		}
		b.policy = policy
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates a graph builder.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		policy: SamePage,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "graph-builder")
	return b, nil
}

// Build creates a graph from artifacts. Every artifact becomes a node in
// input order. Duplicate ids and malformed artifacts fail the whole build
// with a *core.ArtifactError naming the offending id.
func (b *Builder) Build(artifacts []core.Artifact) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]*Node, len(artifacts)),
		order: make([]string, 0, len(artifacts)),
	}

	for i := range artifacts {
		a := artifacts[i]
		if err := core.ValidateArtifact(&a); err != nil {
			return nil, err
		}
		if _, dup := g.nodes[a.ID]; dup {
			return nil, &core.ArtifactError{ID: a.ID, Reason: "id appears more than once", Err: core.ErrDuplicateArtifact}
		}
		g.nodes[a.ID] = &Node{Artifact: a}
		g.order = append(g.order, a.ID)
	}

	for _, e := range b.policy(artifacts) {
		from, ok := g.nodes[e.FromID]
		if !ok {
			return nil, &core.ArtifactError{ID: e.FromID, Reason: "edge source is not in the graph", Err: ErrUnknownNode}
		}
		to, ok := g.nodes[e.ToID]
		if !ok {
			return nil, &core.ArtifactError{ID: e.ToID, Reason: "edge target is not in the graph", Err: ErrUnknownNode}
		}
		from.Outgoing = append(from.Outgoing, e)
		to.Incoming = append(to.Incoming, e)
		g.edges = append(g.edges, e)
	}

	b.logger.Debug("built artifact graph", "nodes", len(g.order), "edges", len(g.edges))
	return g, nil
}
