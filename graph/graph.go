// Package graph represents an extracted document as a provenance-preserving
// graph of artifacts.
//
// Nodes are artifacts keyed by id and kept in insertion order. Edges are
// directed and labelled with a Relation. Building a graph is pure: the same
// artifact list always produces the same nodes, order and edges.
package graph

import "github.com/poiesic/vectorize/core"

// Relation labels an edge.
type Relation string

// ImageToText links an image artifact to a text artifact it accompanies.
const ImageToText Relation = "image_to_text"

// Edge is a directed, labelled link between two artifacts.
type Edge struct {
	FromID   string
	ToID     string
	Relation Relation
}

// Node is an artifact with its incident edges.
type Node struct {
	Artifact core.Artifact
	Incoming []Edge
	Outgoing []Edge
}

// Graph is an immutable artifact graph produced by Builder.Build.
type Graph struct {
	nodes map[string]*Node
	order []string
	edges []Edge
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Node returns the node for id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// IDs returns node ids in insertion order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns every edge in creation order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgesTo returns the edges with the given relation that end at id, in creation order.
func (g *Graph) EdgesTo(id string, rel Relation) []Edge {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	var out []Edge
	for _, e := range n.Incoming {
		if e.Relation == rel {
			out = append(out, e)
		}
	}
	return out
}

// SourcesOf returns the distinct ids linked to id by rel, in edge order.
func (g *Graph) SourcesOf(id string, rel Relation) []string {
	edges := g.EdgesTo(id, rel)
	out := make([]string, 0, len(edges))
	seen := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		if _, dup := seen[e.FromID]; dup {
			continue
		}
		seen[e.FromID] = struct{}{}
		out = append(out, e.FromID)
	}
	return out
}
