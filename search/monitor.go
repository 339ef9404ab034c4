package search

import (
	"github.com/poiesic/vectorize/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterEmbedding(vector []float32)
	AfterVectorSearch(results []*core.SearchResult)
	Dropped(result *core.SearchResult, err error)
	Finish(hits []*Hit)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                          {}
func (n *noopMonitor) AfterEmbedding(_ []float32)              {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.SearchResult) {}
func (n *noopMonitor) Dropped(_ *core.SearchResult, _ error)   {}
func (n *noopMonitor) Finish(_ []*Hit)                         {}
