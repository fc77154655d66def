package search

import (
	"time"

	"github.com/poiesic/docent/core"
)

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results.
type Monitor interface {
	Start(query string, k int)
	AfterEmbedding(dimensions int)
	AfterRanking(results []*core.SearchResult)
	Filtered(result *core.SearchResult)
	Finish(results []*core.SearchResult, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)                          {}
func (n *noopMonitor) AfterEmbedding(_ int)                           {}
func (n *noopMonitor) AfterRanking(_ []*core.SearchResult)            {}
func (n *noopMonitor) Filtered(_ *core.SearchResult)                  {}
func (n *noopMonitor) Finish(_ []*core.SearchResult, _ time.Duration) {}
