package search

import "github.com/docentlabs/docent/core"

// SearchMonitor provides hooks to observe the query pipeline.
// Implement this interface to track intermediate stages during a search.
type SearchMonitor interface {
	Start(query string)
	AfterLexicalFilter(candidates []*core.Candidate)
	AfterRerank(candidates []*core.RankedCandidate)
	AfterEmbedding(embedded []core.ID)
	AfterVectorSearch(matches []*core.ChunkMatch)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                              {}
func (n *noopMonitor) AfterLexicalFilter(_ []*core.Candidate)      {}
func (n *noopMonitor) AfterRerank(_ []*core.RankedCandidate)       {}
func (n *noopMonitor) AfterEmbedding(_ []core.ID)                  {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.ChunkMatch)      {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)               {}
