package mock

import (
	"context"
	"strings"
)

// MockScorer is a test double for ai.RelevanceScorer.
// It allows custom behavior injection via function fields.
type MockScorer struct {
	// ScoreCandidatesFunc is called by ScoreCandidates if set.
	// If nil, uses default token-overlap behavior.
	ScoreCandidatesFunc func(ctx context.Context, query string, candidates []string) ([]float64, error)

	callCount int
}

// NewMockScorer creates a mock scorer with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockScorer().
func NewMockScorer() *MockScorer {
	return &MockScorer{}
}

// ScoreCandidates scores each candidate by the fraction of query tokens it
// contains. Deterministic and order-preserving.
func (m *MockScorer) ScoreCandidates(ctx context.Context, query string, candidates []string) ([]float64, error) {
	m.callCount++

	if m.ScoreCandidatesFunc != nil {
		return m.ScoreCandidatesFunc(ctx, query, candidates)
	}

	queryTokens := strings.Fields(strings.ToLower(query))
	scores := make([]float64, len(candidates))
	if len(queryTokens) == 0 {
		return scores, nil
	}

	for i, candidate := range candidates {
		lower := strings.ToLower(candidate)
		matched := 0
		for _, token := range queryTokens {
			if strings.Contains(lower, token) {
				matched++
			}
		}
		scores[i] = float64(matched) / float64(len(queryTokens))
	}

	return scores, nil
}

// CallCount returns the number of times ScoreCandidates was called.
func (m *MockScorer) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockScorer) Reset() {
	m.callCount = 0
	m.ScoreCandidatesFunc = nil
}
