package rerank

import (
	"context"
	"strings"

	"github.com/docentlabs/docent/ai"
)

// Strategy rates candidate descriptions against a query. Implementations
// return one score per description, in input order, each in [0, 1].
type Strategy interface {
	Score(ctx context.Context, query string, descriptions []string) ([]float64, error)
}

// ScorerStrategy delegates to an ai.RelevanceScorer (typically an LLM).
type ScorerStrategy struct {
	scorer ai.RelevanceScorer
}

// NewScorerStrategy wraps a relevance scorer as a rerank strategy.
func NewScorerStrategy(scorer ai.RelevanceScorer) *ScorerStrategy {
	return &ScorerStrategy{scorer: scorer}
}

// Score delegates to the underlying relevance scorer.
func (s *ScorerStrategy) Score(ctx context.Context, query string, descriptions []string) ([]float64, error) {
	return s.scorer.ScoreCandidates(ctx, query, descriptions)
}

// OverlapStrategy is the deterministic fallback: each description scores as
// the fraction of query terms it contains. Never errors, requires no
// external service.
type OverlapStrategy struct{}

// NewOverlapStrategy creates the token-overlap fallback strategy.
func NewOverlapStrategy() *OverlapStrategy {
	return &OverlapStrategy{}
}

// Score rates each description by query-term coverage.
func (s *OverlapStrategy) Score(ctx context.Context, query string, descriptions []string) ([]float64, error) {
	queryTerms := strings.Fields(strings.ToLower(query))
	scores := make([]float64, len(descriptions))
	if len(queryTerms) == 0 {
		return scores, nil
	}

	for i, description := range descriptions {
		lower := strings.ToLower(description)
		matched := 0
		for _, term := range queryTerms {
			if strings.Contains(lower, term) {
				matched++
			}
		}
		scores[i] = float64(matched) / float64(len(queryTerms))
	}
	return scores, nil
}
