// Copyright 2025 Docent Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package rerank

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/storage"
)

// Reranker narrows a lexical shortlist to the documents actually worth
// embedding. It scores candidates by their metadata descriptions (title,
// keywords, summary) using the configured strategy; full document text is
// never sent anywhere.
//
// The strategy is a construction-time choice. When the primary strategy
// fails, the reranker degrades to the deterministic token-overlap fallback
// rather than failing the query.
type Reranker struct {
	metadata storage.MetadataRepository
	primary  Strategy
	fallback Strategy
	logger   *slog.Logger
}

// Option configures a Reranker.
type Option func(*Reranker) error

// WithStrategy sets the primary scoring strategy.
// Default is the deterministic overlap strategy.
func WithStrategy(strategy Strategy) Option {
	return func(r *Reranker) error {
		if strategy != nil {
			r.primary = strategy
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "reranker")
		return nil
	}
}

// NewReranker creates a reranker over the given metadata repository.
func NewReranker(metadata storage.MetadataRepository, opts ...Option) (*Reranker, error) {
	if metadata == nil {
		return nil, ErrMetadataRepositoryRequired
	}

	r := &Reranker{
		metadata: metadata,
		primary:  NewOverlapStrategy(),
		fallback: NewOverlapStrategy(),
		logger:   slog.Default().With("component", "reranker"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Rerank scores the candidates against the query and returns the top limit
// of them, highest relevance first. Ties are broken by lexical score, then
// by document id, so the ordering is stable across runs.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []*core.Candidate, limit int) ([]*core.RankedCandidate, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if len(candidates) == 0 {
		return []*core.RankedCandidate{}, nil
	}

	descriptions := make([]string, len(candidates))
	for i, candidate := range candidates {
		descriptions[i] = r.describe(ctx, candidate.DocumentId)
	}

	scores, err := r.primary.Score(ctx, query, descriptions)
	if err != nil || len(scores) != len(candidates) {
		if err == nil {
			err = errors.New("strategy returned wrong score count")
		}
		r.logger.Warn("primary rerank strategy failed, using fallback", "err", err)
		scores, err = r.fallback.Score(ctx, query, descriptions)
		if err != nil {
			return nil, err
		}
	}

	ranked := make([]*core.RankedCandidate, len(candidates))
	for i, candidate := range candidates {
		ranked[i] = &core.RankedCandidate{
			DocumentId:     candidate.DocumentId,
			LexicalScore:   candidate.LexicalScore,
			RelevanceScore: float32(scores[i]),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RelevanceScore != ranked[j].RelevanceScore {
			return ranked[i].RelevanceScore > ranked[j].RelevanceScore
		}
		if ranked[i].LexicalScore != ranked[j].LexicalScore {
			return ranked[i].LexicalScore > ranked[j].LexicalScore
		}
		return ranked[i].DocumentId < ranked[j].DocumentId
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// describe builds the compact description the strategy scores: title,
// keywords, and summary joined with separators. A candidate with no metadata
// record is described by nothing and will score low, not error.
func (r *Reranker) describe(ctx context.Context, id core.ID) string {
	record, err := r.metadata.GetMetadata(ctx, id)
	if err != nil {
		r.logger.Debug("no metadata record for candidate", "document", id, "err", err)
		return ""
	}

	parts := make([]string, 0, 3)
	if record.Title != "" {
		parts = append(parts, record.Title)
	}
	if len(record.Keywords) > 0 {
		parts = append(parts, strings.Join(record.Keywords, ", "))
	}
	if record.Summary != "" {
		parts = append(parts, record.Summary)
	}
	return strings.Join(parts, " | ")
}
