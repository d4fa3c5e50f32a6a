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


package lexical

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/storage"
)

const (
	// BM25 parameters. Standard values: k1 controls term-frequency
	// saturation, b controls length normalization.
	defaultK1 = 1.2
	defaultB  = 0.75
)

// Index is the lexical candidate filter. It shortlists documents for a query
// by BM25 over their metadata records (title, keywords, summary).
//
// The index is rebuilt from the metadata repository on every Candidates call;
// staleness is bounded by one query cycle. The access predicate restricts the
// scored pool: an inaccessible document is removed before any term statistics
// are computed, so it can never influence ranking.
type Index struct {
	documents storage.DocumentRepository
	metadata  storage.MetadataRepository
	k1        float64
	b         float64
	logger    *slog.Logger
}

// Option configures an Index.
type Option func(*Index) error

// WithParameters overrides the BM25 k1 and b parameters.
// Defaults are k1=1.2, b=0.75.
func WithParameters(k1, b float64) Option {
	return func(ix *Index) error {
		if k1 > 0 {
			ix.k1 = k1
		}
		if b >= 0 && b <= 1 {
			ix.b = b
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger.With("component", "lexical-index")
		return nil
	}
}

// NewIndex creates a lexical candidate filter over the given repositories.
func NewIndex(documents storage.DocumentRepository, metadata storage.MetadataRepository, opts ...Option) (*Index, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if metadata == nil {
		return nil, ErrMetadataRepositoryRequired
	}

	ix := &Index{
		documents: documents,
		metadata:  metadata,
		k1:        defaultK1,
		b:         defaultB,
		logger:    slog.Default().With("component", "lexical-index"),
	}

	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}

	return ix, nil
}

// scoredRecord is one accessible metadata record prepared for BM25 scoring.
type scoredRecord struct {
	documentId core.ID
	termFreq   map[string]int
	length     int
}

// Candidates returns up to limit documents ranked by BM25 relevance to the
// query, restricted to documents the predicate allows. Records still in
// extraction contribute whatever fields they already have; failed records
// are skipped. An empty shortlist is a valid result, not an error.
func (ix *Index) Candidates(ctx context.Context, query string, predicate core.AccessPredicate, limit int) ([]*core.Candidate, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		return []*core.Candidate{}, nil
	}

	records, err := ix.metadata.ListMetadata(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []*core.Candidate{}, nil
	}

	// Resolve access triples for the whole pool in one read
	ids := make([]core.ID, 0, len(records))
	for _, record := range records {
		if record.Status == core.MetadataFailed {
			continue
		}
		ids = append(ids, record.DocumentId)
	}
	docs, err := ix.documents.GetDocuments(ctx, ids...)
	if err != nil {
		return nil, err
	}
	access := make(map[core.ID]core.AccessTriple, len(docs))
	for _, doc := range docs {
		access[doc.Id] = doc.Access
	}

	// Predicate filters the pool before any scoring. Term statistics are
	// computed over accessible records only.
	pool := make([]*scoredRecord, 0, len(records))
	docFreq := make(map[string]int)
	totalLength := 0
	for _, record := range records {
		if record.Status == core.MetadataFailed {
			continue
		}
		triple, ok := access[record.DocumentId]
		if !ok || !predicate.Allows(triple) {
			continue
		}

		terms := Tokenize(record.SearchText())
		sr := &scoredRecord{
			documentId: record.DocumentId,
			termFreq:   make(map[string]int, len(terms)),
			length:     len(terms),
		}
		for _, term := range terms {
			sr.termFreq[term]++
		}
		for term := range sr.termFreq {
			docFreq[term]++
		}
		totalLength += sr.length
		pool = append(pool, sr)
	}

	if len(pool) == 0 {
		return []*core.Candidate{}, nil
	}
	avgLength := float64(totalLength) / float64(len(pool))
	if avgLength == 0 {
		avgLength = 1
	}

	candidates := make([]*core.Candidate, 0, len(pool))
	for _, sr := range pool {
		score := ix.bm25(queryTerms, sr, docFreq, len(pool), avgLength)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, &core.Candidate{
			DocumentId:   sr.documentId,
			LexicalScore: float32(score),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].LexicalScore != candidates[j].LexicalScore {
			return candidates[i].LexicalScore > candidates[j].LexicalScore
		}
		return candidates[i].DocumentId < candidates[j].DocumentId
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	ix.logger.Debug("lexical shortlist built",
		"pool", len(pool),
		"matched", len(candidates))

	return candidates, nil
}

// bm25 computes the BM25 score of one record for the query terms.
func (ix *Index) bm25(queryTerms []string, sr *scoredRecord, docFreq map[string]int, poolSize int, avgLength float64) float64 {
	score := 0.0
	for _, term := range queryTerms {
		tf := sr.termFreq[term]
		if tf == 0 {
			continue
		}
		df := docFreq[term]

		idf := math.Log(1 + (float64(poolSize)-float64(df)+0.5)/(float64(df)+0.5))
		norm := 1 - ix.b + ix.b*float64(sr.length)/avgLength
		score += idf * float64(tf) * (ix.k1 + 1) / (float64(tf) + ix.k1*norm)
	}
	return score
}

// Tokenize splits text into lowercase terms of letters and digits.
func Tokenize(text string) []string {
	terms := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := terms[:0]
	for _, term := range terms {
		if len(term) < 2 {
			continue
		}
		out = append(out, term)
	}
	return out
}
