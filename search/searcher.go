package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/docentlabs/docent/ai"
	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/embedding"
	"github.com/docentlabs/docent/lexical"
	"github.com/docentlabs/docent/rerank"
	"github.com/docentlabs/docent/storage"
)

const (
	// defaultCandidateLimit is the size of the lexical shortlist.
	defaultCandidateLimit = 20

	// defaultRerankLimit is how many shortlisted documents survive the
	// rerank stage and become eligible for embedding.
	defaultRerankLimit = 5

	// defaultMinSimilarity is the vector similarity floor for chunk matches.
	defaultMinSimilarity = 0.25

	// Hybrid score weights. Vector similarity dominates; the lexical score
	// keeps exact-term matches from drowning.
	defaultVectorWeight  = 0.7
	defaultLexicalWeight = 0.3
)

// Searcher is the query pipeline: lexical shortlist, learned rerank, lazy
// embedding, predicate-filtered vector search, hybrid merge. It is the sole
// entry point for retrieval.
type Searcher struct {
	index          *lexical.Index
	reranker       *rerank.Reranker
	manager        *embedding.Manager
	chunks         storage.ChunkRepository
	embedder       ai.Embedder
	candidateLimit int
	rerankLimit    int
	minSimilarity  float32
	vectorWeight   float32
	lexicalWeight  float32
	logger         *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithCandidateLimit sets the lexical shortlist size. Default is 20.
func WithCandidateLimit(limit int) Option {
	return func(s *Searcher) error {
		if limit >= 1 {
			s.candidateLimit = limit
		}
		return nil
	}
}

// WithRerankLimit sets how many documents survive reranking. Default is 5.
func WithRerankLimit(limit int) Option {
	return func(s *Searcher) error {
		if limit >= 1 {
			s.rerankLimit = limit
		}
		return nil
	}
}

// WithMinSimilarity sets the vector similarity floor. Default is 0.25.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		s.minSimilarity = min
		return nil
	}
}

// WithWeights sets the hybrid score weights. Defaults are 0.7 vector,
// 0.3 lexical.
func WithWeights(vector, lexical float32) Option {
	return func(s *Searcher) error {
		if vector > 0 && lexical >= 0 {
			s.vectorWeight = vector
			s.lexicalWeight = lexical
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "searcher")
		return nil
	}
}

// NewSearcher creates a new searcher over the pipeline stages.
func NewSearcher(
	index *lexical.Index,
	reranker *rerank.Reranker,
	manager *embedding.Manager,
	chunks storage.ChunkRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if reranker == nil {
		return nil, ErrRerankerRequired
	}
	if manager == nil {
		return nil, ErrManagerRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		index:          index,
		reranker:       reranker,
		manager:        manager,
		chunks:         chunks,
		embedder:       embedder,
		candidateLimit: defaultCandidateLimit,
		rerankLimit:    defaultRerankLimit,
		minSimilarity:  defaultMinSimilarity,
		vectorWeight:   defaultVectorWeight,
		lexicalWeight:  defaultLexicalWeight,
		logger:         slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs the full pipeline for a principal's query.
// Returns up to maxHits results, ranked by hybrid score.
func (s *Searcher) Search(ctx context.Context, query string, principal core.Principal, maxHits int) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, query, principal, maxHits, nil)
}

// SearchWithMonitor runs the full pipeline with stage callbacks.
// The monitor receives intermediate candidates, the embedded set, and raw
// chunk matches before the final merge.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, principal core.Principal, maxHits int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if maxHits < 1 {
		return nil, ErrInvalidMaxHits
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)
	predicate := core.PredicateFor(principal)

	// 1. Lexical shortlist. An empty shortlist ends the query cheaply.
	candidates, err := s.index.Candidates(ctx, query, predicate, s.candidateLimit)
	if err != nil {
		s.logger.Error("lexical filter failed", "err", err)
		return nil, err
	}
	monitor.AfterLexicalFilter(candidates)
	if len(candidates) == 0 {
		results := []*core.SearchResult{}
		monitor.Finish(results)
		return results, nil
	}

	// 2. Learned rerank narrows the shortlist to the embedding-worthy set.
	ranked, err := s.reranker.Rerank(ctx, query, candidates, s.rerankLimit)
	if err != nil {
		s.logger.Error("rerank failed", "err", err)
		return nil, err
	}
	monitor.AfterRerank(ranked)

	// 3. Lazy embedding: bring the ranked documents to Embedded where the
	// per-query budget allows.
	ids := make([]core.ID, len(ranked))
	lexicalByDoc := make(map[core.ID]float32, len(ranked))
	for i, candidate := range ranked {
		ids[i] = candidate.DocumentId
		lexicalByDoc[candidate.DocumentId] = candidate.LexicalScore
	}
	embedded, err := s.manager.EnsureEmbedded(ctx, ids)
	if err != nil {
		s.logger.Error("lazy embedding failed", "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(embedded)
	if len(embedded) == 0 {
		results := []*core.SearchResult{}
		monitor.Finish(results)
		return results, nil
	}
	embeddedSet := make(map[core.ID]bool, len(embedded))
	for _, id := range embedded {
		embeddedSet[id] = true
	}

	// 4. Vector search over accessible, current chunks.
	queryVector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("query embedding failed", "err", err)
		return nil, err
	}
	matches, err := s.chunks.FindSimilarChunks(ctx, queryVector, predicate, s.minSimilarity, maxHits*len(ranked))
	if err != nil {
		s.logger.Error("vector search failed", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(matches)

	// 5. Hybrid merge: best chunk per shortlisted document, scored by
	// weighted vector similarity and normalized lexical score.
	maxLexical := float32(0)
	for _, score := range lexicalByDoc {
		if score > maxLexical {
			maxLexical = score
		}
	}

	best := make(map[core.ID]*core.SearchResult, len(embedded))
	for _, match := range matches {
		docId := match.Chunk.DocumentId
		if !embeddedSet[docId] {
			continue
		}

		lexicalScore := float32(0)
		if maxLexical > 0 {
			lexicalScore = lexicalByDoc[docId] / maxLexical
		}
		hybrid := s.vectorWeight*match.Score + s.lexicalWeight*lexicalScore

		existing, ok := best[docId]
		if ok && existing.Score >= hybrid {
			continue
		}
		best[docId] = &core.SearchResult{
			DocumentId:   docId,
			ChunkText:    match.Chunk.Text,
			ChunkSeq:     match.Chunk.Seq,
			Score:        hybrid,
			VectorScore:  match.Score,
			LexicalScore: lexicalByDoc[docId],
		}
	}

	results := make([]*core.SearchResult, 0, len(best))
	for _, result := range best {
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentId < results[j].DocumentId
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}

	s.logger.Debug("search finished",
		"candidates", len(candidates),
		"ranked", len(ranked),
		"embedded", len(embedded),
		"hits", len(results))
	monitor.Finish(results)
	return results, nil
}
