package rerank

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docentlabs/docent/ai/mock"
	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/storage"
	"github.com/docentlabs/docent/storage/badger"
)

func newMetadataRepo(t *testing.T) (storage.MetadataRepository, func()) {
	t.Helper()
	_, metaRepo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	return metaRepo, func() { backend.Close() }
}

func putRecord(t *testing.T, repo storage.MetadataRepository, id core.ID, title string, keywords []string) {
	t.Helper()
	require.NoError(t, repo.PutMetadata(context.Background(), &core.DocumentMetadata{
		DocumentId: id,
		Title:      title,
		Keywords:   keywords,
		Status:     core.MetadataReady,
	}))
}

func TestRerank_OrdersByRelevance(t *testing.T) {
	repo, cleanup := newMetadataRepo(t)
	defer cleanup()

	putRecord(t, repo, 1, "Laboratory Construction Tender", []string{"tender", "construction"})
	putRecord(t, repo, 2, "Merit Scholarship Notification", []string{"scholarship", "deadline"})

	r, err := NewReranker(repo)
	require.NoError(t, err)

	candidates := []*core.Candidate{
		{DocumentId: 1, LexicalScore: 2.0},
		{DocumentId: 2, LexicalScore: 1.5},
	}
	ranked, err := r.Rerank(context.Background(), "scholarship deadline", candidates, 10)
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, core.ID(2), ranked[0].DocumentId)
	assert.Greater(t, ranked[0].RelevanceScore, ranked[1].RelevanceScore)
	// Lexical scores carried through
	assert.Equal(t, float32(1.5), ranked[0].LexicalScore)
}

func TestRerank_ScorerStrategyErrorsDegradeToFallback(t *testing.T) {
	repo, cleanup := newMetadataRepo(t)
	defer cleanup()

	putRecord(t, repo, 1, "Budget Circular", []string{"budget"})
	putRecord(t, repo, 2, "Admission Notice", []string{"admission"})

	scorer := mock.NewMockScorer()
	scorer.ScoreCandidatesFunc = func(ctx context.Context, query string, candidates []string) ([]float64, error) {
		return nil, errors.New("model unavailable")
	}

	r, err := NewReranker(repo, WithStrategy(NewScorerStrategy(scorer)))
	require.NoError(t, err)

	candidates := []*core.Candidate{
		{DocumentId: 1, LexicalScore: 1.0},
		{DocumentId: 2, LexicalScore: 0.5},
	}
	ranked, err := r.Rerank(context.Background(), "budget", candidates, 10)
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, core.ID(1), ranked[0].DocumentId)
}

func TestRerank_WrongScoreCountDegradesToFallback(t *testing.T) {
	repo, cleanup := newMetadataRepo(t)
	defer cleanup()

	putRecord(t, repo, 1, "Budget Circular", []string{"budget"})

	scorer := mock.NewMockScorer()
	scorer.ScoreCandidatesFunc = func(ctx context.Context, query string, candidates []string) ([]float64, error) {
		return []float64{0.9, 0.1}, nil // too many
	}

	r, err := NewReranker(repo, WithStrategy(NewScorerStrategy(scorer)))
	require.NoError(t, err)

	ranked, err := r.Rerank(context.Background(), "budget",
		[]*core.Candidate{{DocumentId: 1, LexicalScore: 1.0}}, 10)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
}

func TestRerank_TiesBrokenByLexicalScoreThenId(t *testing.T) {
	repo, cleanup := newMetadataRepo(t)
	defer cleanup()

	putRecord(t, repo, 3, "Circular A", []string{"circular"})
	putRecord(t, repo, 1, "Circular B", []string{"circular"})
	putRecord(t, repo, 2, "Circular C", []string{"circular"})

	r, err := NewReranker(repo)
	require.NoError(t, err)

	candidates := []*core.Candidate{
		{DocumentId: 3, LexicalScore: 1.0},
		{DocumentId: 1, LexicalScore: 1.0},
		{DocumentId: 2, LexicalScore: 2.0},
	}
	ranked, err := r.Rerank(context.Background(), "circular", candidates, 10)
	require.NoError(t, err)

	// All overlap scores equal: lexical score first, then id
	require.Len(t, ranked, 3)
	assert.Equal(t, core.ID(2), ranked[0].DocumentId)
	assert.Equal(t, core.ID(1), ranked[1].DocumentId)
	assert.Equal(t, core.ID(3), ranked[2].DocumentId)
}

func TestRerank_LimitRespected(t *testing.T) {
	repo, cleanup := newMetadataRepo(t)
	defer cleanup()

	candidates := make([]*core.Candidate, 5)
	for i := range candidates {
		id := core.ID(i + 1)
		putRecord(t, repo, id, "Examination Schedule", []string{"examination"})
		candidates[i] = &core.Candidate{DocumentId: id, LexicalScore: 1.0}
	}

	r, err := NewReranker(repo)
	require.NoError(t, err)

	ranked, err := r.Rerank(context.Background(), "examination", candidates, 2)
	require.NoError(t, err)
	assert.Len(t, ranked, 2)
}

func TestRerank_EmptyCandidates(t *testing.T) {
	repo, cleanup := newMetadataRepo(t)
	defer cleanup()

	r, err := NewReranker(repo)
	require.NoError(t, err)

	ranked, err := r.Rerank(context.Background(), "anything", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestRerank_MissingMetadataScoresLow(t *testing.T) {
	repo, cleanup := newMetadataRepo(t)
	defer cleanup()

	putRecord(t, repo, 1, "Budget Circular", []string{"budget"})
	// Document 2 has no metadata record at all

	r, err := NewReranker(repo)
	require.NoError(t, err)

	candidates := []*core.Candidate{
		{DocumentId: 2, LexicalScore: 5.0},
		{DocumentId: 1, LexicalScore: 1.0},
	}
	ranked, err := r.Rerank(context.Background(), "budget", candidates, 10)
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, core.ID(1), ranked[0].DocumentId)
}

func TestOverlapStrategy_Score(t *testing.T) {
	s := NewOverlapStrategy()

	scores, err := s.Score(context.Background(), "scholarship deadline",
		[]string{"Merit Scholarship | deadline, undergraduate", "Tender Notice"})
	require.NoError(t, err)

	require.Len(t, scores, 2)
	assert.Equal(t, 1.0, scores[0])
	assert.Equal(t, 0.0, scores[1])
}
