package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docentlabs/docent/ai/mock"
	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/storage"
	"github.com/docentlabs/docent/storage/badger"
)

func newRepos(t *testing.T) (storage.DocumentRepository, storage.ChunkRepository, func()) {
	t.Helper()
	docRepo, _, chunkRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	return docRepo, chunkRepo, func() { backend.Close() }
}

func addDocument(t *testing.T, repo storage.DocumentRepository, text string) *core.Document {
	t.Helper()
	added, err := repo.AddDocuments(context.Background(), &core.Document{
		Text: text,
		Access: core.AccessTriple{
			Visibility:    core.VisibilityPublic,
			InstitutionID: 1,
			Approval:      core.ApprovalApproved,
		},
	})
	require.NoError(t, err)
	return added[0]
}

func TestEnsureEmbedded_ColdDocument(t *testing.T) {
	docRepo, chunkRepo, cleanup := newRepos(t)
	defer cleanup()

	m, err := NewManager(docRepo, chunkRepo, mock.NewMockEmbedder())
	require.NoError(t, err)

	doc := addDocument(t, docRepo, "Scholarship deadlines for undergraduate students close in June.")

	embedded, err := m.EnsureEmbedded(context.Background(), []core.ID{doc.Id})
	require.NoError(t, err)
	require.Equal(t, []core.ID{doc.Id}, embedded)

	stored, err := docRepo.GetDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.Embedded, stored.EmbeddingStatus)

	chunks, err := chunkRepo.GetChunks(context.Background(), doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, doc.Fingerprint, chunks[0].Fingerprint)
	assert.Equal(t, doc.Access, chunks[0].Access)
	assert.NotEmpty(t, chunks[0].Vector)
}

func TestEnsureEmbedded_WarmDocumentDoesNoWork(t *testing.T) {
	docRepo, chunkRepo, cleanup := newRepos(t)
	defer cleanup()

	embedder := mock.NewMockEmbedder()
	m, err := NewManager(docRepo, chunkRepo, embedder)
	require.NoError(t, err)

	doc := addDocument(t, docRepo, "Budget circular for the fiscal year.")
	_, err = m.EnsureEmbedded(context.Background(), []core.ID{doc.Id})
	require.NoError(t, err)

	callsAfterFirst := embedder.CallCount()

	embedded, err := m.EnsureEmbedded(context.Background(), []core.ID{doc.Id})
	require.NoError(t, err)
	assert.Equal(t, []core.ID{doc.Id}, embedded)
	assert.Equal(t, callsAfterFirst, embedder.CallCount())
}

func TestEnsureEmbedded_BudgetBoundsColdWork(t *testing.T) {
	docRepo, chunkRepo, cleanup := newRepos(t)
	defer cleanup()

	m, err := NewManager(docRepo, chunkRepo, mock.NewMockEmbedder(),
		WithMaxPerQuery(2), WithParallelism(1))
	require.NoError(t, err)

	ids := make([]core.ID, 4)
	for i := range ids {
		doc := addDocument(t, docRepo, "Notification number "+strings.Repeat("x", i+1))
		ids[i] = doc.Id
	}

	embedded, err := m.EnsureEmbedded(context.Background(), ids)
	require.NoError(t, err)

	// The first two (better ranked) documents got the budget
	assert.Equal(t, ids[:2], embedded)

	for i, id := range ids {
		stored, err := docRepo.GetDocument(context.Background(), id)
		require.NoError(t, err)
		if i < 2 {
			assert.Equal(t, core.Embedded, stored.EmbeddingStatus)
		} else {
			assert.Equal(t, core.NotEmbedded, stored.EmbeddingStatus)
		}
	}
}

func TestEnsureEmbedded_FailureIsolatedPerDocument(t *testing.T) {
	docRepo, chunkRepo, cleanup := newRepos(t)
	defer cleanup()

	bad := addDocument(t, docRepo, "corrupted source text")
	good := addDocument(t, docRepo, "regular admission notice text")

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if strings.Contains(texts[0], "corrupted") {
			return nil, errors.New("provider rejected input")
		}
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{0.1, 0.2, 0.3}
		}
		return vectors, nil
	}

	m, err := NewManager(docRepo, chunkRepo, embedder)
	require.NoError(t, err)

	embedded, err := m.EnsureEmbedded(context.Background(), []core.ID{bad.Id, good.Id})
	require.NoError(t, err)
	assert.Equal(t, []core.ID{good.Id}, embedded)

	storedBad, err := docRepo.GetDocument(context.Background(), bad.Id)
	require.NoError(t, err)
	assert.Equal(t, core.EmbeddingFailed, storedBad.EmbeddingStatus)

	// Failed documents keep zero chunks, never a partial set
	count, err := chunkRepo.CountChunks(context.Background(), bad.Id)
	require.NoError(t, err)
	assert.Zero(t, count)

	storedGood, err := docRepo.GetDocument(context.Background(), good.Id)
	require.NoError(t, err)
	assert.Equal(t, core.Embedded, storedGood.EmbeddingStatus)
}

func TestEnsureEmbedded_FailedDocumentRetriedNextQuery(t *testing.T) {
	docRepo, chunkRepo, cleanup := newRepos(t)
	defer cleanup()

	doc := addDocument(t, docRepo, "flaky provider document")

	var calls atomic.Int64
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient provider error")
		}
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{0.5, 0.5}
		}
		return vectors, nil
	}

	m, err := NewManager(docRepo, chunkRepo, embedder)
	require.NoError(t, err)

	embedded, err := m.EnsureEmbedded(context.Background(), []core.ID{doc.Id})
	require.NoError(t, err)
	assert.Empty(t, embedded)

	embedded, err = m.EnsureEmbedded(context.Background(), []core.ID{doc.Id})
	require.NoError(t, err)
	assert.Equal(t, []core.ID{doc.Id}, embedded)
}

func TestEnsureEmbedded_VectorCountMismatchFailsDocument(t *testing.T) {
	docRepo, chunkRepo, cleanup := newRepos(t)
	defer cleanup()

	doc := addDocument(t, docRepo, "document with broken embedding batch")

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{}, nil // wrong count
	}

	m, err := NewManager(docRepo, chunkRepo, embedder)
	require.NoError(t, err)

	embedded, err := m.EnsureEmbedded(context.Background(), []core.ID{doc.Id})
	require.NoError(t, err)
	assert.Empty(t, embedded)

	stored, err := docRepo.GetDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.EmbeddingFailed, stored.EmbeddingStatus)

	count, err := chunkRepo.CountChunks(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEnsureEmbedded_ConcurrentQueriesEmbedOnce(t *testing.T) {
	docRepo, chunkRepo, cleanup := newRepos(t)
	defer cleanup()

	doc := addDocument(t, docRepo, strings.Repeat("Joint seminar on research funding. ", 40))

	var embedCalls atomic.Int64
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		embedCalls.Add(1)
		time.Sleep(50 * time.Millisecond) // hold the claim long enough to race
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{0.1, 0.9}
		}
		return vectors, nil
	}

	m, err := NewManager(docRepo, chunkRepo, embedder,
		WithClaimWait(5*time.Second, 10*time.Millisecond))
	require.NoError(t, err)

	const workers = 8
	results := make([][]core.ID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			embedded, err := m.EnsureEmbedded(context.Background(), []core.ID{doc.Id})
			assert.NoError(t, err)
			results[i] = embedded
		}()
	}
	wg.Wait()

	// Exactly one worker did the embedding work
	assert.Equal(t, int64(1), embedCalls.Load())

	// Everyone else waited for the winner and saw the document embedded
	for _, embedded := range results {
		assert.Equal(t, []core.ID{doc.Id}, embedded)
	}

	chunks, err := chunkRepo.GetChunks(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}

func TestEnsureEmbedded_SurvivesCallerCancellation(t *testing.T) {
	docRepo, chunkRepo, cleanup := newRepos(t)
	defer cleanup()

	doc := addDocument(t, docRepo, "document whose query goes away mid-embed")

	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(embedCtx context.Context, texts []string) ([][]float32, error) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		// The claimed work's context must not be the caller's
		if embedCtx.Err() != nil {
			return nil, embedCtx.Err()
		}
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{1}
		}
		return vectors, nil
	}

	m, err := NewManager(docRepo, chunkRepo, embedder)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.EnsureEmbedded(ctx, []core.ID{doc.Id})
	}()

	<-started
	cancel()
	<-done

	// The claim was won before the cancel, so the work completed
	require.Eventually(t, func() bool {
		stored, err := docRepo.GetDocument(context.Background(), doc.Id)
		return err == nil && stored.EmbeddingStatus == core.Embedded
	}, 3*time.Second, 20*time.Millisecond)
}

func TestEnsureEmbedded_EmptyInput(t *testing.T) {
	docRepo, chunkRepo, cleanup := newRepos(t)
	defer cleanup()

	m, err := NewManager(docRepo, chunkRepo, mock.NewMockEmbedder())
	require.NoError(t, err)

	embedded, err := m.EnsureEmbedded(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, embedded)
}

func TestEnsureEmbedded_UnknownDocumentSkipped(t *testing.T) {
	docRepo, chunkRepo, cleanup := newRepos(t)
	defer cleanup()

	m, err := NewManager(docRepo, chunkRepo, mock.NewMockEmbedder())
	require.NoError(t, err)

	embedded, err := m.EnsureEmbedded(context.Background(), []core.ID{999})
	require.NoError(t, err)
	assert.Empty(t, embedded)
}

func TestNewManager_Validation(t *testing.T) {
	docRepo, chunkRepo, cleanup := newRepos(t)
	defer cleanup()

	_, err := NewManager(nil, chunkRepo, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)

	_, err = NewManager(docRepo, nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	_, err = NewManager(docRepo, chunkRepo, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}
