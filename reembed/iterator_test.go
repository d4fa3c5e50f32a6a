package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func addDocuments(t *testing.T, repo storage.DocumentRepository, count int) []*core.Document {
	t.Helper()
	docs := make([]*core.Document, count)
	for i := range docs {
		docs[i] = &core.Document{
			Text: fmt.Sprintf("Circular %d on examination schedules for the winter term.", i),
			Access: core.AccessTriple{
				Visibility:    core.VisibilityPublic,
				InstitutionID: 1,
				Approval:      core.ApprovalApproved,
			},
		}
	}
	added, err := repo.AddDocuments(context.Background(), docs...)
	require.NoError(t, err)
	return added
}

func TestDocumentIterator_VisitsAllDocuments(t *testing.T) {
	docRepo, _, cleanup := newRepos(t)
	defer cleanup()

	addDocuments(t, docRepo, 7)

	iterator := NewDocumentIterator(docRepo, 3)

	var batchSizes []int
	seen := make(map[core.ID]bool)
	err := iterator.ForEach(context.Background(), func(batch []*core.Document) error {
		batchSizes = append(batchSizes, len(batch))
		for _, doc := range batch {
			seen[doc.Id] = true
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 1}, batchSizes)
	assert.Len(t, seen, 7)
}

func TestDocumentIterator_EmptyDatabase(t *testing.T) {
	docRepo, _, cleanup := newRepos(t)
	defer cleanup()

	iterator := NewDocumentIterator(docRepo, 10)

	calls := 0
	err := iterator.ForEach(context.Background(), func(batch []*core.Document) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestDocumentIterator_StopsOnError(t *testing.T) {
	docRepo, _, cleanup := newRepos(t)
	defer cleanup()

	addDocuments(t, docRepo, 5)

	iterator := NewDocumentIterator(docRepo, 2)

	expectedErr := errors.New("batch failed")
	calls := 0
	err := iterator.ForEach(context.Background(), func(batch []*core.Document) error {
		calls++
		return expectedErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 1, calls)
}

func TestDocumentIterator_ContextCancellation(t *testing.T) {
	docRepo, _, cleanup := newRepos(t)
	defer cleanup()

	addDocuments(t, docRepo, 6)

	iterator := NewDocumentIterator(docRepo, 2)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := iterator.ForEach(ctx, func(batch []*core.Document) error {
		calls++
		cancel()
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNewDocumentIterator_DefaultsBatchSize(t *testing.T) {
	docRepo, _, cleanup := newRepos(t)
	defer cleanup()

	iterator := NewDocumentIterator(docRepo, 0)
	assert.Equal(t, DefaultBatchSize, iterator.batchSize)
}
