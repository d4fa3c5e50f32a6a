package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *ChunkRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// FindSimilarChunks delegates to the backend.
func (r *ChunkRepository) FindSimilarChunks(ctx context.Context, vector []float32, predicate core.AccessPredicate, minSimilarity float32, limit int) ([]*core.ChunkMatch, error) {
	return r.backend.FindSimilarChunks(ctx, vector, predicate, minSimilarity, limit)
}

// CommitChunks writes a document's complete chunk set and transitions the
// document to Embedded in one transaction. The stored chunk count is always
// 0 or the size of one complete chunking pass; a failure anywhere in this
// sequence discards the whole transaction.
func (r *ChunkRepository) CommitChunks(ctx context.Context, documentID core.ID, chunks []*core.Chunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		if doc.EmbeddingStatus != core.EmbeddingInProgress {
			return storage.ErrNotClaimed
		}

		// Replace, never append: leftover chunks from a previous pass must
		// not survive alongside the new set.
		if err := deleteChunksInTx(tx, documentID); err != nil {
			return err
		}

		for _, chunk := range chunks {
			key := makeChunkKey(chunk.DocumentId, chunk.Seq)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}

		doc.EmbeddingStatus = core.Embedded
		doc.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeDocumentKey(documentID), storage.MarshalDocument(doc)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// GetChunks retrieves a document's chunks ordered by sequence index.
func (r *ChunkRepository) GetChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkKey(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Keys sort by BigEndian seq, so iteration order is sequence order.
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var chunk *core.Chunk
			err := item.Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CountChunks returns the number of stored chunks for a document.
func (r *ChunkRepository) CountChunks(ctx context.Context, documentID core.ID) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkKey(documentID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteChunks removes a document's chunk set.
func (r *ChunkRepository) DeleteChunks(ctx context.Context, documentID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteChunksInTx(tx, documentID); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// deleteChunksInTx removes all chunk keys for a document inside an open
// write transaction. Keys are collected first, then deleted, because
// deleting under an open iterator is undefined.
func deleteChunksInTx(tx *badger.Txn, documentID core.ID) error {
	var keys [][]byte

	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkKey(documentID)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)

	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
