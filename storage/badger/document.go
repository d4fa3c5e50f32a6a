package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
//
// The embedding claim methods lean on Badger's transaction conflict
// detection: two transactions that both read and write the same document key
// cannot both commit, so exactly one concurrent claimant wins.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *DocumentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddDocuments adds one or more documents to storage.
func (r *DocumentRepository) AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			if doc.Fingerprint == 0 {
				doc.Fingerprint = core.FingerprintText(doc.Text)
			}
			if doc.Id == 0 {
				doc.Id = core.IDFromContent(doc.Text)
			}
			if doc.EmbeddingStatus == 0 {
				doc.EmbeddingStatus = core.NotEmbedded
			}

			doc.InsertedAt = time.Now().UTC()
			doc.UpdatedAt = doc.InsertedAt

			key := makeDocumentKey(doc.Id)
			if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
				return err
			}

			dateKey := makeDocumentDateKey(doc.InsertedAt, doc.Id)
			if err := tx.Set(dateKey, storage.MarshalID(doc.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return docs, err
}

// UpdateDocuments updates existing documents.
// The embedding status is carried over from storage: lifecycle transitions go
// through ClaimEmbedding / MarkEmbeddingFailed / ResetEmbedding exclusively.
func (r *DocumentRepository) UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			old, err := readDocument(tx, doc.Id)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			doc.InsertedAt = old.InsertedAt
			doc.EmbeddingStatus = old.EmbeddingStatus
			doc.UpdatedAt = time.Now().UTC()
			if doc.Fingerprint == 0 {
				doc.Fingerprint = core.FingerprintText(doc.Text)
			}

			key := makeDocumentKey(doc.Id)
			if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return docs, err
}

// DeleteDocuments removes documents by their IDs.
// Deletion cascades to the metadata record and the chunk set.
func (r *DocumentRepository) DeleteDocuments(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, id)
			if err != nil {
				return err
			}
			if doc == nil {
				return storage.ErrNotFound
			}

			dateKey := makeDocumentDateKey(doc.InsertedAt, doc.Id)
			if err := tx.Delete(dateKey); err != nil {
				return err
			}

			if err := tx.Delete(makeMetadataKey(id)); err != nil {
				return err
			}

			if err := deleteChunksInTx(tx, id); err != nil {
				return err
			}

			if err := tx.Delete(makeDocumentKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetDocuments retrieves multiple documents by their IDs.
// Missing documents are skipped, not an error.
func (r *DocumentRepository) GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error) {
	results := make([]*core.Document, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, id)
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetDocumentsByDateRange retrieves documents within an insertion-time range.
func (r *DocumentRepository) GetDocumentsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentDatePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		startKey := makePartialDocumentDateKey(start)
		endKey := makePartialDocumentDateKey(end)

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			item := iter.Item()
			if string(item.Key()) >= string(endKey) {
				break
			}

			var id core.ID
			err := item.Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			doc, err := readDocument(tx, id)
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ClaimEmbedding atomically transitions a document into EmbeddingInProgress.
func (r *DocumentRepository) ClaimEmbedding(ctx context.Context, id core.ID, fingerprint core.Fingerprint, staleAfter time.Duration) (core.EmbeddingStatus, error) {
	var observed core.EmbeddingStatus

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		observed = doc.EmbeddingStatus

		if doc.Fingerprint != fingerprint {
			return storage.ErrStaleFingerprint
		}

		switch doc.EmbeddingStatus {
		case core.Embedded:
			return storage.ErrAlreadyEmbedded
		case core.EmbeddingInProgress:
			// A claim older than staleAfter belongs to a crashed worker and
			// may be taken over.
			if staleAfter <= 0 || time.Since(doc.UpdatedAt) < staleAfter {
				return storage.ErrAlreadyClaimed
			}
		case core.NotEmbedded, core.EmbeddingFailed:
			// claimable
		}

		doc.EmbeddingStatus = core.EmbeddingInProgress
		doc.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeDocumentKey(id), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		return observed, storage.ErrClaimLost
	}
	return observed, err
}

// MarkEmbeddingFailed transitions a claimed document to EmbeddingFailed.
func (r *DocumentRepository) MarkEmbeddingFailed(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		if doc.EmbeddingStatus != core.EmbeddingInProgress {
			return storage.ErrNotClaimed
		}

		doc.EmbeddingStatus = core.EmbeddingFailed
		doc.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeDocumentKey(id), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ResetEmbedding explicitly transitions a document back to NotEmbedded and
// removes its chunk set in the same transaction.
func (r *DocumentRepository) ResetEmbedding(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := deleteChunksInTx(tx, id); err != nil {
			return err
		}

		doc.EmbeddingStatus = core.NotEmbedded
		doc.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeDocumentKey(id), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// UpdateAccess rewrites the access triple, drops the chunk set and resets
// the embedding status in one transaction. A reader never observes the new
// triple on the document while chunks denormalizing the old triple remain.
func (r *DocumentRepository) UpdateAccess(ctx context.Context, id core.ID, triple core.AccessTriple) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := deleteChunksInTx(tx, id); err != nil {
			return err
		}

		doc.Access = triple
		doc.EmbeddingStatus = core.NotEmbedded
		doc.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeDocumentKey(id), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
