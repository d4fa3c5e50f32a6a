package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/storage"
)

// MetadataRepository implements storage.MetadataRepository for BadgerDB.
type MetadataRepository struct {
	backend *Backend
}

var _ storage.MetadataRepository = (*MetadataRepository)(nil)

// NewMetadataRepository creates a new MetadataRepository.
func NewMetadataRepository(backend *Backend) *MetadataRepository {
	return &MetadataRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *MetadataRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *MetadataRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutMetadata inserts or replaces the metadata record for a document.
func (r *MetadataRepository) PutMetadata(ctx context.Context, meta *core.DocumentMetadata) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readMetadata(tx, meta.DocumentId)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if old != nil {
			meta.InsertedAt = old.InsertedAt
		} else {
			meta.InsertedAt = now
		}
		meta.UpdatedAt = now

		key := makeMetadataKey(meta.DocumentId)
		if err := tx.Set(key, storage.MarshalMetadata(meta)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetMetadata retrieves the metadata record for a document.
func (r *MetadataRepository) GetMetadata(ctx context.Context, documentID core.ID) (*core.DocumentMetadata, error) {
	var result *core.DocumentMetadata
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readMetadata(tx, documentID)
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

// ListMetadata retrieves all metadata records.
func (r *MetadataRepository) ListMetadata(ctx context.Context) ([]*core.DocumentMetadata, error) {
	var results []*core.DocumentMetadata
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metadataPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			var meta *core.DocumentMetadata
			err := item.Value(func(val []byte) error {
				var err error
				meta, err = storage.UnmarshalMetadata(val)
				return err
			})
			if err != nil {
				return err
			}
			if meta != nil {
				results = append(results, meta)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteMetadata removes the metadata record for a document.
// Missing records are not an error.
func (r *MetadataRepository) DeleteMetadata(ctx context.Context, documentID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeMetadataKey(documentID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readMetadata reads a metadata record inside an open transaction.
// Returns nil, nil if the record does not exist.
func readMetadata(tx *badger.Txn, documentID core.ID) (*core.DocumentMetadata, error) {
	item, err := tx.Get(makeMetadataKey(documentID))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var meta *core.DocumentMetadata
	err = item.Value(func(val []byte) error {
		var err error
		meta, err = storage.UnmarshalMetadata(val)
		return err
	})
	return meta, err
}
