package storage

import (
	"context"
	"time"

	"github.com/docentlabs/docent/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing documents and their
// embedding lifecycle. The embedding status transitions it exposes are the
// concurrency primitive of the lazy embedding manager: they are atomic
// compare-and-set operations at the storage layer, never check-then-act at
// the application layer.
type DocumentRepository interface {
	Repository

	// AddDocuments adds one or more documents to storage.
	// For documents with Id=0, derives a content-based ID from the text.
	// Sets InsertedAt/UpdatedAt timestamps and EmbeddingStatus=NotEmbedded
	// if unset. Returns the documents with IDs and timestamps populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// UpdateDocuments updates existing documents (text, fingerprint, access
	// triple). A fingerprint change does NOT implicitly reset the embedding
	// status; callers reset it explicitly via ResetEmbedding.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// DeleteDocuments removes documents by their IDs. Deletion cascades to
	// the document's metadata record and chunk set.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// GetDocumentsByDateRange retrieves documents within an insertion-time
	// range. Returns documents where start <= InsertedAt < end, ordered by
	// insertion time.
	GetDocumentsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Document, error)

	// ClaimEmbedding atomically transitions a document from NotEmbedded or
	// EmbeddingFailed to EmbeddingInProgress. An EmbeddingInProgress claim
	// older than staleAfter may also be reclaimed (a crashed worker's lease
	// expires). The fingerprint must match the document's current
	// fingerprint, otherwise ErrStaleFingerprint is returned.
	//
	// Exactly one concurrent caller wins; losers receive ErrClaimLost (lost
	// the storage-level race) or ErrAlreadyClaimed (another worker holds the
	// claim), along with the document's observed status.
	ClaimEmbedding(ctx context.Context, id core.ID, fingerprint core.Fingerprint, staleAfter time.Duration) (core.EmbeddingStatus, error)

	// MarkEmbeddingFailed transitions a document from EmbeddingInProgress to
	// EmbeddingFailed. Called by the claim holder on any embedding error.
	MarkEmbeddingFailed(ctx context.Context, id core.ID) error

	// ResetEmbedding explicitly transitions a document back to NotEmbedded
	// and removes its chunk set. Used on content-fingerprint changes and for
	// explicit re-embed requests.
	ResetEmbedding(ctx context.Context, id core.ID) error

	// UpdateAccess applies a new access triple to a document in a single
	// transaction: the triple is written, the chunk set is removed, and the
	// embedding status returns to NotEmbedded. Chunks carrying the old
	// denormalized triple never coexist with the new triple in storage.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateAccess(ctx context.Context, id core.ID, triple core.AccessTriple) error
}

// MetadataRepository provides operations for the one-to-one document
// metadata records produced by the extractor.
type MetadataRepository interface {
	Repository

	// PutMetadata inserts or replaces the metadata record for a document.
	// Sets InsertedAt on first write, updates UpdatedAt always.
	PutMetadata(ctx context.Context, meta *core.DocumentMetadata) error

	// GetMetadata retrieves the metadata record for a document.
	// Returns ErrNotFound if no record exists.
	GetMetadata(ctx context.Context, documentID core.ID) (*core.DocumentMetadata, error)

	// ListMetadata retrieves all metadata records. The lexical filter uses
	// this to build its per-cycle index; the corpus is small enough (tens of
	// thousands of compact records) that a full scan is acceptable.
	ListMetadata(ctx context.Context) ([]*core.DocumentMetadata, error)

	// DeleteMetadata removes the metadata record for a document.
	// Missing records are not an error.
	DeleteMetadata(ctx context.Context, documentID core.ID) error
}

// ChunkRepository provides operations for chunk sets and predicate-filtered
// vector similarity search.
type ChunkRepository interface {
	Repository

	// CommitChunks writes a document's complete chunk set and transitions
	// the document to Embedded in one atomic batch. Any previously stored
	// chunks for the document are removed in the same transaction, so the
	// stored chunk count is always 0 or the size of one complete chunking
	// pass. The caller must hold the embedding claim.
	CommitChunks(ctx context.Context, documentID core.ID, chunks []*core.Chunk) error

	// GetChunks retrieves a document's chunks ordered by sequence index.
	// Returns an empty slice if the document has no chunks.
	GetChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// CountChunks returns the number of stored chunks for a document.
	CountChunks(ctx context.Context, documentID core.ID) (int, error)

	// DeleteChunks removes a document's chunk set.
	DeleteChunks(ctx context.Context, documentID core.ID) error

	// FindSimilarChunks finds chunks similar to the given vector, restricted
	// to chunks whose denormalized access triple satisfies the predicate and
	// whose fingerprint matches the parent document's current fingerprint
	// (stale chunks are excluded, not returned under an outdated triple).
	// The predicate is applied before scoring; inaccessible chunks are never
	// scored. Returns chunks with similarity >= minSimilarity, up to limit,
	// ordered by similarity score (highest first).
	FindSimilarChunks(ctx context.Context, vector []float32, predicate core.AccessPredicate, minSimilarity float32, limit int) ([]*core.ChunkMatch, error)
}
