package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"strings"

	"github.com/panjf2000/ants/v2"

	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/extract"
	"github.com/docentlabs/docent/storage"
)

// Pipeline is the document intake contract. It registers new and updated
// documents, queues metadata extraction on a worker pool, and applies
// access-triple changes in a way that can never serve chunks under an
// outdated triple.
type Pipeline struct {
	documents storage.DocumentRepository
	metadata  storage.MetadataRepository
	extractor *extract.Extractor
	pool      *ants.Pool
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for async extraction.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	metadata storage.MetadataRepository,
	extractor *extract.Extractor,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if metadata == nil {
		return nil, ErrMetadataRepositoryRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		documents: documents,
		metadata:  metadata,
		extractor: extractor,
		pool:      pool,
		logger:    slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Register adds new documents or updates existing ones.
//
// For a new document the record is stored cold (NotEmbedded) and extraction
// is queued async; a Processing metadata stub is written immediately so the
// document is shortlistable by title the moment a record exists.
//
// For an existing document with a changed content fingerprint, the text is
// replaced, the embedding status is explicitly reset (chunk set dropped in
// the same transaction), and extraction re-runs. An unchanged fingerprint
// only applies access changes via UpdateAccess semantics.
func (p *Pipeline) Register(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	registered := make([]*core.Document, 0, len(docs))

	for _, doc := range docs {
		stored, err := p.registerOne(ctx, doc)
		if err != nil {
			return registered, err
		}
		registered = append(registered, stored)
	}
	return registered, nil
}

func (p *Pipeline) registerOne(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if doc.Id != 0 {
		existing, err := p.documents.GetDocument(ctx, doc.Id)
		switch {
		case err == nil:
			return p.updateExisting(ctx, existing, doc)
		case errors.Is(err, storage.ErrNotFound):
			// fall through to insert
		default:
			return nil, err
		}
	}

	added, err := p.documents.AddDocuments(ctx, doc)
	if err != nil {
		return nil, err
	}
	stored := added[0]

	if err := p.putProcessingStub(ctx, stored); err != nil {
		return nil, err
	}
	p.queueExtraction(stored)

	p.logger.Info("document registered", "document", stored.Id)
	return stored, nil
}

func (p *Pipeline) updateExisting(ctx context.Context, existing, incoming *core.Document) (*core.Document, error) {
	newFingerprint := incoming.Fingerprint
	if newFingerprint == 0 {
		newFingerprint = core.FingerprintText(incoming.Text)
	}

	if newFingerprint == existing.Fingerprint {
		// Same text: only the access triple may have changed
		if incoming.Access != existing.Access {
			if err := p.UpdateAccess(ctx, existing.Id, incoming.Access); err != nil {
				return nil, err
			}
			return p.documents.GetDocument(ctx, existing.Id)
		}
		return existing, nil
	}

	existing.Text = incoming.Text
	existing.Fingerprint = newFingerprint
	existing.Access = incoming.Access
	updated, err := p.documents.UpdateDocuments(ctx, existing)
	if err != nil {
		return nil, err
	}
	stored := updated[0]

	// New text revision: old chunks must go, embeddings restart cold
	if err := p.documents.ResetEmbedding(ctx, stored.Id); err != nil {
		return nil, err
	}
	stored.EmbeddingStatus = core.NotEmbedded

	if err := p.putProcessingStub(ctx, stored); err != nil {
		return nil, err
	}
	p.queueExtraction(stored)

	p.logger.Info("document text updated", "document", stored.Id)
	return stored, nil
}

// UpdateAccess applies a new access triple to a document. The triple write
// and the chunk reset happen in one storage transaction: a chunk carrying
// the old denormalized triple must never coexist with the new one, so the
// document goes cold and the next query re-embeds it with the current
// triple.
func (p *Pipeline) UpdateAccess(ctx context.Context, id core.ID, triple core.AccessTriple) error {
	doc, err := p.documents.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc.Access == triple {
		return nil
	}

	if err := p.documents.UpdateAccess(ctx, id, triple); err != nil {
		return err
	}

	p.logger.Info("document access updated", "document", id)
	return nil
}

// putProcessingStub writes the mid-extraction metadata record. Its title is
// the document's first words so the lexical filter has something to rank.
func (p *Pipeline) putProcessingStub(ctx context.Context, doc *core.Document) error {
	return p.metadata.PutMetadata(ctx, &core.DocumentMetadata{
		DocumentId:  doc.Id,
		Title:       stubTitle(doc.Text),
		Status:      core.MetadataProcessing,
		Fingerprint: doc.Fingerprint,
	})
}

// queueExtraction submits async extraction for a document. Extraction errors
// are logged, never surfaced to the registering caller.
func (p *Pipeline) queueExtraction(doc *core.Document) {
	submitErr := p.pool.Submit(func() {
		ctx := context.Background()

		// Idempotency: a Ready record for this exact revision means a
		// concurrent worker got here first.
		if existing, err := p.metadata.GetMetadata(ctx, doc.Id); err == nil {
			if existing.Status == core.MetadataReady && existing.Fingerprint == doc.Fingerprint {
				return
			}
		}

		md, err := p.extractor.Extract(ctx, doc)
		if err != nil {
			p.logger.Error("metadata extraction failed", "document", doc.Id, "err", err)
			return
		}
		if err := p.metadata.PutMetadata(ctx, md); err != nil {
			p.logger.Error("failed to store metadata", "document", doc.Id, "err", err)
		}
	})
	if submitErr != nil {
		p.logger.Error("failed to queue extraction", "document", doc.Id, "err", submitErr)
	}
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// stubTitle returns the first few words of text for the Processing record.
func stubTitle(text string) string {
	const stubWords = 8

	fields := strings.Fields(text)
	if len(fields) > stubWords {
		fields = fields[:stubWords]
	}
	return strings.Join(fields, " ")
}
