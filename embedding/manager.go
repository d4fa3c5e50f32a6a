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


package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docentlabs/docent/ai"
	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/storage"
)

const (
	// defaultMaxPerQuery caps how many cold documents one query will embed.
	defaultMaxPerQuery = 5

	// defaultClaimWait bounds how long a loser waits for the claim winner
	// to finish before giving up on that document for this query.
	defaultClaimWait = 20 * time.Second

	// defaultClaimPoll is the poll interval while waiting for a winner.
	defaultClaimPoll = 250 * time.Millisecond

	// defaultStaleClaimAfter is the lease age after which an
	// EmbeddingInProgress claim is considered abandoned and reclaimable.
	defaultStaleClaimAfter = 5 * time.Minute

	// defaultParallelism bounds concurrent embedding work per call.
	defaultParallelism = 4
)

// Manager is the lazy embedding manager. Embeddings are computed on first
// need: EnsureEmbedded brings a set of documents to the Embedded state,
// doing at most MaxPerQuery cold embeddings per call and coordinating with
// concurrent callers through the storage-level claim.
//
// One document's failure never fails the batch; it is marked
// EmbeddingFailed and the next query that selects it may retry.
type Manager struct {
	documents   storage.DocumentRepository
	chunks      storage.ChunkRepository
	embedder    ai.Embedder
	maxPerQuery int
	claimWait   time.Duration
	claimPoll   time.Duration
	staleAfter  time.Duration
	parallelism int
	logger      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager) error

// WithMaxPerQuery caps the number of cold documents embedded per
// EnsureEmbedded call. Default is 5.
func WithMaxPerQuery(max int) Option {
	return func(m *Manager) error {
		if max < 1 {
			max = 1
		}
		m.maxPerQuery = max
		return nil
	}
}

// WithClaimWait bounds how long to wait for a concurrent claim holder to
// finish a document before skipping it. Default is 20 seconds.
func WithClaimWait(wait, poll time.Duration) Option {
	return func(m *Manager) error {
		if wait > 0 {
			m.claimWait = wait
		}
		if poll > 0 {
			m.claimPoll = poll
		}
		return nil
	}
}

// WithStaleClaimAfter sets the lease age after which an abandoned claim may
// be taken over. Default is 5 minutes.
func WithStaleClaimAfter(age time.Duration) Option {
	return func(m *Manager) error {
		if age > 0 {
			m.staleAfter = age
		}
		return nil
	}
}

// WithParallelism bounds concurrent per-document embedding work.
// Default is 4.
func WithParallelism(n int) Option {
	return func(m *Manager) error {
		if n < 1 {
			n = 1
		}
		m.parallelism = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger.With("component", "embedding-manager")
		return nil
	}
}

// NewManager creates a lazy embedding manager.
func NewManager(documents storage.DocumentRepository, chunks storage.ChunkRepository, embedder ai.Embedder, opts ...Option) (*Manager, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	m := &Manager{
		documents:   documents,
		chunks:      chunks,
		embedder:    embedder,
		maxPerQuery: defaultMaxPerQuery,
		claimWait:   defaultClaimWait,
		claimPoll:   defaultClaimPoll,
		staleAfter:  defaultStaleClaimAfter,
		parallelism: defaultParallelism,
		logger:      slog.Default().With("component", "embedding-manager"),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// EnsureEmbedded brings the given documents to the Embedded state where
// possible, in the order given: earlier documents are the better-ranked
// ones and get the per-query embedding budget first.
//
// At most MaxPerQuery cold documents are embedded; documents beyond the
// budget are left for a later query. Per-document failures are recorded on
// the document and logged, never returned. The returned IDs are the
// documents that are Embedded (with a current chunk set) when the call
// finishes; callers search over those.
func (m *Manager) EnsureEmbedded(ctx context.Context, ids []core.ID) ([]core.ID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var coldBudget atomic.Int64
	coldBudget.Store(int64(m.maxPerQuery))

	ready := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.parallelism)
	for i, id := range ids {
		g.Go(func() error {
			ok, err := m.ensureOne(gctx, id, &coldBudget)
			if err != nil {
				// Only context errors propagate; per-document failures
				// are absorbed by ensureOne.
				return err
			}
			ready[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	embedded := make([]core.ID, 0, len(ids))
	for i, id := range ids {
		if ready[i] {
			embedded = append(embedded, id)
		}
	}
	return embedded, nil
}

// ensureOne drives a single document to Embedded if it can. Returns whether
// the document is embedded with a current chunk set. Errors are returned
// only for context cancellation.
func (m *Manager) ensureOne(ctx context.Context, id core.ID, coldBudget *atomic.Int64) (bool, error) {
	doc, err := m.documents.GetDocument(ctx, id)
	if err != nil {
		m.logger.Warn("document not readable, skipping", "document", id, "err", err)
		return false, nil
	}

	if doc.EmbeddingStatus == core.Embedded {
		return true, nil
	}

	// Cold document: spend budget before claiming so a query never does
	// unbounded embedding work.
	if coldBudget.Add(-1) < 0 {
		coldBudget.Add(1)
		m.logger.Debug("embedding budget exhausted, deferring document", "document", id)
		return false, nil
	}

	status, err := m.documents.ClaimEmbedding(ctx, id, doc.Fingerprint, m.staleAfter)
	switch {
	case err == nil:
		// Claim won: the work must complete even if the query that
		// triggered it is cancelled.
		return m.embedClaimed(context.WithoutCancel(ctx), doc), nil

	case errors.Is(err, storage.ErrAlreadyEmbedded):
		coldBudget.Add(1)
		return true, nil

	case errors.Is(err, storage.ErrAlreadyClaimed), errors.Is(err, storage.ErrClaimLost):
		coldBudget.Add(1)
		m.logger.Debug("embedding claim held elsewhere, waiting",
			"document", id, "observed", status)
		return m.waitForWinner(ctx, id)

	case errors.Is(err, storage.ErrStaleFingerprint):
		coldBudget.Add(1)
		m.logger.Debug("document text changed under the query, skipping", "document", id)
		return false, nil

	default:
		coldBudget.Add(1)
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		m.logger.Warn("embedding claim failed", "document", id, "err", err)
		return false, nil
	}
}

// embedClaimed chunks and embeds a document the caller holds the claim for.
// On any failure the document is marked EmbeddingFailed and left with zero
// chunks; there is no partial state.
func (m *Manager) embedClaimed(ctx context.Context, doc *core.Document) bool {
	start := time.Now()

	err := m.embedDocument(ctx, doc)
	if err != nil {
		m.logger.Error("embedding failed", "document", doc.Id, "err", err)
		if markErr := m.documents.MarkEmbeddingFailed(ctx, doc.Id); markErr != nil {
			m.logger.Error("failed to record embedding failure",
				"document", doc.Id, "err", markErr)
		}
		return false
	}

	m.logger.Info("document embedded",
		"document", doc.Id,
		"took", time.Since(start))
	return true
}

func (m *Manager) embedDocument(ctx context.Context, doc *core.Document) error {
	texts := chunkText(doc.Text)
	if len(texts) == 0 {
		return ErrEmptyChunkSet
	}

	vectors, err := m.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: %d texts, %d vectors", ErrVectorCountMismatch, len(texts), len(vectors))
	}

	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			DocumentId:  doc.Id,
			Seq:         i,
			Text:        text,
			Vector:      NormalizeVector(vectors[i]),
			Access:      doc.Access,
			Fingerprint: doc.Fingerprint,
		}
	}

	// One atomic batch: old chunks out, new chunks in, status to Embedded
	if err := m.chunks.CommitChunks(ctx, doc.Id, chunks); err != nil {
		return fmt.Errorf("committing chunk set: %w", err)
	}
	return nil
}

// waitForWinner polls a document whose claim another worker holds, up to
// claimWait. Returns true once the winner has finished successfully; false
// if the winner failed, the wait timed out, or the context was cancelled.
func (m *Manager) waitForWinner(ctx context.Context, id core.ID) (bool, error) {
	deadline := time.Now().Add(m.claimWait)
	ticker := time.NewTicker(m.claimPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}

		doc, err := m.documents.GetDocument(ctx, id)
		if err != nil {
			m.logger.Warn("document vanished while waiting for embedding", "document", id, "err", err)
			return false, nil
		}

		switch doc.EmbeddingStatus {
		case core.Embedded:
			return true, nil
		case core.EmbeddingFailed, core.NotEmbedded:
			m.logger.Debug("claim winner did not produce embeddings", "document", id)
			return false, nil
		}

		if time.Now().After(deadline) {
			m.logger.Warn("timed out waiting for embedding claim winner", "document", id)
			return false, nil
		}
	}
}
