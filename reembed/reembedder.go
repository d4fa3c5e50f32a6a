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


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docentlabs/docent/ai"
	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/embedding"
	"github.com/docentlabs/docent/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of documents to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Parallelism bounds concurrent per-document embedding work
	Parallelism int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      50,
		ReportInterval: 50,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Parallelism:    4,
	}
}

// Reembedder rebuilds the chunk sets of every stored document. Each document
// is reset to the not-embedded state and then re-embedded through the lazy
// embedding manager, so a model change or a chunking change propagates to
// the whole corpus without waiting for queries to touch each document.
type Reembedder struct {
	documents storage.DocumentRepository
	config    *Config
	progress  io.Writer
	manager   *embedding.Manager
	iterator  *DocumentIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(documents storage.DocumentRepository, chunks storage.ChunkRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	// The manager's per-call budget must cover a whole batch: during a full
	// rebuild every document in the batch is cold.
	manager, err := embedding.NewManager(documents, chunks, embedder,
		embedding.WithMaxPerQuery(config.BatchSize),
		embedding.WithParallelism(config.Parallelism),
	)
	if err != nil {
		return nil, err
	}

	return &Reembedder{
		documents: documents,
		config:    config,
		progress:  progress,
		manager:   manager,
		iterator:  NewDocumentIterator(documents, config.BatchSize),
	}, nil
}

// Run executes the reembedding operation.
// Every document in the database is reset and re-embedded with the configured
// embedder. A document whose embedding fails is left in the failed state for
// the next query to retry; it does not abort the run.
func (r *Reembedder) Run(ctx context.Context) error {
	startTime := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(2100, 12, 31, 23, 59, 59, 0, time.UTC)

	allDocs, err := r.documents.GetDocumentsByDateRange(ctx, startTime, endTime)
	if err != nil {
		return fmt.Errorf("failed to query documents: %w", err)
	}

	total := len(allDocs)
	if total == 0 {
		fmt.Fprintf(r.progress, "No documents found in database (0 documents)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d documents (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	failed := 0

	err = r.iterator.ForEach(ctx, func(docs []*core.Document) error {
		ids := make([]core.ID, len(docs))
		for i, doc := range docs {
			ids[i] = doc.Id

			// Reset drops the old chunk set; the manager then re-embeds the
			// document as a cold claim.
			resetErr := RetryWithBackoff(ctx, func() error {
				return r.documents.ResetEmbedding(ctx, doc.Id)
			}, r.config.MaxRetries, r.config.RetryDelay)
			if resetErr != nil {
				return fmt.Errorf("failed to reset document %v: %w", doc.Id, resetErr)
			}
		}

		embedded, err := r.manager.EnsureEmbedded(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		failed += len(ids) - len(embedded)

		processed += len(docs)
		tracker.Update(processed)

		return nil
	})

	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d documents in %v (%.1f documents/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())
	if failed > 0 {
		fmt.Fprintf(r.progress, "%d documents failed to embed and were left for lazy retry\n", failed)
	}

	return nil
}
