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


package docent

import (
	"context"
	"io"
	"log/slog"

	"github.com/docentlabs/docent/ai"
	"github.com/docentlabs/docent/ai/openai"
	"github.com/docentlabs/docent/core"
	"github.com/docentlabs/docent/embedding"
	"github.com/docentlabs/docent/extract"
	"github.com/docentlabs/docent/ingestion"
	"github.com/docentlabs/docent/lexical"
	"github.com/docentlabs/docent/reembed"
	"github.com/docentlabs/docent/rerank"
	"github.com/docentlabs/docent/search"
	"github.com/docentlabs/docent/storage"
	"github.com/docentlabs/docent/storage/badger"
)

type Database struct {
	backend      *badger.Backend
	documentRepo storage.DocumentRepository
	metadataRepo storage.MetadataRepository
	chunkRepo    storage.ChunkRepository
	provider     ai.AIProvider
	logger       *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
}

// WithAIConfig sets the AI service configuration used to construct the
// default OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithAIProvider supplies a pre-built AI provider instead of constructing
// one from the AI configuration.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	documentRepo := badger.NewDocumentRepository(backend)
	metadataRepo := badger.NewMetadataRepository(backend)
	chunkRepo := badger.NewChunkRepository(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:      backend,
		documentRepo: documentRepo,
		metadataRepo: metadataRepo,
		chunkRepo:    chunkRepo,
		provider:     provider,
		logger:       slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.documentRepo
}

func (db *Database) MetadataRepository() storage.MetadataRepository {
	return db.metadataRepo
}

func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.chunkRepo
}

// NewIngestionPipeline creates an ingestion pipeline over the database's
// repositories and AI provider.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	extractor, err := extract.NewExtractor(db.provider.Enricher())
	if err != nil {
		return nil, err
	}
	return ingestion.NewPipeline(db.documentRepo, db.metadataRepo, extractor, opts...)
}

// NewSearcher creates a searcher wired through every retrieval stage: the
// lexical index, the learned reranker, the lazy embedding manager, and the
// chunk store.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	index, err := lexical.NewIndex(db.documentRepo, db.metadataRepo)
	if err != nil {
		return nil, err
	}

	reranker, err := rerank.NewReranker(db.metadataRepo,
		rerank.WithStrategy(rerank.NewScorerStrategy(db.provider.Scorer())))
	if err != nil {
		return nil, err
	}

	manager, err := embedding.NewManager(db.documentRepo, db.chunkRepo, db.provider.Embedder())
	if err != nil {
		return nil, err
	}

	return search.NewSearcher(index, reranker, manager, db.chunkRepo, db.provider.Embedder(), opts...)
}

// NewReembedder creates a reembedder that rebuilds every document's chunk
// set with the database's embedder.
// progress: where to write progress output (typically os.Stderr)
func (db *Database) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(db.documentRepo, db.chunkRepo, db.provider.Embedder(), config, progress)
}

// EmbeddingStatus reports a document's embedding lifecycle state and its
// stored chunk count.
func (db *Database) EmbeddingStatus(ctx context.Context, id core.ID) (core.EmbeddingStatus, int, error) {
	doc, err := db.documentRepo.GetDocument(ctx, id)
	if err != nil {
		return 0, 0, err
	}

	count, err := db.chunkRepo.CountChunks(ctx, id)
	if err != nil {
		return 0, 0, err
	}

	return doc.EmbeddingStatus, count, nil
}
