package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// MetadataEnricher derives structured metadata fields from document text.
// It is best-effort: callers must treat errors and timeouts as a signal to
// fall back to heuristic extraction, never as fatal.
// Implementations must be thread-safe for concurrent use.
type MetadataEnricher interface {
	// Enrich analyzes document text and returns a title, category, summary,
	// and named entities. Returns an error if enrichment fails; callers are
	// expected to degrade gracefully.
	Enrich(ctx context.Context, text string) (*Enrichment, error)
}

// Enrichment is the structured result of a metadata enrichment pass.
type Enrichment struct {
	// Title is a short human-readable document title.
	Title string

	// Category classifies the document. Must match one of the predefined
	// document categories.
	Category string

	// Summary is a 1-3 sentence free-text summary.
	Summary string

	// Entities are named entities mentioned in the document, lowercase.
	Entities []string
}

// RelevanceScorer rates how relevant each candidate document is to a query.
// Implementations must be thread-safe for concurrent use.
type RelevanceScorer interface {
	// ScoreCandidates receives the query and one description per candidate
	// (title, keywords, summary) and returns one score per candidate, in
	// input order, each in the range [0, 1].
	// Returns an error if scoring fails; callers degrade to a local
	// heuristic.
	ScoreCandidates(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder, MetadataEnricher, and
// RelevanceScorer instances, ensuring they share configuration and resources
// appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Enricher returns the metadata enrichment service.
	// The returned MetadataEnricher is safe for concurrent use.
	Enricher() MetadataEnricher

	// Scorer returns the relevance scoring service.
	// The returned RelevanceScorer is safe for concurrent use.
	Scorer() RelevanceScorer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
