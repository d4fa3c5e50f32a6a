// Package reembed provides functionality for rebuilding the chunk embeddings
// of an existing document corpus, typically after an embedding model change.
//
// This package supports batch processing of documents, progress tracking,
// and retry logic with exponential backoff. Embedding itself is delegated to
// the lazy embedding manager, so a forced rebuild uses the same claim
// protocol and failure isolation as query-driven embedding.
package reembed
