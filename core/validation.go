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


package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Fingerprint must match the text
//   - Access triple values must be in range
//   - EmbeddingStatus must be a known value
//
// NOT validated:
//   - ID (0 is valid from database sequences)
//   - Timestamps (populated by the storage layer)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyText)
	}

	if doc.Fingerprint != FingerprintText(doc.Text) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrFingerprintMismatch)
	}

	if err := ValidateAccessTriple(doc.Access); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if err := ValidateEmbeddingStatus(doc.EmbeddingStatus); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return nil
}

// ValidateMetadata validates a DocumentMetadata according to domain rules.
//
// Validation rules:
//   - DocumentId must be set
//   - Status must be a known value
//
// NOT validated (may legitimately be empty while Processing or degraded):
//   - Title, Category, Summary, Keywords
func ValidateMetadata(meta *DocumentMetadata) error {
	if meta == nil {
		return fmt.Errorf("%w: metadata is nil", ErrInvalidMetadata)
	}

	if meta.DocumentId == 0 {
		return fmt.Errorf("%w: document id required", ErrInvalidMetadata)
	}

	switch meta.Status {
	case MetadataProcessing, MetadataReady, MetadataFailed:
	default:
		return fmt.Errorf("%w: unknown status %d", ErrInvalidMetadata, meta.Status)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - DocumentId must be set
//   - Seq must be non-negative
//   - Text must not be empty
//   - Access triple values must be in range
//
// NOT validated:
//   - Vector (dimensionality is enforced by the embedding manager)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.DocumentId == 0 {
		return fmt.Errorf("%w: document id required", ErrInvalidChunk)
	}

	if chunk.Seq < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeChunkSeq)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}

	if err := ValidateAccessTriple(chunk.Access); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}

	return nil
}

// ValidateAccessTriple validates that an AccessTriple has known values.
func ValidateAccessTriple(t AccessTriple) error {
	switch t.Visibility {
	case VisibilityPublic, VisibilityInternal, VisibilityConfidential:
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidVisibility, t.Visibility)
	}

	switch t.Approval {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidApproval, t.Approval)
	}

	return nil
}

// ValidateEmbeddingStatus validates that an EmbeddingStatus has a known value.
func ValidateEmbeddingStatus(status EmbeddingStatus) error {
	switch status {
	case NotEmbedded, EmbeddingInProgress, Embedded, EmbeddingFailed:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidEmbeddingStatus, status)
	}
}
