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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidMetadata indicates a DocumentMetadata failed validation.
	ErrInvalidMetadata = errors.New("invalid document metadata")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyText indicates the Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidVisibility indicates an invalid VisibilityLevel value.
	ErrInvalidVisibility = errors.New("invalid visibility level")

	// ErrInvalidApproval indicates an invalid ApprovalState value.
	ErrInvalidApproval = errors.New("invalid approval state")

	// ErrInvalidEmbeddingStatus indicates an invalid EmbeddingStatus value.
	ErrInvalidEmbeddingStatus = errors.New("invalid embedding status")

	// ErrFingerprintMismatch indicates a document's fingerprint does not match
	// its text.
	ErrFingerprintMismatch = errors.New("fingerprint does not match text")

	// ErrNegativeChunkSeq indicates a chunk sequence index below zero.
	ErrNegativeChunkSeq = errors.New("chunk sequence cannot be negative")
)
