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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrClaimLost indicates the caller lost a concurrent race for the
	// embedding claim and must not perform the work.
	ErrClaimLost = errors.New("embedding claim lost")

	// ErrAlreadyClaimed indicates another worker currently holds the
	// embedding claim for the document.
	ErrAlreadyClaimed = errors.New("embedding already claimed")

	// ErrAlreadyEmbedded indicates the document already has a complete,
	// current chunk set; no claim is needed.
	ErrAlreadyEmbedded = errors.New("document already embedded")

	// ErrStaleFingerprint indicates the caller's fingerprint no longer
	// matches the document's current text revision.
	ErrStaleFingerprint = errors.New("stale content fingerprint")

	// ErrNotClaimed indicates a chunk commit or failure mark was attempted
	// by a caller that does not hold the embedding claim.
	ErrNotClaimed = errors.New("embedding claim not held")

	// ErrTransactionFailed indicates that a transaction failed.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)
