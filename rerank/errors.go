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


package rerank

import "errors"

var (
	// ErrMetadataRepositoryRequired is returned when no metadata repository is provided.
	ErrMetadataRepositoryRequired = errors.New("metadata repository is required")

	// ErrInvalidLimit is returned when the rerank limit is not positive.
	ErrInvalidLimit = errors.New("limit must be positive")
)
