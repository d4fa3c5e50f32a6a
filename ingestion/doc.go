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


// Package ingestion implements the document intake contract.
//
// Registration stores documents cold: no embeddings are computed, only a
// Processing metadata stub is written synchronously so the document is
// immediately shortlistable by its opening words. Full metadata extraction
// runs asynchronously on a worker pool and replaces the stub when done.
//
// A changed content fingerprint resets the document's embedding lifecycle and
// re-queues extraction. An access-triple change also resets the chunk set:
// chunks denormalize their triple at embed time, so the only safe way to
// apply a new triple is to drop the old chunks and let the next query
// re-embed under the current one.
package ingestion
