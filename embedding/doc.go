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


// Package embedding implements lazy, on-demand chunk embedding.
//
// Documents are never embedded at ingestion time. The Manager embeds a
// document the first time a query actually needs it, coordinating concurrent
// queries through an atomic storage-level claim so each text revision is
// embedded at most once. Claim losers wait briefly for the winner; a query
// embeds at most a bounded number of cold documents, deferring the rest.
//
// Chunking is adaptive: chunk size and overlap scale with document length,
// and the chunk count per document is capped. A document's chunk set is
// written in one atomic batch together with its status transition, so
// observers see either no chunks or a complete, current set, never a partial
// one.
package embedding
