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


// Package search is the query pipeline and the sole retrieval entry point.
//
// A query flows through four stages: the lexical filter shortlists documents
// by BM25 over metadata, the reranker narrows the shortlist with a learned
// relevance pass, the embedding manager lazily embeds whichever survivors
// still lack chunk embeddings, and predicate-filtered vector search scores
// the chunks. Final ranking is a hybrid of vector similarity and lexical
// score, with the best chunk per document kept for citation.
//
// The caller's access predicate is enforced at both scoring stages; a
// principal can never receive, or be influenced by, content outside their
// access.
package search
