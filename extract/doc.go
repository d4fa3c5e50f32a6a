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


// Package extract derives searchable metadata records from document text.
//
// Extraction runs in two layers. Deterministic heuristics always run: the
// first line becomes the title, known category names are matched in the
// text, and keywords are ranked by TF-IDF against the corpus seen so far.
// On top of that, an optional ai.MetadataEnricher supplies a better title,
// category, summary, and named entities under a bounded timeout.
//
// Enrichment is strictly best-effort. A slow or failing enricher degrades
// the record to heuristics only; it never fails extraction and never blocks
// past its timeout. Records therefore end in status Ready unless the
// document itself is unusable, in which case they end in Failed with a
// reason.
package extract
