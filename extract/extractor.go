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


package extract

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/docentlabs/docent/ai"
	"github.com/docentlabs/docent/core"
)

const (
	// defaultKeywordLimit caps the number of keywords per metadata record.
	defaultKeywordLimit = 8

	// defaultEnrichTimeout bounds the best-effort enrichment call.
	defaultEnrichTimeout = 15 * time.Second

	// maxTitleWords caps heuristic titles.
	maxTitleWords = 12
)

// Extractor derives DocumentMetadata from document text. Heuristics (title,
// category, keywords) always run and are deterministic; enrichment via an
// ai.MetadataEnricher is best-effort under a bounded timeout and only ever
// improves the record. A failed enrichment still yields a Ready record.
type Extractor struct {
	enricher      ai.MetadataEnricher
	corpus        *corpusStats
	keywordLimit  int
	enrichTimeout time.Duration
	logger        *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithKeywordLimit sets the maximum number of keywords per record.
// Default is 8.
func WithKeywordLimit(limit int) Option {
	return func(e *Extractor) error {
		if limit < 1 {
			limit = 1
		}
		e.keywordLimit = limit
		return nil
	}
}

// WithEnrichTimeout bounds each enrichment call. When the timeout elapses the
// record is finished from heuristics alone. Default is 15 seconds.
func WithEnrichTimeout(timeout time.Duration) Option {
	return func(e *Extractor) error {
		if timeout > 0 {
			e.enrichTimeout = timeout
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "extractor")
		return nil
	}
}

// NewExtractor creates a metadata extractor. The enricher may be nil, in
// which case records are built from heuristics only.
func NewExtractor(enricher ai.MetadataEnricher, opts ...Option) (*Extractor, error) {
	e := &Extractor{
		enricher:      enricher,
		corpus:        newCorpusStats(),
		keywordLimit:  defaultKeywordLimit,
		enrichTimeout: defaultEnrichTimeout,
		logger:        slog.Default().With("component", "extractor"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Extract builds the metadata record for a document.
//
// Content problems (empty text) produce a record with status MetadataFailed
// and a FailReason instead of an error, so one bad document never disturbs
// the batch it arrived in. An error is returned only for nil input or a
// cancelled context.
//
// Extraction is idempotent per text revision: the returned record carries the
// document's fingerprint, and callers skip re-extraction when an existing
// record already matches it.
func (e *Extractor) Extract(ctx context.Context, doc *core.Document) (*core.DocumentMetadata, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	md := &core.DocumentMetadata{
		DocumentId:  doc.Id,
		Fingerprint: doc.Fingerprint,
	}

	text := strings.TrimSpace(doc.Text)
	if text == "" {
		md.Status = core.MetadataFailed
		md.FailReason = "document text is empty"
		e.logger.Warn("extraction failed", "document", doc.Id, "reason", md.FailReason)
		return md, nil
	}

	terms := tokenize(text)
	e.corpus.observe(terms)

	md.Title = heuristicTitle(text)
	md.Category = heuristicCategory(text)
	md.Keywords = extractKeywords(terms, e.corpus, e.keywordLimit)
	md.Status = core.MetadataReady

	// Organizational units are strong search terms even when rare
	for _, unit := range organizationalUnits(text) {
		if !slices.Contains(md.Keywords, unit) {
			md.Keywords = append(md.Keywords, unit)
		}
	}

	e.enrich(ctx, doc, md)

	return md, nil
}

// enrich runs the best-effort enrichment pass and folds the result into the
// record. Any failure leaves the heuristic record untouched.
func (e *Extractor) enrich(ctx context.Context, doc *core.Document, md *core.DocumentMetadata) {
	if e.enricher == nil {
		return
	}

	enrichCtx, cancel := context.WithTimeout(ctx, e.enrichTimeout)
	defer cancel()

	enrichment, err := e.enricher.Enrich(enrichCtx, doc.Text)
	if err != nil {
		e.logger.Warn("enrichment failed, keeping heuristic record",
			"document", doc.Id, "err", err)
		return
	}

	if title := strings.TrimSpace(enrichment.Title); title != "" {
		md.Title = title
	}
	if enrichment.Category != "" && slices.Contains(ai.DocumentCategories, enrichment.Category) {
		md.Category = enrichment.Category
	}
	if summary := strings.TrimSpace(enrichment.Summary); summary != "" {
		md.Summary = summary
	}
	for _, entity := range enrichment.Entities {
		if entity == "" || slices.Contains(md.Keywords, entity) {
			continue
		}
		md.Keywords = append(md.Keywords, entity)
	}
}

// heuristicTitle takes the first non-empty line of text, capped at
// maxTitleWords words.
func heuristicTitle(text string) string {
	line := text
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		line = text[:idx]
	}
	if idx := strings.IndexAny(line, ".!?"); idx > 0 {
		line = line[:idx]
	}

	words := strings.Fields(line)
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
	}
	return strings.Join(words, " ")
}

// heuristicCategory picks the first known category name mentioned in the
// text, or "other".
func heuristicCategory(text string) string {
	lower := strings.ToLower(text)
	for _, category := range ai.DocumentCategories {
		if category == "other" {
			continue
		}
		if strings.Contains(lower, category) {
			return category
		}
	}
	return "other"
}

// organizationalUnits finds "ministry of X" / "department of X" /
// "university of X" phrases, lowercase.
func organizationalUnits(text string) []string {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == ',' || r == ';'
	})

	units := make([]string, 0, 2)
	for i := 0; i+2 < len(words); i++ {
		head := strings.Trim(words[i], ".:()")
		if head != "ministry" && head != "department" && head != "university" {
			continue
		}
		if words[i+1] != "of" {
			continue
		}
		tail := strings.Trim(words[i+2], ".:()")
		if tail == "" {
			continue
		}
		unit := head + " of " + tail
		if !slices.Contains(units, unit) {
			units = append(units, unit)
		}
	}
	return units
}
