package mock

import (
	"context"
	"strings"

	"github.com/docentlabs/docent/ai"
)

// MockEnricher is a test double for ai.MetadataEnricher.
// It allows custom behavior injection via function fields.
type MockEnricher struct {
	// EnrichFunc is called by Enrich if set.
	// If nil, uses default heuristic behavior.
	EnrichFunc func(ctx context.Context, text string) (*ai.Enrichment, error)

	callCount int
}

// NewMockEnricher creates a mock enricher with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockEnricher().
func NewMockEnricher() *MockEnricher {
	return &MockEnricher{}
}

// Enrich derives simple mock metadata from text.
// Default behavior: the first sentence becomes the title, the whole first
// sentence the summary, and long words become entities.
func (m *MockEnricher) Enrich(ctx context.Context, text string) (*ai.Enrichment, error) {
	m.callCount++

	if m.EnrichFunc != nil {
		return m.EnrichFunc(ctx, text)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return &ai.Enrichment{Category: "other"}, nil
	}

	firstSentence := text
	if idx := strings.IndexAny(text, ".!?\n"); idx > 0 {
		firstSentence = text[:idx]
	}

	// Title: first sentence capped at 8 words
	titleWords := strings.Fields(firstSentence)
	if len(titleWords) > 8 {
		titleWords = titleWords[:8]
	}

	// Entities: distinct lowercase words longer than 5 characters
	seen := make(map[string]bool)
	entities := make([]string, 0, 5)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if len(word) <= 5 || seen[word] {
			continue
		}
		seen[word] = true
		entities = append(entities, word)
		if len(entities) >= 5 {
			break
		}
	}

	// Category: pick the first known category word found in the text
	category := "other"
	lower := strings.ToLower(text)
	for _, c := range ai.DocumentCategories {
		if c == "other" {
			continue
		}
		if strings.Contains(lower, c) {
			category = c
			break
		}
	}

	return &ai.Enrichment{
		Title:    strings.Join(titleWords, " "),
		Category: category,
		Summary:  strings.TrimSpace(firstSentence) + ".",
		Entities: entities,
	}, nil
}

// CallCount returns the number of times Enrich was called.
func (m *MockEnricher) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockEnricher) Reset() {
	m.callCount = 0
	m.EnrichFunc = nil
}
