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


package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"github.com/docentlabs/docent/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Enricher implements ai.MetadataEnricher using OpenAI-compatible chat APIs.
type Enricher struct {
	client llms.Model
	logger *slog.Logger
}

// enrichment is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type enrichment struct {
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Summary  string   `json:"summary"`
	Entities []string `json:"entities"`
}

// newEnricher is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEnricher(config *ai.Config) (*Enricher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat completion
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Enricher{
		client: client,
		logger: slog.Default().With("component", "openai-enricher"),
	}, nil
}

// NewEnricher creates a new metadata enricher using the provided configuration.
//
// Returns ai.MetadataEnricher interface to enforce abstraction.
func NewEnricher(config *ai.Config) (ai.MetadataEnricher, error) {
	return newEnricher(config)
}

// Enrich derives a title, category, summary, and named entities from document
// text using an LLM. Overly long documents are truncated before sending.
func (e *Enricher) Enrich(ctx context.Context, text string) (*ai.Enrichment, error) {
	text = truncateText(text, maxEnrichmentInput)

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildEnrichmentPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result enrichment
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return &ai.Enrichment{}, nil
		}

		responseText := stripCodeFences(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing enricher response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse enricher response after retries", "err", lastErr)
		return nil, lastErr
	}

	// Normalize fields and clamp the category to the known set
	out := &ai.Enrichment{
		Title:   strings.TrimSpace(result.Title),
		Summary: strings.TrimSpace(result.Summary),
	}

	category := strings.ToLower(strings.TrimSpace(result.Category))
	if !slices.Contains(ai.DocumentCategories, category) {
		e.logger.Debug("model returned unknown category", "category", category)
		category = "other"
	}
	out.Category = category

	out.Entities = make([]string, 0, len(result.Entities))
	for _, entity := range result.Entities {
		entity = strings.ToLower(strings.TrimSpace(entity))
		if entity == "" {
			continue
		}
		out.Entities = append(out.Entities, entity)
	}

	e.logger.Debug("enriched document",
		"category", out.Category,
		"entities", len(out.Entities))

	return out, nil
}
