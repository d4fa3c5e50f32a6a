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
	"fmt"
	"log/slog"
	"strings"

	"github.com/docentlabs/docent/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Scorer implements ai.RelevanceScorer using OpenAI-compatible chat APIs.
type Scorer struct {
	client llms.Model
	logger *slog.Logger
}

// scoring is the wrapper structure for the LLM's JSON response.
type scoring struct {
	Scores []float64 `json:"scores"`
}

// newScorer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newScorer(config *ai.Config) (*Scorer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Scorer{
		client: client,
		logger: slog.Default().With("component", "openai-scorer"),
	}, nil
}

// NewScorer creates a new relevance scorer using the provided configuration.
//
// Returns ai.RelevanceScorer interface to enforce abstraction.
func NewScorer(config *ai.Config) (ai.RelevanceScorer, error) {
	return newScorer(config)
}

// ScoreCandidates rates each candidate description against the query using an
// LLM and returns one score per candidate in input order. Scores are clamped
// to [0, 1]. Returns an error if the model response cannot be parsed or if
// it returns the wrong number of scores.
func (s *Scorer) ScoreCandidates(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return []float64{}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nCandidates:\n", strings.TrimSpace(query))
	for i, candidate := range candidates {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, truncateText(candidate, maxCandidateInput))
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildScoringPrompt(len(candidates))),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(sb.String()),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result scoring
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := s.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			s.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			s.logger.Debug("no choices returned from model")
			return nil, fmt.Errorf("scorer: model returned no choices")
		}

		responseText := stripCodeFences(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			s.logger.Warn("error parsing scorer response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		if len(result.Scores) != len(candidates) {
			lastErr = fmt.Errorf("scorer: expected %d scores, got %d", len(candidates), len(result.Scores))
			s.logger.Warn("score count mismatch",
				"attempt", attempt+1,
				"expected", len(candidates),
				"got", len(result.Scores))
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		s.logger.Error("failed to score candidates after retries", "err", lastErr)
		return nil, lastErr
	}

	scores := make([]float64, len(result.Scores))
	for i, score := range result.Scores {
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		scores[i] = score
	}

	s.logger.Debug("scored candidates", "count", len(scores))
	return scores, nil
}
