package openai

import (
	"fmt"
	"strings"

	"github.com/docentlabs/docent/ai"
)

const enrichmentResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "title": {
      "type": "string"
    },
    "category": {
      "type": "string"
    },
    "summary": {
      "type": "string"
    },
    "entities": {
      "type": "array",
      "items": {
        "type": "string",
        "pattern": "^[a-z0-9]+( [a-z0-9]+)*$"
      }
    }
  },
  "required": ["title", "category", "summary", "entities"],
  "additionalProperties": false
}`

const enrichmentPromptTemplate = `Analyze the given document and return its metadata as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Title is a short human-readable name for the document, at most 12 words. Prefer the document's own heading when one is present.
- Category must match exactly one of the listed values: %s.
- Summary is 1-3 plain sentences describing what the document establishes or announces.
- Entities are named organizations, programs, places, or people explicitly mentioned. Lowercase, 1-4 words each. Do not hallucinate.
- If no entities can be identified, return "entities": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "National Education Policy 2024 outlines reforms in higher education funding."
Output:
{
  "title": "National Education Policy 2024",
  "category": "policy",
  "summary": "Outlines reforms to how higher education is funded under the 2024 national education policy.",
  "entities": ["national education policy"]
}`

const scoringPromptTemplate = `Rate how relevant each candidate document is to the query and return the ratings as JSON.

Output ONLY valid JSON. Do not include any preamble, explanation, greeting, or acknowledgment. Start your
response directly with the opening brace { and end with the closing brace }. Your output must exactly follow
this schema:

{
  "type": "object",
  "properties": {
    "scores": {
      "type": "array",
      "items": {"type": "number", "minimum": 0, "maximum": 1}
    }
  },
  "required": ["scores"],
  "additionalProperties": false
}

Rules:
- Return exactly %d scores, one per candidate, in the order the candidates are listed.
- Each score is a number from 0.0 (completely irrelevant) to 1.0 (directly answers the query).
- Judge relevance from the candidate's title, keywords, and summary only. Do not invent content.
- A candidate about the same broad topic but a different specific subject scores in the middle of the range.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Query: scholarship deadlines for undergraduate students
Candidates:
1. Merit Scholarship Notification 2024 | scholarship, deadline, undergraduate | Announces application deadlines for the merit scholarship.
2. Campus Infrastructure Tender | tender, construction | Invites bids for a new laboratory building.
Output:
{
  "scores": [0.95, 0.05]
}`

// maxEnrichmentInput bounds how much document text is sent to the enricher.
const maxEnrichmentInput = 6000

// maxCandidateInput bounds how much of each candidate description is sent to
// the scorer.
const maxCandidateInput = 400

// buildEnrichmentPrompt creates the enricher system prompt with the category
// list embedded.
func buildEnrichmentPrompt() string {
	return fmt.Sprintf(enrichmentPromptTemplate,
		enrichmentResponseSchema,
		strings.Join(ai.DocumentCategories, ", "))
}

// buildScoringPrompt creates the scorer system prompt for the given candidate
// count.
func buildScoringPrompt(candidateCount int) string {
	return fmt.Sprintf(scoringPromptTemplate, candidateCount)
}
