package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/bullet-ranker/internal/apperr"
	"github.com/jonathan/bullet-ranker/internal/types"
)

const extractionSystemPrompt = `You are an expert job posting parser.
Extract the requested fields from the raw job description.
Copy skill and requirement wording from the text, do not invent or summarize.
Return ONLY a JSON object, no markdown, no explanation, no code blocks.`

const extractionUserTemplate = `Return JSON with this exact structure:
{
  "title": string,            // the job title
  "skills": []string,         // concrete skills and technologies named in the posting
  "requirements": []string,   // hard requirements, one per entry
  "function_bias": string     // one of: technical, marketing, consulting, leadership, default
}

Job description:
"""
%s
"""`

// Extractor pulls structured job fields out of raw description text through
// the chat capability of a provider.
type Extractor struct {
	provider Provider
}

// NewExtractor creates an extractor on top of a chat-capable provider.
func NewExtractor(provider Provider) *Extractor {
	return &Extractor{provider: provider}
}

type extractionResult struct {
	Title        string   `json:"title"`
	Skills       []string `json:"skills"`
	Requirements []string `json:"requirements"`
	FunctionBias string   `json:"function_bias"`
}

// ExtractJobAnalysis analyzes a job description into title, skills,
// requirements, and a function-bias tag. The embedding field is left empty
// for the pipeline to fill.
func (e *Extractor) ExtractJobAnalysis(ctx context.Context, description string) (*types.JobAnalysis, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "empty job description")
	}

	resp, err := e.provider.Chat(ctx, ChatRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(extractionUserTemplate, description)},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, err
	}

	content := cleanJSONBlock(resp.Choices[0].Message.Content)
	var result extractionResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, apperr.Wrap(apperr.KindParseError, "extraction output is not valid JSON", err)
	}

	return &types.JobAnalysis{
		Title:        result.Title,
		Description:  description,
		Skills:       result.Skills,
		Requirements: result.Requirements,
		FunctionBias: result.FunctionBias,
	}, nil
}

// cleanJSONBlock strips markdown code fences that models wrap around JSON
// even when told not to.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}
