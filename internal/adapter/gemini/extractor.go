// Package gemini adapts the Gemini API into the pipeline's extraction
// contract: raw CV text in, a tagged Completed/NotACV result with usage
// accounting out. Errors are reserved for real failures; a document that is
// simply not a CV comes back as data.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/marinoska/cv-ingest/internal/worker"
)

const extractionPrompt = `You are given the plain text of a document a user uploaded as their CV.
If the document is not a CV or résumé, respond with {"not_a_cv": true}.
Otherwise respond with {"not_a_cv": false, "profile": {...}} where profile contains
contact details, a summary, work experience, education, skills and languages.
Respond with JSON only.`

type Extractor struct {
	client *genai.Client
	model  string
}

func NewExtractor(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Extractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Extractor{client: client, model: model}, nil
}

func (e *Extractor) Close() error {
	return e.client.Close()
}

// Extract submits the raw text and returns the structured verdict. When the
// call got far enough to know token usage before failing, the returned result
// still carries that usage alongside the error.
func (e *Extractor) Extract(ctx context.Context, rawText string) (*worker.ExtractionResult, error) {
	model := e.client.GenerativeModel(e.model)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(extractionPrompt+"\n\n"+rawText))
	if err != nil {
		return nil, err
	}

	usage := usageFrom(resp)
	if len(resp.Candidates) == 0 {
		return &worker.ExtractionResult{Usage: usage}, fmt.Errorf("no candidates in response")
	}

	cand := resp.Candidates[0]
	finish := cand.FinishReason.String()

	result, err := parseEnvelope([]byte(candidateText(cand)))
	if err != nil {
		return &worker.ExtractionResult{Usage: usage, FinishReason: finish},
			fmt.Errorf("malformed extraction response: %w", err)
	}

	result.Usage = usage
	result.FinishReason = finish
	return result, nil
}

func usageFrom(resp *genai.GenerateContentResponse) *worker.Usage {
	if resp.UsageMetadata == nil {
		return nil
	}
	return &worker.Usage{
		PromptTokens: resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:  resp.UsageMetadata.TotalTokenCount,
	}
}

func candidateText(cand *genai.Candidate) string {
	if cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

// parseEnvelope decodes the model's JSON verdict into a tagged result.
func parseEnvelope(data []byte) (*worker.ExtractionResult, error) {
	var envelope struct {
		NotACV  bool            `json:"not_a_cv"`
		Profile json.RawMessage `json:"profile"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	if envelope.NotACV {
		return &worker.ExtractionResult{Outcome: worker.OutcomeNotACV}, nil
	}
	if len(envelope.Profile) == 0 || string(envelope.Profile) == "null" {
		return nil, fmt.Errorf("profile missing from response")
	}
	return &worker.ExtractionResult{Outcome: worker.OutcomeCompleted, Profile: envelope.Profile}, nil
}
