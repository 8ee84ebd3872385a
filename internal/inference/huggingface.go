package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spacesedan/llmservice/internal/clients"
	"github.com/spacesedan/llmservice/internal/models"
)

type HuggingFaceSummarizer struct {
	client *clients.HuggingFaceClient
	model  string
}

func NewHuggingFaceSummarizer(client *clients.HuggingFaceClient, model string) *HuggingFaceSummarizer {
	return &HuggingFaceSummarizer{client: client, model: model}
}

func (s *HuggingFaceSummarizer) Summarize(ctx context.Context, text string, opts SummaryOptions) (SummaryResult, error) {
	params := models.HFSummarizationParameters{
		MaxLength: opts.MaxLength,
		MinLength: opts.MinLength,
		DoSample:  false,
	}
	if opts.Truncation {
		params.Truncation = "only_first"
	}

	var out []models.HFSummary
	err := s.client.Infer(ctx, s.model, models.HFSummarizationRequest{
		Inputs:     text,
		Parameters: params,
		Options:    models.HFOptions{WaitForModel: true},
	}, &out)
	if err != nil {
		return SummaryResult{}, err
	}

	if len(out) == 0 {
		return SummaryResult{}, ErrEmptyOutput
	}
	summary := strings.TrimSpace(out[0].SummaryText)
	if summary == "" {
		return SummaryResult{}, ErrEmptyOutput
	}
	return SummaryResult{Text: summary}, nil
}

func (s *HuggingFaceSummarizer) Ping(ctx context.Context) error {
	return s.client.HealthCheck(ctx, s.model)
}

type HuggingFaceClassifier struct {
	client *clients.HuggingFaceClient
	model  string
}

func NewHuggingFaceClassifier(client *clients.HuggingFaceClient, model string) *HuggingFaceClassifier {
	return &HuggingFaceClassifier{client: client, model: model}
}

func (c *HuggingFaceClassifier) Classify(ctx context.Context, text string) (ClassificationResult, error) {
	var raw json.RawMessage
	err := c.client.Infer(ctx, c.model, models.HFClassificationRequest{
		Inputs:  text,
		Options: models.HFOptions{WaitForModel: true},
	}, &raw)
	if err != nil {
		return ClassificationResult{}, err
	}

	candidates, err := decodeClassifications(raw)
	if err != nil {
		return ClassificationResult{}, err
	}
	return TopClassification(candidates)
}

func (c *HuggingFaceClassifier) Ping(ctx context.Context) error {
	return c.client.HealthCheck(ctx, c.model)
}

// decodeClassifications accepts both the flat `[{label, score}]` shape and the
// nested `[[{label, score}]]` shape the API returns for a single input.
func decodeClassifications(raw json.RawMessage) ([]ClassificationResult, error) {
	var nested [][]models.HFClassification
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, ErrEmptyOutput
		}
		return toClassifications(nested[0]), nil
	}

	var flat []models.HFClassification
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("unexpected classification output: %w", err)
	}
	return toClassifications(flat), nil
}

func toClassifications(in []models.HFClassification) []ClassificationResult {
	out := make([]ClassificationResult, 0, len(in))
	for _, c := range in {
		out = append(out, ClassificationResult{Label: c.Label, Score: c.Score})
	}
	return out
}
