package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"

	"github.com/spacesedan/llmservice/internal/clients"
)

const (
	minOutputTokens int64 = 64

	summaryInstructions = `Summarize the user's text.

Rules:
- Between %d and %d words.
- Keep names, numbers and dates that matter.
- Neutral tone, no lists, no preamble.
- Output only the summary, in the same language as the input.`
)

// OpenAISummarizer produces summaries through the Responses API.
type OpenAISummarizer struct {
	client *clients.OpenAIClient
}

func NewOpenAISummarizer(client *clients.OpenAIClient) *OpenAISummarizer {
	return &OpenAISummarizer{client: client}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, text string, opts SummaryOptions) (SummaryResult, error) {
	maxOutputTokens := max(int64(opts.MaxLength)*2, minOutputTokens)

	resp, err := s.client.Client.Responses.New(ctx, responses.ResponseNewParams{
		Model:           s.client.Model,
		MaxOutputTokens: openai.Int(maxOutputTokens),
		Instructions:    openai.String(fmt.Sprintf(summaryInstructions, opts.MinLength, opts.MaxLength)),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return SummaryResult{}, fmt.Errorf("do request: %w", err)
	}

	summary := strings.TrimSpace(resp.OutputText())
	if summary == "" {
		return SummaryResult{}, fmt.Errorf("%w (status = %s)", ErrEmptyOutput, resp.Status)
	}
	return SummaryResult{Text: summary}, nil
}

func (s *OpenAISummarizer) Ping(ctx context.Context) error {
	_, err := s.client.Client.Models.Get(ctx, s.client.Model)
	return err
}
