package services

import (
	"context"
	"strings"

	"github.com/spacesedan/llmservice/internal/inference"
)

const (
	// MaxSummaryInputWords is the largest prompt, in words, sent to the model.
	MaxSummaryInputWords = 1000
	// InputTooLong is returned as the summary of prompts above MaxSummaryInputWords.
	InputTooLong = "Input too long"

	minSummaryMaxLength = 10
	summaryMinLength    = 5
)

type SummarizationService struct {
	pipeline inference.Summarizer
	usage    *UsageTracker
}

func NewSummarizationService(pipeline inference.Summarizer, usage *UsageTracker) *SummarizationService {
	return &SummarizationService{pipeline: pipeline, usage: usage}
}

// SummarizeText summarizes prompt with decoding bounds scaled to its length.
// Blank prompts yield an empty summary and overlong prompts the InputTooLong
// sentinel; neither reaches the pipeline.
func (s *SummarizationService) SummarizeText(ctx context.Context, prompt string) (string, error) {
	words := len(strings.Fields(prompt))
	if words == 0 {
		return "", nil
	}
	if words > MaxSummaryInputWords {
		return InputTooLong, nil
	}

	result, err := s.pipeline.Summarize(ctx, prompt, SummaryOptionsFor(words))
	if err != nil {
		return "", err
	}

	s.usage.Record(ctx, UsageSummarization)
	return result.Text, nil
}

// SummaryOptionsFor returns max_length = max(10, 1.5 * words) and min_length = 5.
func SummaryOptionsFor(words int) inference.SummaryOptions {
	return inference.SummaryOptions{
		MaxLength:  max(minSummaryMaxLength, words*3/2),
		MinLength:  summaryMinLength,
		Truncation: true,
	}
}
