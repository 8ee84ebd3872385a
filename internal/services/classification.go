package services

import (
	"context"

	"github.com/spacesedan/llmservice/internal/inference"
)

type CategorizationService struct {
	pipeline inference.Classifier
	usage    *UsageTracker
}

func NewCategorizationService(pipeline inference.Classifier, usage *UsageTracker) *CategorizationService {
	return &CategorizationService{pipeline: pipeline, usage: usage}
}

// CategorizeText returns the top label of the classification pipeline.
func (s *CategorizationService) CategorizeText(ctx context.Context, prompt string) (string, error) {
	result, err := s.pipeline.Classify(ctx, prompt)
	if err != nil {
		return "", err
	}
	s.usage.Record(ctx, UsageCategorization)
	return result.Label, nil
}

type SentimentService struct {
	pipeline inference.Classifier
	usage    *UsageTracker
}

func NewSentimentService(pipeline inference.Classifier, usage *UsageTracker) *SentimentService {
	return &SentimentService{pipeline: pipeline, usage: usage}
}

// AnalyzeSentiment returns the top label of the sentiment pipeline.
func (s *SentimentService) AnalyzeSentiment(ctx context.Context, prompt string) (string, error) {
	result, err := s.pipeline.Classify(ctx, prompt)
	if err != nil {
		return "", err
	}
	s.usage.Record(ctx, UsageSentiment)
	return result.Label, nil
}
