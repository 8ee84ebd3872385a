// Package inference defines the typed per-task pipeline contracts and the
// backends that need no native runtime (Hugging Face inference API, OpenAI,
// VADER).
package inference

import (
	"context"
	"errors"
)

type Task string

const (
	TaskSummarization  Task = "summarization"
	TaskCategorization Task = "text-classification"
	TaskSentiment      Task = "sentiment-analysis"
)

var ErrEmptyOutput = errors.New("pipeline returned no output")

// SummaryOptions are the decoding bounds passed to a summarization pipeline.
// Lengths are in tokens for model backends.
type SummaryOptions struct {
	MaxLength  int
	MinLength  int
	Truncation bool
}

type SummaryResult struct {
	Text string
}

type ClassificationResult struct {
	Label string
	Score float64
}

type Summarizer interface {
	Summarize(ctx context.Context, text string, opts SummaryOptions) (SummaryResult, error)
}

type Classifier interface {
	Classify(ctx context.Context, text string) (ClassificationResult, error)
}

// Pinger is implemented by pipelines backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TopClassification picks the highest scoring label. An empty label is an error.
func TopClassification(candidates []ClassificationResult) (ClassificationResult, error) {
	if len(candidates) == 0 {
		return ClassificationResult{}, ErrEmptyOutput
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	if best.Label == "" {
		return ClassificationResult{}, errors.New("pipeline returned an empty label")
	}
	return best, nil
}
