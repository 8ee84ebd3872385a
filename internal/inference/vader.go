package inference

import (
	"context"

	"github.com/spacesedan/llmservice/internal/sentiment"
)

// VaderClassifier labels sentiment with the VADER lexicon, no model weights.
type VaderClassifier struct {
	analyzer *sentiment.Analyzer
}

func NewVaderClassifier(analyzer *sentiment.Analyzer) *VaderClassifier {
	return &VaderClassifier{analyzer: analyzer}
}

func (c *VaderClassifier) Classify(ctx context.Context, text string) (ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return ClassificationResult{}, err
	}
	score, label := c.analyzer.Analyze(text)
	return ClassificationResult{Label: label, Score: score}, nil
}
