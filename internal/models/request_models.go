package models

// Prompt is a pointer so that a missing field fails binding while an empty
// string is still accepted.

type SummarizationRequest struct {
	Prompt *string `json:"prompt" binding:"required"`
}

type CategorizationRequest struct {
	Prompt *string `json:"prompt" binding:"required"`
}

type SentimentAnalysisRequest struct {
	Prompt *string `json:"prompt" binding:"required"`
}
