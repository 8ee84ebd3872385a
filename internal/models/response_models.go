package models

type SummarizationResponse struct {
	Summary string `json:"summary"`
}

type CategorizationResponse struct {
	Category string `json:"category"`
}

type SentimentAnalysisResponse struct {
	Sentiment string `json:"sentiment"`
}

// ErrorResponse is the body of every 4xx/5xx answer.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type StatusResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Pipelines map[string]bool `json:"pipelines"`
}
