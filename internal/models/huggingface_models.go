package models

// Wire types for the Hugging Face inference API.

type HFSummarizationRequest struct {
	Inputs     string                    `json:"inputs"`
	Parameters HFSummarizationParameters `json:"parameters"`
	Options    HFOptions                 `json:"options"`
}

type HFSummarizationParameters struct {
	MaxLength  int    `json:"max_length,omitempty"`
	MinLength  int    `json:"min_length,omitempty"`
	DoSample   bool   `json:"do_sample"`
	Truncation string `json:"truncation,omitempty"`
}

type HFSummary struct {
	SummaryText string `json:"summary_text"`
}

type HFClassificationRequest struct {
	Inputs  string    `json:"inputs"`
	Options HFOptions `json:"options"`
}

type HFClassification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type HFOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type HFError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}
