package clients

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/spacesedan/llmservice/config"
)

type OpenAIClient struct {
	Client openai.Client
	Model  string
}

func NewOpenAIClient(cfg config.OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	slog.Info("[OpenAIClient] OpenAI client initialized",
		slog.String("model", cfg.Model),
		slog.Duration("timeout", cfg.Timeout))

	return &OpenAIClient{
		Client: openai.NewClient(opts...),
		Model:  cfg.Model,
	}, nil
}
