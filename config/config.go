package config

import (
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend names accepted by the *_BACKEND variables.
const (
	BackendHuggingFace = "huggingface"
	BackendHugot       = "hugot"
	BackendOpenAI      = "openai"
	BackendVader       = "vader"
)

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`

	Models      ModelConfig
	Backends    BackendConfig
	HuggingFace HuggingFaceConfig
	OpenAI      OpenAIConfig
	Hugot       HugotConfig
	Valkey      ValkeyConfig
	HTTP        HTTPConfig
	Log         LogConfig

	HealthCheckInterval time.Duration `env:"HEALTHCHECK_INTERVAL" envDefault:"15s"`
}

// ModelConfig holds the model identifier bound to each task.
type ModelConfig struct {
	Large string `env:"LARGE_MODEL"  envDefault:"facebook/bart-large-cnn"`
	Mini1 string `env:"MINI_MODEL_1" envDefault:"distilbert-base-uncased"`
	Mini2 string `env:"MINI_MODEL_2" envDefault:"nlptown/bert-base-multilingual-uncased-sentiment"`
}

type BackendConfig struct {
	Summarization  string `env:"SUMMARIZATION_BACKEND"  envDefault:"huggingface"`
	Categorization string `env:"CATEGORIZATION_BACKEND" envDefault:"huggingface"`
	Sentiment      string `env:"SENTIMENT_BACKEND"      envDefault:"huggingface"`
}

type HuggingFaceConfig struct {
	InferenceURL string        `env:"HF_INFERENCE_URL" envDefault:"https://router.huggingface.co/hf-inference/models"`
	APIToken     string        `env:"HF_API_TOKEN"`
	Timeout      time.Duration `env:"HF_TIMEOUT"       envDefault:"60s"`
	MaxAttempts  int           `env:"HF_MAX_ATTEMPTS"  envDefault:"1"`
}

type OpenAIConfig struct {
	APIKey  string        `env:"OPENAI_API_KEY"`
	BaseURL string        `env:"OPENAI_BASE_URL"`
	Model   string        `env:"OPENAI_MODEL"   envDefault:"gpt-4o-mini"`
	Timeout time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`
}

type HugotConfig struct {
	ModelDir        string `env:"HUGOT_MODEL_DIR"         envDefault:"./models"`
	OnnxLibraryPath string `env:"HUGOT_ONNX_LIBRARY_PATH"`
}

type ValkeyConfig struct {
	InitAddress string `env:"VALKEY_INIT_ADDRESS"`
	Password    string `env:"VALKEY_PASSWORD"`
	TLS         bool   `env:"VALKEY_TLS"`
}

// Enabled reports whether a Valkey address was configured.
func (v ValkeyConfig) Enabled() bool {
	return v.InitAddress != ""
}

type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR"        envDefault:":8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	TrustedProxies  []string      `env:"TRUSTED_PROXIES"  envSeparator:","`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	File  string `env:"LOG_FILE"`
}

// Load parses the process environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := checkBackend("SUMMARIZATION_BACKEND", c.Backends.Summarization,
		BackendHuggingFace, BackendOpenAI); err != nil {
		return err
	}
	if err := checkBackend("CATEGORIZATION_BACKEND", c.Backends.Categorization,
		BackendHuggingFace, BackendHugot); err != nil {
		return err
	}
	if err := checkBackend("SENTIMENT_BACKEND", c.Backends.Sentiment,
		BackendHuggingFace, BackendHugot, BackendVader); err != nil {
		return err
	}
	if c.HuggingFace.MaxAttempts < 1 {
		return fmt.Errorf("HF_MAX_ATTEMPTS must be at least 1, got %d", c.HuggingFace.MaxAttempts)
	}
	for _, proxy := range c.HTTP.TrustedProxies {
		if !validProxy(proxy) {
			return fmt.Errorf("TRUSTED_PROXIES: %q is neither an IP nor a CIDR", proxy)
		}
	}
	if c.Backends.Summarization == BackendOpenAI && c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when SUMMARIZATION_BACKEND=%s", BackendOpenAI)
	}
	return nil
}

func checkBackend(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported backend %q (allowed: %v)", name, value, allowed)
}

func validProxy(s string) bool {
	if _, _, err := net.ParseCIDR(s); err == nil {
		return true
	}
	return net.ParseIP(s) != nil
}
