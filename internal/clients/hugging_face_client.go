package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spacesedan/llmservice/config"
	"github.com/spacesedan/llmservice/internal/models"
)

// InferenceError is a non-2xx answer from the inference API.
type InferenceError struct {
	StatusCode int
	Message    string
}

func (e *InferenceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("inference API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("inference API returned status %d: %s", e.StatusCode, e.Message)
}

type HuggingFaceClient struct {
	Client *http.Client

	baseURL     string
	token       string
	maxAttempts int
	backoff     time.Duration
}

func NewHuggingFaceClient(cfg config.HuggingFaceConfig) *HuggingFaceClient {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	slog.Info("[HuggingFaceClient] Initializing Client",
		slog.String("endpoint", cfg.InferenceURL),
		slog.Duration("timeout", cfg.Timeout),
		slog.Int("max_attempts", attempts))

	return &HuggingFaceClient{
		Client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.InferenceURL, "/"),
		token:       cfg.APIToken,
		maxAttempts: attempts,
		backoff:     INITIAL_BACKOFF,
	}
}

// DoWithRetry sends req, retrying transport errors and 5xx answers with
// exponential backoff until maxAttempts is reached or the context ends.
func (h *HuggingFaceClient) DoWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := h.backoff

	for attempt := 0; attempt < h.maxAttempts; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, fmt.Errorf("failed to rewind request body: %w", bodyErr)
			}
			req.Body = body
		}

		resp, err = h.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}
		if attempt == h.maxAttempts-1 {
			break
		}

		if resp != nil {
			resp.Body.Close()
		}

		slog.Warn("[HuggingFaceClient] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", errMsg(err, resp)))

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}

	return resp, err
}

// Infer posts input to the model endpoint and decodes the answer into output.
func (h *HuggingFaceClient) Infer(ctx context.Context, model string, input any, output any) error {
	endpoint := h.modelURL(model)
	start := time.Now()

	if err := h.postJSON(ctx, endpoint, input, output); err != nil {
		slog.Error("[HuggingFaceClient] Inference request failed",
			slog.String("model", model),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return err
	}

	slog.Debug("[HuggingFaceClient] Inference request successful",
		slog.String("model", model),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// HealthCheck reports whether the model endpoint answers without a server error.
// A 404 means the model identifier does not resolve.
func (h *HuggingFaceClient) HealthCheck(ctx context.Context, model string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.modelURL(model), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	h.setHeaders(req)

	resp, err := h.Client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500 {
		return decodeInferenceError(resp)
	}
	return nil
}

func (h *HuggingFaceClient) modelURL(model string) string {
	parts := strings.Split(model, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return h.baseURL + "/" + strings.Join(parts, "/")
}

func (h *HuggingFaceClient) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", USER_AGENT)
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
}

func (h *HuggingFaceClient) postJSON(ctx context.Context, endpoint string, input any, output any) error {
	body, err := json.Marshal(input)
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed to marshal input",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	h.setHeaders(req)

	resp, err := h.DoWithRetry(req)
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed request after retries",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeInferenceError(resp)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[HuggingFaceClient] Failed to unmarshal response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func decodeInferenceError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	ierr := &InferenceError{StatusCode: resp.StatusCode}

	var body models.HFError
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		ierr.Message = body.Error
	} else {
		ierr.Message = strings.TrimSpace(string(raw))
	}
	return ierr
}

// IsNotFound reports whether err is a 404 from the inference API.
func IsNotFound(err error) bool {
	var ierr *InferenceError
	return errors.As(err, &ierr) && ierr.StatusCode == http.StatusNotFound
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
