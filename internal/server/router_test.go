package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/llmservice/internal/inference"
	"github.com/spacesedan/llmservice/internal/services"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeSummarizer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string, _ inference.SummaryOptions) (inference.SummaryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return inference.SummaryResult{}, f.err
	}
	return inference.SummaryResult{Text: "short: " + strings.Fields(text)[0]}, nil
}

type fakeClassifier struct {
	label string
	err   error
}

func (f *fakeClassifier) Classify(context.Context, string) (inference.ClassificationResult, error) {
	if f.err != nil {
		return inference.ClassificationResult{}, f.err
	}
	return inference.ClassificationResult{Label: f.label, Score: 0.87}, nil
}

type countingClassifier struct {
	label string
	calls int
}

func (f *countingClassifier) Classify(context.Context, string) (inference.ClassificationResult, error) {
	f.calls++
	return inference.ClassificationResult{Label: f.label, Score: 1}, nil
}

type fakeUsage struct {
	counts map[string]int64
	err    error
}

func (f *fakeUsage) Snapshot(context.Context) (map[string]int64, error) {
	return f.counts, f.err
}

type fakeHealth map[string]bool

func (f fakeHealth) Status() map[string]bool { return f }

type panickingSummarizer struct{}

func (panickingSummarizer) SummarizeText(context.Context, string) (string, error) {
	panic("tokenizer exploded")
}

type testRouter struct {
	handler    http.Handler
	summarizer *fakeSummarizer
}

func newTestRouter(summarizer *fakeSummarizer, category, sentiment *fakeClassifier) testRouter {
	deps := Dependencies{
		Summarizer:  services.NewSummarizationService(summarizer, nil),
		Categorizer: services.NewCategorizationService(category, nil),
		Sentiment:   services.NewSentimentService(sentiment, nil),
	}
	return testRouter{handler: NewRouter(deps), summarizer: summarizer}
}

func defaultRouter() testRouter {
	return newTestRouter(&fakeSummarizer{}, &fakeClassifier{label: "LABEL_1"}, &fakeClassifier{label: "5 stars"})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestRootReportsRunning(t *testing.T) {
	r := newTestRouter(&fakeSummarizer{err: errors.New("down")}, &fakeClassifier{err: errors.New("down")}, &fakeClassifier{err: errors.New("down")})

	rec, body := do(t, r.handler, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"message": "LLM Service is running"}, body)
}

func TestSummarize(t *testing.T) {
	r := defaultRouter()

	rec, body := do(t, r.handler, http.MethodPost, "/api/summarize", `{"prompt":"Cats sleep a lot during the day"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"summary": "short: Cats"}, body)
	assert.Equal(t, 1, r.summarizer.calls)
}

func TestSummarizeEmptyPrompt(t *testing.T) {
	r := defaultRouter()

	rec, body := do(t, r.handler, http.MethodPost, "/api/summarize", `{"prompt":""}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"summary": ""}, body)
	assert.Zero(t, r.summarizer.calls)
}

func TestSummarizeInputTooLong(t *testing.T) {
	r := defaultRouter()
	prompt := strings.TrimSpace(strings.Repeat("word ", services.MaxSummaryInputWords+1))

	rec, body := do(t, r.handler, http.MethodPost, "/api/summarize", `{"prompt":"`+prompt+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.InputTooLong, body["summary"])
	assert.Zero(t, r.summarizer.calls)
}

func TestCategorize(t *testing.T) {
	r := defaultRouter()

	rec, body := do(t, r.handler, http.MethodPost, "/api/categorize", `{"prompt":"I love this product"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"category": "LABEL_1"}, body)
}

func TestSentimentIsDeterministic(t *testing.T) {
	r := defaultRouter()

	_, first := do(t, r.handler, http.MethodPost, "/api/sentiment", `{"prompt":"Terrible service, never again."}`)
	_, second := do(t, r.handler, http.MethodPost, "/api/sentiment", `{"prompt":"Terrible service, never again."}`)
	assert.Equal(t, map[string]any{"sentiment": "5 stars"}, first)
	assert.Equal(t, first, second)
}

func TestInvalidBodiesAreRejected(t *testing.T) {
	r := defaultRouter()

	bodies := map[string]string{
		"missing prompt":   `{}`,
		"null prompt":      `{"prompt":null}`,
		"non-string":       `{"prompt":42}`,
		"malformed json":   `{"prompt":`,
		"wrong field name": `{"text":"hello"}`,
		"uppercase key":    `{"PROMPT":"I love this product"}`,
		"mixed case key":   `{"Prompt":"I love this product"}`,
		"array body":       `["prompt"]`,
		"null body":        `null`,
	}
	for _, path := range []string{"/api/summarize", "/api/categorize", "/api/sentiment"} {
		for name, body := range bodies {
			rec, out := do(t, r.handler, http.MethodPost, path, body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "%s %s", path, name)
			assert.NotEmpty(t, out["detail"], "%s %s", path, name)
		}
	}
	assert.Zero(t, r.summarizer.calls)
}

func TestCaseMismatchedPromptNeverReachesService(t *testing.T) {
	category := &countingClassifier{label: "LABEL_1"}
	h := NewRouter(Dependencies{Categorizer: services.NewCategorizationService(category, nil)})

	rec, body := do(t, h, http.MethodPost, "/api/categorize", `{"PROMPT":"I love this product"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, body["detail"], `"prompt"`)
	assert.Zero(t, category.calls)

	rec, body = do(t, h, http.MethodPost, "/api/categorize", `{"prompt":"I love this product","extra":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"category": "LABEL_1"}, body)
	assert.Equal(t, 1, category.calls)
}

func TestInferenceErrorsReturnDetail(t *testing.T) {
	fail := errors.New("CUDA out of memory")
	r := newTestRouter(&fakeSummarizer{err: fail}, &fakeClassifier{err: fail}, &fakeClassifier{err: fail})

	cases := map[string]string{
		"/api/summarize":  "Error summarizing text: CUDA out of memory",
		"/api/categorize": "Error categorizing text: CUDA out of memory",
		"/api/sentiment":  "Error analyzing sentiment: CUDA out of memory",
	}
	for path, detail := range cases {
		rec, body := do(t, r.handler, http.MethodPost, path, `{"prompt":"hello there"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.Equal(t, map[string]any{"detail": detail}, body, path)
	}

	rec, _ := do(t, r.handler, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPanicIsRecovered(t *testing.T) {
	h := NewRouter(Dependencies{Summarizer: panickingSummarizer{}})

	rec, body := do(t, h, http.MethodPost, "/api/summarize", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", body["detail"])

	rec, _ = do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoutes(t *testing.T) {
	r := defaultRouter()

	rec, body := do(t, r.handler, http.MethodGet, "/api/translate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", body["detail"])

	rec, body = do(t, r.handler, http.MethodGet, "/api/summarize", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method Not Allowed", body["detail"])
}

func TestHealthz(t *testing.T) {
	h := NewRouter(Dependencies{})
	rec, body := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, Version, body["version"])

	h = NewRouter(Dependencies{Health: fakeHealth{"summarization": true, "sentiment-analysis": false}})
	rec, body = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"summarization": true, "sentiment-analysis": false}, body["pipelines"])
}

func TestStats(t *testing.T) {
	rec, body := do(t, NewRouter(Dependencies{}), http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, services.ErrUsageDisabled.Error(), body["detail"])

	var disabled *services.UsageTracker
	rec, _ = do(t, NewRouter(Dependencies{Usage: disabled}), http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	usage := &fakeUsage{counts: map[string]int64{"summarization": 3, "categorization": 0, "sentiment": 1}}
	rec, body = do(t, NewRouter(Dependencies{Usage: usage}), http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"summarization": 3.0, "categorization": 0.0, "sentiment": 1.0}, body)

	usage.err = errors.New("connection refused")
	rec, body = do(t, NewRouter(Dependencies{Usage: usage}), http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["detail"], "connection refused")
}

func TestWebServerStopsCleanly(t *testing.T) {
	srv := NewWebServer("127.0.0.1:0", NewRouter(Dependencies{}), time.Second)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, srv.Stop())

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestClientIPIgnoresUntrustedForwardingHeaders(t *testing.T) {
	clientIP := func(h *gin.Engine) string {
		h.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })
		req := httptest.NewRequest(http.MethodGet, "/ip", nil)
		req.RemoteAddr = "192.0.2.10:41000"
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Body.String()
	}

	assert.Equal(t, "192.0.2.10", clientIP(NewRouter(Dependencies{})))
	assert.Equal(t, "203.0.113.7", clientIP(NewRouter(Dependencies{TrustedProxies: []string{"192.0.2.0/24"}})))
	assert.Equal(t, "192.0.2.10", clientIP(NewRouter(Dependencies{TrustedProxies: []string{"not-an-ip"}})))
}
