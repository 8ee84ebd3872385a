// Package modelloader builds the per-task pipelines once at startup from
// configuration and owns the native resources behind them.
package modelloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/knights-analytics/hugot"

	"github.com/spacesedan/llmservice/config"
	"github.com/spacesedan/llmservice/internal/clients"
	"github.com/spacesedan/llmservice/internal/inference"
	"github.com/spacesedan/llmservice/internal/sentiment"
)

var ErrUnknownBackend = errors.New("unknown pipeline backend")

// Pipelines holds the one pipeline per task built at startup. It is read-only
// after Load returns and safe to share between requests.
type Pipelines struct {
	Summarization  inference.Summarizer
	Categorization inference.Classifier
	Sentiment      inference.Classifier

	pingers map[inference.Task]inference.Pinger
	session *hugot.Session
}

// Load resolves the model identifier of every task and builds its pipeline.
// Any failure is returned and leaves nothing running.
func Load(ctx context.Context, cfg config.Config) (*Pipelines, error) {
	b := &builder{cfg: cfg}
	p := &Pipelines{pingers: make(map[inference.Task]inference.Pinger)}

	ok := false
	defer func() {
		if !ok {
			b.close()
		}
	}()

	summarizer, err := b.summarizer(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s pipeline: %w", inference.TaskSummarization, err)
	}
	p.Summarization = summarizer

	categorizer, err := b.classifier(ctx, inference.TaskCategorization, cfg.Backends.Categorization, cfg.Models.Mini1)
	if err != nil {
		return nil, fmt.Errorf("load %s pipeline: %w", inference.TaskCategorization, err)
	}
	p.Categorization = categorizer

	analyzer, err := b.classifier(ctx, inference.TaskSentiment, cfg.Backends.Sentiment, cfg.Models.Mini2)
	if err != nil {
		return nil, fmt.Errorf("load %s pipeline: %w", inference.TaskSentiment, err)
	}
	p.Sentiment = analyzer

	for task, pipeline := range map[inference.Task]any{
		inference.TaskSummarization:  p.Summarization,
		inference.TaskCategorization: p.Categorization,
		inference.TaskSentiment:      p.Sentiment,
	} {
		if pinger, isPinger := pipeline.(inference.Pinger); isPinger {
			p.pingers[task] = pinger
		}
	}
	p.session = b.session

	ok = true
	return p, nil
}

// Pingers returns the pipelines that can be health checked, keyed by task.
func (p *Pipelines) Pingers() map[inference.Task]inference.Pinger {
	out := make(map[inference.Task]inference.Pinger, len(p.pingers))
	for task, pinger := range p.pingers {
		out[task] = pinger
	}
	return out
}

func (p *Pipelines) Close() error {
	if p == nil || p.session == nil {
		return nil
	}
	slog.Info("[ModelLoader] Destroying hugot session")
	return p.session.Destroy()
}

type builder struct {
	cfg     config.Config
	hf      *clients.HuggingFaceClient
	session *hugot.Session
}

func (b *builder) summarizer(ctx context.Context) (inference.Summarizer, error) {
	model := b.cfg.Models.Large
	backend := b.cfg.Backends.Summarization
	start := time.Now()

	var s inference.Summarizer
	switch backend {
	case config.BackendHuggingFace:
		hs := inference.NewHuggingFaceSummarizer(b.huggingFace(), model)
		if err := verifyRemoteModel(ctx, hs, model); err != nil {
			return nil, err
		}
		s = hs
	case config.BackendOpenAI:
		client, err := clients.NewOpenAIClient(b.cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		model = client.Model
		s = inference.NewOpenAISummarizer(client)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}

	logReady(inference.TaskSummarization, backend, model, start)
	return s, nil
}

func (b *builder) classifier(ctx context.Context, task inference.Task, backend, model string) (inference.Classifier, error) {
	start := time.Now()

	var c inference.Classifier
	switch backend {
	case config.BackendHuggingFace:
		hc := inference.NewHuggingFaceClassifier(b.huggingFace(), model)
		if err := verifyRemoteModel(ctx, hc, model); err != nil {
			return nil, err
		}
		c = hc
	case config.BackendHugot:
		session, err := b.hugotSession()
		if err != nil {
			return nil, err
		}
		modelPath, err := EnsureHugotModel(b.cfg.Hugot.ModelDir, model)
		if err != nil {
			return nil, err
		}
		hc, err := newHugotClassifier(session, string(task), modelPath)
		if err != nil {
			return nil, err
		}
		c = hc
	case config.BackendVader:
		if task != inference.TaskSentiment {
			return nil, fmt.Errorf("%w: %q only serves %s", ErrUnknownBackend, backend, inference.TaskSentiment)
		}
		model = "vader-lexicon"
		c = inference.NewVaderClassifier(sentiment.NewAnalyzer())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}

	logReady(task, backend, model, start)
	return c, nil
}

func (b *builder) huggingFace() *clients.HuggingFaceClient {
	if b.hf == nil {
		b.hf = clients.NewHuggingFaceClient(b.cfg.HuggingFace)
	}
	return b.hf
}

func (b *builder) hugotSession() (*hugot.Session, error) {
	if b.session != nil {
		return b.session, nil
	}
	session, err := newHugotSession(b.cfg.Hugot)
	if err != nil {
		return nil, err
	}
	b.session = session
	return session, nil
}

func (b *builder) close() {
	if b.session != nil {
		if err := b.session.Destroy(); err != nil {
			slog.Warn("[ModelLoader] Failed to destroy hugot session",
				slog.String("error", err.Error()))
		}
	}
}

// verifyRemoteModel fails when the inference API cannot resolve model.
func verifyRemoteModel(ctx context.Context, p inference.Pinger, model string) error {
	if err := p.Ping(ctx); err != nil {
		if clients.IsNotFound(err) {
			return fmt.Errorf("model %q not found: %w", model, err)
		}
		return fmt.Errorf("model %q unavailable: %w", model, err)
	}
	return nil
}

func logReady(task inference.Task, backend, model string, start time.Time) {
	slog.Info("[ModelLoader] Pipeline ready",
		slog.String("task", string(task)),
		slog.String("backend", backend),
		slog.String("model", model),
		slog.Duration("elapsed", time.Since(start)))
}

// DownloadModels fetches the ONNX exports of the classification models into
// the hugot model directory. Without all, only tasks configured with the hugot
// backend are fetched.
func DownloadModels(cfg config.Config, all bool) ([]string, error) {
	wanted := []struct {
		task    inference.Task
		backend string
		model   string
	}{
		{inference.TaskCategorization, cfg.Backends.Categorization, cfg.Models.Mini1},
		{inference.TaskSentiment, cfg.Backends.Sentiment, cfg.Models.Mini2},
	}

	var paths []string
	for _, w := range wanted {
		if !all && w.backend != config.BackendHugot {
			continue
		}
		path, err := EnsureHugotModel(cfg.Hugot.ModelDir, w.model)
		if err != nil {
			return paths, fmt.Errorf("%s: %w", w.task, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
