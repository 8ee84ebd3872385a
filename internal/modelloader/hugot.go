package modelloader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	hugotpipelines "github.com/knights-analytics/hugot/pipelines"

	"github.com/spacesedan/llmservice/config"
	"github.com/spacesedan/llmservice/internal/inference"
)

// EnsureHugotModel returns a local directory holding the ONNX export of model.
// An existing directory path is used as is; otherwise the model is downloaded
// into modelDir unless a previous download is already there.
func EnsureHugotModel(modelDir, model string) (string, error) {
	if info, err := os.Stat(model); err == nil && info.IsDir() {
		slog.Info("[Hugot] Using local model directory", slog.String("path", model))
		return model, nil
	}

	if err := os.MkdirAll(modelDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}

	modelPath := hugotModelPath(modelDir, model)
	if _, err := os.Stat(modelPath); err == nil {
		slog.Info("[Hugot] Using existing model", slog.String("path", modelPath))
		return modelPath, nil
	}

	slog.Info("[Hugot] Model not found, downloading...", slog.String("model", model))
	downloaded, err := hugot.DownloadModel(model, modelDir, hugot.NewDownloadOptions())
	if err != nil {
		return "", fmt.Errorf("download model %s: %w", model, err)
	}
	slog.Info("[Hugot] Model downloaded successfully", slog.String("path", downloaded))
	return downloaded, nil
}

// hugotModelPath mirrors the directory name hugot.DownloadModel writes to.
func hugotModelPath(modelDir, model string) string {
	return filepath.Join(modelDir, strings.ReplaceAll(model, "/", "_"))
}

// newHugotSession opens the onnxruntime backed session. Only one can be
// active per process.
func newHugotSession(cfg config.HugotConfig) (*hugot.Session, error) {
	var opts []options.WithOption
	if cfg.OnnxLibraryPath != "" {
		opts = append(opts, options.WithOnnxLibraryPath(cfg.OnnxLibraryPath))
	}
	session, err := hugot.NewORTSession(opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize hugot session: %w", err)
	}
	return session, nil
}

// hugotClassifier runs a text classification ONNX model in process.
// Calls are serialized; the pipeline owns its tensors between runs.
type hugotClassifier struct {
	mu       sync.Mutex
	pipeline *hugotpipelines.TextClassificationPipeline
}

func newHugotClassifier(session *hugot.Session, name, modelPath string) (*hugotClassifier, error) {
	pipeline, err := hugot.NewPipeline(session, hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      name,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s pipeline: %w", name, err)
	}
	return &hugotClassifier{pipeline: pipeline}, nil
}

func (c *hugotClassifier) Classify(ctx context.Context, text string) (inference.ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return inference.ClassificationResult{}, err
	}

	c.mu.Lock()
	output, err := c.pipeline.RunPipeline([]string{text})
	c.mu.Unlock()
	if err != nil {
		return inference.ClassificationResult{}, err
	}

	if output == nil || len(output.ClassificationOutputs) == 0 {
		return inference.ClassificationResult{}, inference.ErrEmptyOutput
	}
	return inference.TopClassification(fromHugotOutputs(output.ClassificationOutputs[0]))
}

func fromHugotOutputs(in []hugotpipelines.ClassificationOutput) []inference.ClassificationResult {
	out := make([]inference.ClassificationResult, 0, len(in))
	for _, c := range in {
		out = append(out, inference.ClassificationResult{Label: c.Label, Score: float64(c.Score)})
	}
	return out
}
