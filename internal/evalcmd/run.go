package evalcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/boarddeck/boarddeck/internal/config"
	"github.com/boarddeck/boarddeck/internal/eval/dataset"
	"github.com/boarddeck/boarddeck/internal/eval/metrics"
	"github.com/boarddeck/boarddeck/internal/eval/results"
	"github.com/boarddeck/boarddeck/internal/extraction"
)

// Extractor is the extraction boundary under evaluation.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*extraction.Result, error)
}

type RunOptions struct {
	DatasetPath     string
	SampleSize      int
	TextProvider    string
	TextModel       string
	DiagramProvider string
	DiagramModel    string
	OutputDir       string
	Concurrency     int
}

func executeRun(ctx context.Context, cfg *config.Config, opts RunOptions, out io.Writer) error {
	slog.Info("Starting evaluation run", "dataset", opts.DatasetPath, "provider", opts.TextProvider, "model", opts.TextModel)

	samples, err := dataset.NewLoader(opts.DatasetPath).LoadSample(opts.SampleSize)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	slog.Info("Dataset loaded", "samples", len(samples))

	if opts.TextProvider == "" {
		opts.TextProvider = cfg.TextProvider
	}
	if opts.TextModel == "" {
		opts.TextModel = extraction.DefaultModel(opts.TextProvider)
	}
	if opts.DiagramProvider == "" {
		opts.DiagramProvider = cfg.DiagramProvider
	}

	ext, err := extraction.NewConfigured(cfg, opts.TextProvider, opts.TextModel, opts.DiagramProvider, opts.DiagramModel)
	if err != nil {
		return err
	}

	runs := evaluate(ctx, ext, samples, opts.DatasetPath, opts.Concurrency)

	path, err := results.SaveToYAML(opts.OutputDir, results.EvalConfig{
		TextProvider:    opts.TextProvider,
		TextModel:       opts.TextModel,
		DiagramProvider: opts.DiagramProvider,
		DiagramModel:    opts.DiagramModel,
		DatasetPath:     opts.DatasetPath,
		SampleSize:      len(samples),
	}, runs)
	if err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	metrics.Aggregate(runs).PrintSummary(out, opts.TextProvider, opts.TextModel)
	fmt.Fprintf(out, "\nResults saved to: %s\n", path)
	fmt.Fprintf(out, "\nGenerate a detailed report with:\n  boarddeck eval report --results %s\n", path)
	return nil
}

// evaluate extracts every sample with at most concurrency calls in flight.
// Results keep dataset order; per-sample failures are recorded, not returned.
func evaluate(ctx context.Context, ext Extractor, samples []dataset.Sample, datasetPath string, concurrency int) []metrics.SampleResult {
	if concurrency < 1 {
		concurrency = 1
	}
	out := make([]metrics.SampleResult, len(samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, sample := range samples {
		g.Go(func() error {
			slog.Info("Processing sample", "id", sample.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(samples)))
			out[i] = evaluateSample(gctx, ext, sample, datasetPath)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func evaluateSample(ctx context.Context, ext Extractor, sample dataset.Sample, datasetPath string) metrics.SampleResult {
	path := sample.ResolveImage(datasetPath)
	result := metrics.SampleResult{ID: sample.ID, ImagePath: path}

	if path == "" {
		result.Error = "no image path"
		return result
	}
	data, err := os.ReadFile(path)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read image: %v", err)
		return result
	}

	start := time.Now()
	res, err := ext.Extract(ctx, data)
	result.ProcessingTime = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.ExtractedText = res.Content.Text
	result.DiagramsFound = len(res.Content.Diagrams)
	result.TextScore = metrics.TextScore(sample.ExpectedText, res.Content.Text)
	result.DiagramRecall = metrics.DiagramRecall(sample.ExpectedDiagrams, res.Content.Diagrams)
	return result
}
