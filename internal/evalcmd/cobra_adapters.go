package evalcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/boarddeck/boarddeck/internal/config"
)

// NewRunCmd creates the run command, which scores extraction against a labelled dataset.
func NewRunCmd() *cobra.Command {
	var opts RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate extraction accuracy on a labelled whiteboard dataset",
		Long: `Runs text extraction and diagram detection over every sample in a dataset and
scores the output against the expected text (normalized Levenshtein similarity) and
expected diagrams (label/kind recall).

The dataset is a .jsonl or .parquet file with rows of
  {"id", "image_path", "expected_text", "expected_diagrams"}
Relative image paths are resolved against the dataset's directory.`,
		Example: `  # Evaluate 10 boards with the default providers
  boarddeck eval run --dataset ./boards/boards.jsonl --sample 10

  # Tesseract text, no diagram detection
  boarddeck eval run --dataset ./boards/boards.parquet --provider tesseract --diagram-provider none`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.DatasetPath); os.IsNotExist(err) {
				return fmt.Errorf("dataset file not found: %s", opts.DatasetPath)
			}
			return executeRun(cmd.Context(), config.Load(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.DatasetPath, "dataset", "", "Path to the dataset (.jsonl or .parquet)")
	cmd.Flags().IntVar(&opts.SampleSize, "sample", -1, "Number of samples to evaluate (-1 for all)")
	cmd.Flags().StringVar(&opts.TextProvider, "provider", "", "Text provider (ollama, openai, gemini, anthropic, tesseract)")
	cmd.Flags().StringVar(&opts.TextModel, "model", "", "Text model (defaults to the provider's default)")
	cmd.Flags().StringVar(&opts.DiagramProvider, "diagram-provider", "", "Diagram provider (ollama, openai, gemini, anthropic, roboflow, none)")
	cmd.Flags().StringVar(&opts.DiagramModel, "diagram-model", "", "Diagram model (defaults to the provider's default)")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "evals", "Directory for YAML results")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 2, "Samples processed in parallel")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

// NewReportCmd creates the report command for a saved evaluation run.
func NewReportCmd() *cobra.Command {
	var resultsPath string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a report for a saved evaluation run",
		Example: `  boarddeck eval report --results evals/qwen2.5vl_7b-2026-01-02_03-04-05.yaml
  boarddeck eval report --results evals/run.yaml --format csv > run.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(resultsPath, format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&resultsPath, "results", "", "Path to a YAML results file")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, csv)")
	_ = cmd.MarkFlagRequired("results")

	return cmd
}
