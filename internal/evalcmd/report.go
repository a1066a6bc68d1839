package evalcmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/boarddeck/boarddeck/internal/eval/results"
)

func executeReport(path, format string, out io.Writer) error {
	spec, err := results.LoadYAML(path)
	if err != nil {
		return err
	}

	switch format {
	case "text":
		return printTextReport(spec, out)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(spec)
	case "csv":
		return printCSVReport(spec, out)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printTextReport(spec *results.EvalSpec, out io.Writer) error {
	fmt.Fprintln(out, "========================================")
	fmt.Fprintln(out, "Whiteboard Extraction Evaluation Report")
	fmt.Fprintln(out, "========================================")
	fmt.Fprintf(out, "Dataset:  %s\n", spec.Config.DatasetPath)
	fmt.Fprintf(out, "Diagrams: %s %s\n", spec.Config.DiagramProvider, spec.Config.DiagramModel)

	spec.Summary.PrintSummary(out, spec.Config.TextProvider, spec.Config.TextModel)

	fmt.Fprintln(out, "\nDetailed Results:")
	fmt.Fprintln(out, "========================================")
	for i, r := range spec.Results {
		fmt.Fprintf(out, "\n[%d] %s (%s)\n", i+1, r.ID, r.ImagePath)
		if r.Error != "" {
			fmt.Fprintf(out, "  Error: %s\n", r.Error)
			continue
		}
		fmt.Fprintf(out, "  Text Similarity: %.2f%%\n", r.TextScore*100)
		fmt.Fprintf(out, "  Diagram Recall:  %.2f%% (%d detected)\n", r.DiagramRecall*100, r.DiagramsFound)
		fmt.Fprintf(out, "  Processing Time: %s\n", r.ProcessingTime)
		if r.TextScore < 0.8 {
			fmt.Fprintf(out, "  Extracted: %s\n", truncate(strings.ReplaceAll(r.ExtractedText, "\n", " / "), 80))
		}
	}
	return nil
}

func printCSVReport(spec *results.EvalSpec, out io.Writer) error {
	writer := csv.NewWriter(out)

	header := []string{"ID", "Image", "Text Score", "Diagram Recall", "Diagrams Found", "Processing Time", "Error"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, r := range spec.Results {
		row := []string{
			r.ID,
			r.ImagePath,
			fmt.Sprintf("%.4f", r.TextScore),
			fmt.Sprintf("%.4f", r.DiagramRecall),
			fmt.Sprintf("%d", r.DiagramsFound),
			r.ProcessingTime.String(),
			r.Error,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
