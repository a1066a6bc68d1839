package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// SampleResult is the outcome of extracting one labelled board.
type SampleResult struct {
	ID             string        `json:"id" yaml:"id"`
	ImagePath      string        `json:"image_path" yaml:"imagepath"`
	ExtractedText  string        `json:"extracted_text" yaml:"extractedtext"`
	TextScore      float64       `json:"text_score" yaml:"textscore"`
	DiagramRecall  float64       `json:"diagram_recall" yaml:"diagramrecall"`
	DiagramsFound  int           `json:"diagrams_found" yaml:"diagramsfound"`
	ProcessingTime time.Duration `json:"processing_time" yaml:"processingtime"`
	Error          string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Stats summarizes one score across successful samples.
type Stats struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

// Summary aggregates a run.
type Summary struct {
	TotalSamples          int           `json:"total_samples" yaml:"totalsamples"`
	SuccessCount          int           `json:"success_count" yaml:"successcount"`
	FailureCount          int           `json:"failure_count" yaml:"failurecount"`
	Text                  Stats         `json:"text" yaml:"text"`
	Diagrams              Stats         `json:"diagrams" yaml:"diagrams"`
	AverageProcessingTime time.Duration `json:"average_processing_time" yaml:"averageprocessingtime"`
	TotalProcessingTime   time.Duration `json:"total_processing_time" yaml:"totalprocessingtime"`
}

// Aggregate computes summary statistics. Failed samples count only toward the totals.
func Aggregate(results []SampleResult) Summary {
	s := Summary{TotalSamples: len(results)}

	var text, diagrams []float64
	var successDuration time.Duration
	for _, r := range results {
		s.TotalProcessingTime += r.ProcessingTime
		if r.Error != "" {
			s.FailureCount++
			continue
		}
		s.SuccessCount++
		successDuration += r.ProcessingTime
		text = append(text, r.TextScore)
		diagrams = append(diagrams, r.DiagramRecall)
	}

	if s.SuccessCount > 0 {
		s.Text = stats(text)
		s.Diagrams = stats(diagrams)
		s.AverageProcessingTime = successDuration / time.Duration(s.SuccessCount)
	}
	return s
}

func stats(scores []float64) Stats {
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return Stats{
		Mean:   sum / float64(len(sorted)),
		Median: median,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}

// PrintSummary writes a human-readable summary.
func (s Summary) PrintSummary(w io.Writer, provider, model string) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "BOARDDECK EXTRACTION EVALUATION")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Provider: %s\n", provider)
	fmt.Fprintf(w, "Model: %s\n", model)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "PROCESSING STATISTICS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "Total Samples: %d\n", s.TotalSamples)
	if s.TotalSamples > 0 {
		fmt.Fprintf(w, "Successful: %d (%.1f%%)\n", s.SuccessCount, float64(s.SuccessCount)/float64(s.TotalSamples)*100)
		fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", s.FailureCount, float64(s.FailureCount)/float64(s.TotalSamples)*100)
	}
	fmt.Fprintf(w, "Average Processing Time: %s\n", s.AverageProcessingTime)
	fmt.Fprintf(w, "Total Processing Time: %s\n", s.TotalProcessingTime)
	fmt.Fprintln(w)

	printStats(w, "Text similarity", s.Text)
	printStats(w, "Diagram recall", s.Diagrams)
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

func printStats(w io.Writer, name string, st Stats) {
	fmt.Fprintf(w, "%s:\n", name)
	fmt.Fprintf(w, "  Mean:   %.2f%%\n", st.Mean*100)
	fmt.Fprintf(w, "  Median: %.2f%%\n", st.Median*100)
	fmt.Fprintf(w, "  Min:    %.2f%%\n", st.Min*100)
	fmt.Fprintf(w, "  Max:    %.2f%%\n", st.Max*100)
}
