package results

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boarddeck/boarddeck/internal/eval/metrics"
)

func TestSaveAndLoadYAML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "evals")
	cfg := EvalConfig{TextProvider: "ollama", TextModel: "qwen2.5vl:7b", DatasetPath: "boards.jsonl", Timestamp: "2026-01-02_03-04-05"}
	runs := []metrics.SampleResult{
		{ID: "b1", TextScore: 0.9, DiagramRecall: 1, ProcessingTime: time.Second},
		{ID: "b2", Error: "timeout"},
	}

	path, err := SaveToYAML(dir, cfg, runs)
	if err != nil {
		t.Fatalf("SaveToYAML: %v", err)
	}
	if filepath.Base(path) != "qwen2.5vl_7b-2026-01-02_03-04-05.yaml" {
		t.Errorf("filename = %s", filepath.Base(path))
	}

	spec, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if spec.Config.SampleSize != 2 || spec.Summary.SuccessCount != 1 || spec.Summary.FailureCount != 1 {
		t.Errorf("spec = %+v", spec)
	}
	if len(spec.Results) != 2 || spec.Results[1].Error != "timeout" || spec.Results[0].ProcessingTime != time.Second {
		t.Errorf("results = %+v", spec.Results)
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	if _, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("missing file: %v", err)
	}
}
