package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/boarddeck/boarddeck/internal/eval/metrics"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	TextProvider    string `yaml:"textprovider" json:"text_provider"`
	TextModel       string `yaml:"textmodel" json:"text_model"`
	DiagramProvider string `yaml:"diagramprovider" json:"diagram_provider"`
	DiagramModel    string `yaml:"diagrammodel" json:"diagram_model"`
	DatasetPath     string `yaml:"datasetpath" json:"dataset_path"`
	SampleSize      int    `yaml:"samplesize" json:"sample_size"`
	Timestamp       string `yaml:"timestamp" json:"timestamp"`
}

// EvalSpec is the complete YAML document for one run.
type EvalSpec struct {
	Config  EvalConfig             `yaml:"config" json:"config"`
	Summary metrics.Summary        `yaml:"summary" json:"summary"`
	Results []metrics.SampleResult `yaml:"results" json:"results"`
}

// SaveToYAML writes the run to dir/<model>-<timestamp>.yaml and returns the path.
func SaveToYAML(dir string, cfg EvalConfig, results []metrics.SampleResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	if cfg.Timestamp == "" {
		cfg.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}
	if cfg.SampleSize == 0 {
		cfg.SampleSize = len(results)
	}
	spec := EvalSpec{
		Config:  cfg,
		Summary: metrics.Aggregate(results),
		Results: results,
	}

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	name := cfg.TextModel
	if name == "" {
		name = cfg.TextProvider
	}
	name = strings.NewReplacer("/", "_", ":", "_").Replace(name)
	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.yaml", name, cfg.Timestamp))
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}
	return filename, nil
}

// LoadYAML reads a run written by SaveToYAML.
func LoadYAML(path string) (*EvalSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	var spec EvalSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse results %s: %w", path, err)
	}
	return &spec, nil
}
