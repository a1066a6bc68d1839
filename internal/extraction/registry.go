package extraction

import (
	"context"
	"fmt"
	"os"

	"github.com/boarddeck/boarddeck/internal/anthropic"
	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/config"
	"github.com/boarddeck/boarddeck/internal/gemini"
	"github.com/boarddeck/boarddeck/internal/models"
	"github.com/boarddeck/boarddeck/internal/ollama"
	"github.com/boarddeck/boarddeck/internal/openai"
	"github.com/boarddeck/boarddeck/internal/providers"
	"github.com/boarddeck/boarddeck/internal/roboflow"
	"github.com/boarddeck/boarddeck/internal/tesseract"
)

// DefaultModel returns the model used when a request names a provider but no model.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return envOr("OPENAI_MODEL", "gpt-4o")
	case "ollama":
		return envOr("OLLAMA_MODEL", "qwen2.5vl:7b")
	case "gemini":
		return envOr("GEMINI_MODEL", "gemini-1.5-flash")
	case "anthropic":
		return envOr("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest")
	case "roboflow":
		return envOr("ROBOFLOW_MODEL", "whiteboard-diagrams/1")
	default:
		return ""
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func visionModel(provider string) (providers.VisionModel, error) {
	switch provider {
	case "openai":
		return openai.New()
	case "gemini":
		return gemini.New()
	case "anthropic":
		return anthropic.New()
	case "ollama":
		return ollama.New(), nil
	default:
		return nil, apperr.InvalidInput("unsupported provider: %s", provider)
	}
}

// NewTextExtractor builds the text extractor for provider, falling back to the configured default.
func NewTextExtractor(provider, model string, cfg *config.Config) (providers.TextExtractor, error) {
	if provider == "" {
		provider = cfg.TextProvider
	}
	if model == "" {
		model = DefaultModel(provider)
	}

	var ext providers.TextExtractor
	switch provider {
	case "tesseract":
		ext = tesseract.New(cfg.TesseractLangs)
	default:
		vm, err := visionModel(provider)
		if err != nil {
			return nil, fmt.Errorf("text provider: %w", err)
		}
		ext = providers.NewVision(vm, model)
	}
	return providers.RetryText(ext, retryPolicy(cfg)), nil
}

// NewDiagramDetector builds the diagram detector for provider. "none" disables detection.
func NewDiagramDetector(provider, model string, cfg *config.Config) (providers.DiagramDetector, error) {
	if provider == "" {
		provider = cfg.DiagramProvider
	}
	if model == "" {
		model = DefaultModel(provider)
	}

	var det providers.DiagramDetector
	switch provider {
	case "none":
		return noDiagrams{}, nil
	case "roboflow":
		det = roboflow.New(cfg.RoboflowURL, model, cfg.RoboflowAPIKey, cfg.RoboflowMinScore)
	default:
		vm, err := visionModel(provider)
		if err != nil {
			return nil, fmt.Errorf("diagram provider: %w", err)
		}
		det = providers.NewVision(vm, model)
	}
	return providers.RetryDiagrams(det, retryPolicy(cfg)), nil
}

func retryPolicy(cfg *config.Config) providers.RetryPolicy {
	return providers.RetryPolicy{Attempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay}
}

type noDiagrams struct{}

func (noDiagrams) Name() string { return "none" }

func (noDiagrams) DetectDiagrams(context.Context, providers.Image) ([]models.Diagram, error) {
	return []models.Diagram{}, nil
}

// NewConfigured builds a Service from provider names, falling back to cfg for empty ones.
func NewConfigured(cfg *config.Config, textProvider, textModel, diagramProvider, diagramModel string) (*Service, error) {
	text, err := NewTextExtractor(textProvider, textModel, cfg)
	if err != nil {
		return nil, err
	}
	diagrams, err := NewDiagramDetector(diagramProvider, diagramModel, cfg)
	if err != nil {
		return nil, err
	}
	svc := NewService(text, diagrams, cfg.MaxImageEdge, cfg.ProviderTimeout)
	svc.MaxPixels = cfg.MaxImagePixels
	return svc, nil
}
