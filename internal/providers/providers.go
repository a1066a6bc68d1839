package providers

import (
	"context"

	"github.com/boarddeck/boarddeck/internal/models"
)

// Config represents the configuration for a single vision model call
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
}

// Image is the payload sent to a provider.
type Image struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// VisionModel is an LLM backend that can answer a prompt about one image.
type VisionModel interface {
	Name() string
	Generate(ctx context.Context, config Config, img Image) (string, error)
}

// TextExtractor turns an image into text. Empty text is a valid result.
type TextExtractor interface {
	Name() string
	ExtractText(ctx context.Context, img Image) (string, error)
}

// DiagramDetector finds diagram regions in an image. An empty list is a valid result.
type DiagramDetector interface {
	Name() string
	DetectDiagrams(ctx context.Context, img Image) ([]models.Diagram, error)
}
