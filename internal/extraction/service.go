package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/images"
	"github.com/boarddeck/boarddeck/internal/models"
	"github.com/boarddeck/boarddeck/internal/providers"
)

// Service turns a whiteboard photo into extracted text and diagrams.
type Service struct {
	text     providers.TextExtractor
	diagrams providers.DiagramDetector
	maxEdge  int
	timeout  time.Duration

	// MaxPixels caps decoded image size; images.DefaultMaxPixels when zero.
	MaxPixels int
}

// Result is the extraction output plus what was learned about the source image.
type Result struct {
	Content models.ExtractedContent
	Image   *images.Image
}

func NewService(text providers.TextExtractor, diagrams providers.DiagramDetector, maxEdge int, timeout time.Duration) *Service {
	return &Service{
		text:     text,
		diagrams: diagrams,
		maxEdge:  maxEdge,
		timeout:  timeout,
	}
}

// Extract validates the image, preprocesses it, and runs text extraction and diagram
// detection concurrently. Either call failing fails the extraction; empty results are not failures.
func (s *Service) Extract(ctx context.Context, data []byte) (*Result, error) {
	src, err := images.Inspect(data, s.MaxPixels)
	if err != nil {
		return nil, err
	}

	work, scale, err := images.Preprocess(src, s.maxEdge)
	if err != nil {
		// fall back to the original bytes rather than failing the upload
		slog.Warn("Image preprocessing failed, using original", "err", err)
		work, scale = src, 1
	}

	payload := providers.Image{Data: work.Data, MimeType: work.MimeType, Width: work.Width, Height: work.Height}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	var text string
	var diagrams []models.Diagram

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.text.ExtractText(gctx, payload)
		if err != nil {
			return fmt.Errorf("text extraction (%s): %w", s.text.Name(), asUpstream(err))
		}
		text = t
		return nil
	})
	g.Go(func() error {
		d, err := s.diagrams.DetectDiagrams(gctx, payload)
		if err != nil {
			return fmt.Errorf("diagram detection (%s): %w", s.diagrams.Name(), asUpstream(err))
		}
		diagrams = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	content := models.ExtractedContent{
		Text:     strings.TrimSpace(text),
		Diagrams: NormalizeDiagrams(diagrams, scale),
	}

	slog.Info("Extraction complete",
		"text_provider", s.text.Name(),
		"diagram_provider", s.diagrams.Name(),
		"text_length", len(content.Text),
		"diagrams", len(content.Diagrams),
		"duration", time.Since(start))

	return &Result{Content: content, Image: src}, nil
}

// NormalizeDiagrams assigns missing ids, makes ids unique, normalizes kinds, and maps
// coordinates from the preprocessed image back to source-image space.
func NormalizeDiagrams(in []models.Diagram, scale float64) []models.Diagram {
	out := make([]models.Diagram, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, d := range in {
		base := strings.TrimSpace(d.ID)
		if base == "" {
			base = fmt.Sprintf("diagram-%d", i+1)
		}
		id := base
		for n := 2; seen[id]; n++ {
			id = fmt.Sprintf("%s-%d", base, n)
		}
		seen[id] = true

		coords := make([]models.Point, len(d.Coordinates))
		for j, p := range d.Coordinates {
			if scale > 0 && scale != 1 {
				p = models.Point{X: p.X / scale, Y: p.Y / scale}
			}
			coords[j] = p
		}

		out = append(out, models.Diagram{
			ID:          id,
			Type:        models.ParseDiagramKind(string(d.Type)),
			Coordinates: coords,
			Label:       strings.TrimSpace(d.Label),
		})
	}
	return out
}

// asUpstream keeps classified errors and marks anything else as a permanent upstream failure.
func asUpstream(err error) error {
	if apperr.KindOf(err) != "" {
		return err
	}
	return apperr.Upstream(err, false, "provider call failed")
}
