//go:build cgo && !windows

package tesseract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/providers"
)

// Tesseract extracts text locally with libtesseract. It does not detect diagrams.
type Tesseract struct {
	languages []string
}

// New creates a text extractor for the given tesseract language codes
func New(languages []string) *Tesseract {
	langs := make([]string, 0, len(languages))
	for _, l := range languages {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &Tesseract{languages: langs}
}

func (t *Tesseract) Name() string { return "tesseract" }

// ExtractText runs OCR on the image. A client per call keeps concurrent requests independent.
func (t *Tesseract) ExtractText(ctx context.Context, img providers.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.Upstream(err, false, "ocr cancelled")
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", apperr.Upstream(err, false, "failed to set OCR language")
	}
	// whiteboards mix headings, lists and scattered notes
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", apperr.Upstream(err, false, "failed to set page segmentation mode")
	}
	if err := client.SetImageFromBytes(img.Data); err != nil {
		return "", apperr.Upstream(err, false, "failed to set image")
	}

	text, err := client.Text()
	if err != nil {
		return "", apperr.Upstream(err, false, "failed to extract text")
	}

	text = strings.TrimSpace(text)
	slog.Info("Extracted OCR text", "provider", "tesseract", "length", len(text))
	return text, nil
}
