//go:build windows || !cgo

package tesseract

import (
	"context"
	"errors"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/providers"
)

// Tesseract is unavailable on Windows builds; run the Linux container instead.
type Tesseract struct{}

func New(languages []string) *Tesseract {
	return &Tesseract{}
}

func (t *Tesseract) Name() string { return "tesseract" }

func (t *Tesseract) ExtractText(ctx context.Context, img providers.Image) (string, error) {
	return "", apperr.Upstream(errors.New("tesseract is not available on Windows"), false, "ocr unavailable")
}
