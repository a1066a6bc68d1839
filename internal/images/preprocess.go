package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/boarddeck/boarddeck/internal/apperr"
)

var supportedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

// DefaultMaxPixels bounds width*height when no limit is configured. Decoding allocates per
// pixel, so a small compressed file can otherwise expand to gigabytes.
const DefaultMaxPixels = 50_000_000

// Image is a decoded-enough view of an uploaded whiteboard photo.
type Image struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// Inspect sniffs the content type and reads the dimensions without decoding pixels.
// Images larger than maxPixels (DefaultMaxPixels when <= 0) are rejected.
func Inspect(data []byte, maxPixels int) (*Image, error) {
	if len(data) == 0 {
		return nil, apperr.InvalidInput("image is empty")
	}

	mime := http.DetectContentType(data)
	if !supportedTypes[mime] {
		return nil, apperr.InvalidInput("unsupported image format %q (supported: png, jpeg, gif)", mime)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.InvalidInput("unreadable image: %v", err)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, apperr.InvalidInput("image has no pixels (%dx%d)", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, apperr.InvalidInput("image is too large: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxPixels)
	}

	return &Image{Data: data, MimeType: mime, Width: cfg.Width, Height: cfg.Height}, nil
}

// Preprocess prepares an image for OCR: the longest edge is scaled down to maxEdge
// and pixels are converted to grayscale. The result is PNG encoded.
// Coordinates reported against the result are scaled back by the returned factor.
func Preprocess(img *Image, maxEdge int) (*Image, float64, error) {
	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, 1, fmt.Errorf("decode: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := 1.0
	if maxEdge > 0 && (w > maxEdge || h > maxEdge) {
		if w >= h {
			scale = float64(maxEdge) / float64(w)
		} else {
			scale = float64(maxEdge) / float64(h)
		}
	}

	dw := max(1, int(float64(w)*scale+0.5))
	dh := max(1, int(float64(h)*scale+0.5))

	gray := image.NewGray(image.Rect(0, 0, dw, dh))
	if scale == 1.0 {
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(gray, gray.Bounds(), src, b, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, 1, fmt.Errorf("encode: %w", err)
	}

	return &Image{Data: buf.Bytes(), MimeType: "image/png", Width: dw, Height: dh}, scale, nil
}
