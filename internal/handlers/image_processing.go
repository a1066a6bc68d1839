package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/boarddeck/boarddeck/internal/images"
	"github.com/boarddeck/boarddeck/internal/models"
	"github.com/boarddeck/boarddeck/internal/review"
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

// processImage validates and extracts an image, then saves it under the uploads directory.
// Nothing is written when extraction fails.
func (h *Handler) processImage(ctx context.Context, data []byte, filename string, choice ProviderChoice) (models.ImageInfo, models.ExtractedContent, error) {
	img, err := images.Inspect(data, h.cfg.MaxImagePixels)
	if err != nil {
		return models.ImageInfo{}, models.ExtractedContent{}, err
	}

	ext, err := h.newExtractor(choice)
	if err != nil {
		return models.ImageInfo{}, models.ExtractedContent{}, err
	}
	start := time.Now()
	res, err := ext.Extract(ctx, data)
	if err != nil {
		return models.ImageInfo{}, models.ExtractedContent{}, err
	}
	slog.Info("Image extracted", "filename", filename, "diagrams", len(res.Content.Diagrams), "duration", time.Since(start))

	info, err := h.saveImage(img, filename)
	if err != nil {
		return models.ImageInfo{}, models.ExtractedContent{}, err
	}
	return info, res.Content, nil
}

func (h *Handler) saveImage(img *images.Image, filename string) (models.ImageInfo, error) {
	if err := os.MkdirAll(h.cfg.UploadsDir, 0755); err != nil {
		return models.ImageInfo{}, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	sum := sha256.Sum256(img.Data)
	name := hex.EncodeToString(sum[:16]) + extensions[img.MimeType]
	path := filepath.Join(h.cfg.UploadsDir, name)
	if err := os.WriteFile(path, img.Data, 0644); err != nil {
		return models.ImageInfo{}, fmt.Errorf("failed to save image: %w", err)
	}

	slog.Info("Image saved", "filename", name, "original", filename)
	return models.ImageInfo{
		Filename: filename,
		Path:     path,
		URL:      h.cfg.PublicBaseURL + "/uploads/" + name,
		MimeType: img.MimeType,
		Width:    img.Width,
		Height:   img.Height,
	}, nil
}

func (h *Handler) newSession(info models.ImageInfo, content models.ExtractedContent, choice ProviderChoice) *models.Session {
	now := time.Now().UTC()
	settings := models.DefaultExportSettings()
	if h.cfg.DefaultTheme != "" {
		settings.Theme = h.cfg.DefaultTheme
	}
	s := &models.Session{
		ID:        uuid.NewString(),
		Settings:  settings,
		Template:  h.cfg.DefaultLayout,
		CreatedAt: now,
	}
	resetContent(s, info, content, choice)
	return s
}

// resetContent replaces the image and extraction result and restarts review.
func resetContent(s *models.Session, info models.ImageInfo, content models.ExtractedContent, choice ProviderChoice) {
	s.Image = info
	s.Content = content
	s.CommittedText = content.Text
	s.Review = review.NewEditor(content).State()
	s.LastExport = nil
	s.Provider = choice.TextProvider
	s.Model = choice.TextModel
	s.UpdatedAt = time.Now().UTC()
}
