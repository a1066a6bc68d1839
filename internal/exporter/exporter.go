// Package exporter turns reviewed content into a stored slide deck or PDF.
package exporter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/artifacts"
	"github.com/boarddeck/boarddeck/internal/models"
	"github.com/boarddeck/boarddeck/internal/render"
	"github.com/boarddeck/boarddeck/internal/slides"
	"github.com/boarddeck/boarddeck/internal/themes"
)

// Request is everything one export needs.
type Request struct {
	Content   models.ExtractedContent
	Template  string
	Settings  models.ExportSettings
	Format    models.ExportFormat
	Title     string
	Source    *render.SourceImage
	SourceURL string
}

type Service struct {
	catalog *themes.Catalog
	store   artifacts.Store
	guard   *Guard
}

func NewService(catalog *themes.Catalog, store artifacts.Store) *Service {
	return &Service{
		catalog: catalog,
		store:   store,
		guard:   NewGuard(),
	}
}

// ExportSession exports on behalf of a session. The error is non-nil only when another
// export for the same session is still running; every other failure is in the result.
func (s *Service) ExportSession(ctx context.Context, sessionID string, req Request) (models.ExportResult, error) {
	var result models.ExportResult
	err := s.guard.Do(sessionID, func() error {
		result = s.Export(ctx, req)
		return nil
	})
	return result, err
}

// Export validates, renders and stores the document. Identical requests map to the same
// artifact key, so retrying an export overwrites rather than duplicates.
func (s *Service) Export(ctx context.Context, req Request) models.ExportResult {
	start := time.Now()
	url, n, err := s.export(ctx, req)
	if err != nil {
		slog.Error("Export failed", "format", req.Format, "template", req.Template, "kind", apperr.KindOf(err), "err", err)
		return models.Failed(req.Format, err)
	}

	slog.Info("Export complete", "format", req.Format, "template", req.Template, "slides", n, "url", url, "duration", time.Since(start))
	return models.Succeeded(req.Format, url)
}

func (s *Service) export(ctx context.Context, req Request) (string, int, error) {
	data, format, n, err := s.Render(req)
	if err != nil {
		return "", 0, err
	}

	key, err := Key(req)
	if err != nil {
		return "", 0, err
	}
	url, err := s.store.Put(ctx, key+"."+string(format), format.ContentType(), data)
	if err != nil {
		return "", 0, err
	}
	return url, n, nil
}

// Render validates the request and encodes the document without storing it.
// It returns the bytes, the parsed format and the slide count.
func (s *Service) Render(req Request) ([]byte, models.ExportFormat, int, error) {
	format, err := models.ParseExportFormat(string(req.Format))
	if err != nil {
		return nil, "", 0, apperr.InvalidInput("%v", err)
	}
	if strings.TrimSpace(req.Content.Text) == "" && len(req.Content.Diagrams) == 0 {
		return nil, "", 0, apperr.InvalidInput("nothing to export: content has no text and no diagrams")
	}

	style, err := s.catalog.Resolve(req.Template, req.Settings.Theme, req.Settings)
	if err != nil {
		return nil, "", 0, err
	}

	deck := render.Deck{
		Title:  req.Title,
		Slides: slides.Build(req.Content, slides.Options{Settings: req.Settings, SourceImageURL: req.SourceURL}),
		Style:  style,
		Source: req.Source,
	}

	renderer, err := render.For(format)
	if err != nil {
		return nil, "", 0, err
	}
	data, err := renderer.Render(deck)
	if err != nil {
		return nil, "", 0, err
	}
	return data, format, len(deck.Slides), nil
}

// Key is the SHA-256 of the canonical request: the content, styling, format and source image digest.
func Key(req Request) (string, error) {
	canonical := struct {
		Content   models.ExtractedContent `json:"content"`
		Template  string                  `json:"template"`
		Settings  models.ExportSettings   `json:"settings"`
		Format    models.ExportFormat     `json:"format"`
		Title     string                  `json:"title"`
		SourceURL string                  `json:"source_url"`
		Source    string                  `json:"source"`
	}{
		Content:   req.Content,
		Template:  strings.ToLower(req.Template),
		Settings:  req.Settings,
		Format:    models.ExportFormat(strings.ToLower(string(req.Format))),
		Title:     req.Title,
		SourceURL: req.SourceURL,
	}
	if req.Source != nil {
		sum := sha256.Sum256(req.Source.Data)
		canonical.Source = hex.EncodeToString(sum[:])
	}

	b, err := json.Marshal(canonical)
	if err != nil {
		return "", apperr.Generation(err, "failed to encode export request")
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
