// Package handlers exposes sessions, review actions and exports over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/config"
	"github.com/boarddeck/boarddeck/internal/exporter"
	"github.com/boarddeck/boarddeck/internal/extraction"
	"github.com/boarddeck/boarddeck/internal/images"
	"github.com/boarddeck/boarddeck/internal/models"
	"github.com/boarddeck/boarddeck/internal/review"
	"github.com/boarddeck/boarddeck/internal/storage"
	"github.com/boarddeck/boarddeck/internal/themes"
)

// ProviderChoice selects the backends for one upload. Empty fields fall back to config.
type ProviderChoice struct {
	TextProvider    string `json:"provider"`
	TextModel       string `json:"model"`
	DiagramProvider string `json:"diagram_provider"`
	DiagramModel    string `json:"diagram_model"`
}

// Extractor is the extraction boundary as seen by the HTTP layer.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*extraction.Result, error)
}

// ExtractorFactory builds an Extractor for a provider choice.
type ExtractorFactory func(choice ProviderChoice) (Extractor, error)

type Handler struct {
	cfg          *config.Config
	sessionStore storage.Store
	exporter     *exporter.Service
	catalog      *themes.Catalog
	fetcher      *images.Fetcher
	newExtractor ExtractorFactory
}

func New(cfg *config.Config, store storage.Store, exp *exporter.Service, catalog *themes.Catalog) *Handler {
	return &Handler{
		cfg:          cfg,
		sessionStore: store,
		exporter:     exp,
		catalog:      catalog,
		fetcher:      images.NewFetcher(cfg.MaxUploadBytes),
		newExtractor: ConfiguredExtractor(cfg),
	}
}

// WithExtractor replaces the extractor factory.
func (h *Handler) WithExtractor(f ExtractorFactory) *Handler {
	h.newExtractor = f
	return h
}

// ConfiguredExtractor builds extraction services from the provider registry.
func ConfiguredExtractor(cfg *config.Config) ExtractorFactory {
	return func(choice ProviderChoice) (Extractor, error) {
		svc, err := extraction.NewConfigured(cfg, choice.TextProvider, choice.TextModel, choice.DiagramProvider, choice.DiagramModel)
		if err != nil {
			return nil, err
		}
		return svc, nil
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.HTTPStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = "internal server error"
	} else {
		slog.Warn("Request rejected", "method", r.Method, "path", r.URL.Path, "status", code, "err", err)
	}
	h.writeJSON(w, code, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidInput("request body is empty")
		}
		return apperr.InvalidInput("invalid JSON: %v", err)
	}
	return nil
}

// sessionView is a session as the API returns it, with the review text resolved.
type sessionView struct {
	*models.Session
	Text string `json:"text"`
}

func view(s *models.Session) sessionView {
	return sessionView{Session: s, Text: review.Restore(s.Content, s.CommittedText, s.Review).Text()}
}
