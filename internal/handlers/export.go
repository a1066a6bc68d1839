package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/boarddeck/boarddeck/internal/exporter"
	"github.com/boarddeck/boarddeck/internal/images"
	"github.com/boarddeck/boarddeck/internal/models"
	"github.com/boarddeck/boarddeck/internal/render"
)

// HandleExport renders the session's committed content. The body is always an ExportResult
// except when another export for the session is running, which is a 409.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Format string `json:"format"`
	}
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	session, err := h.sessionStore.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	req := exporter.Request{
		Content:  session.Content,
		Template: session.Template,
		Settings: session.Settings,
		Format:   models.ExportFormat(body.Format),
		Title:    strings.TrimSuffix(session.Image.Filename, extOf(session.Image.Filename)),
	}
	if session.Settings.IncludeSourceImage {
		req.Source = h.loadSource(session.Image)
		req.SourceURL = session.Image.URL
	}

	result, err := h.exporter.ExportSession(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.sessionStore.Update(r.Context(), id, func(s *models.Session) error {
		s.LastExport = &result
		s.UpdatedAt = time.Now().UTC()
		return nil
	}); err != nil {
		slog.Warn("Unable to record export result", "session_id", id, "err", err)
	}
	h.writeJSON(w, http.StatusOK, result)
}

// loadSource reads the uploaded image back for embedding. A missing file only drops the picture.
func (h *Handler) loadSource(info models.ImageInfo) *render.SourceImage {
	if info.Path == "" {
		return nil
	}
	data, err := os.ReadFile(info.Path)
	if err != nil {
		slog.Warn("Source image unavailable", "path", info.Path, "err", err)
		return nil
	}
	img, err := images.Inspect(data, h.cfg.MaxImagePixels)
	if err != nil {
		slog.Warn("Source image unreadable", "path", info.Path, "err", err)
		return nil
	}
	return &render.SourceImage{Data: img.Data, MimeType: img.MimeType, Width: img.Width, Height: img.Height}
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.catalog)
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i:]
	}
	return ""
}
