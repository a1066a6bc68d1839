package handlers

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/images"
	"github.com/boarddeck/boarddeck/internal/models"
)

type upload struct {
	data     []byte
	filename string
	choice   ProviderChoice
	source   string
}

// HandleUpload creates a session from a multipart file or a JSON {"image_url": ...} body.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	up, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	info, content, err := h.processImage(r.Context(), up.data, up.filename, up.choice)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	session := h.newSession(info, content, up.choice)
	if err := h.sessionStore.Set(r.Context(), session); err != nil {
		h.writeError(w, r, err)
		return
	}

	slog.Info("Session created", "session_id", session.ID, "source", up.source)
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": session.ID,
		"content":    session.Content,
		"session":    view(session),
	})
}

// HandleReplaceImage processes a new image inside an existing session. Settings and
// template are kept; content and review state start over.
func (h *Handler) HandleReplaceImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.sessionStore.Get(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	up, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	info, content, err := h.processImage(r.Context(), up.data, up.filename, up.choice)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	session, err := h.sessionStore.Update(r.Context(), id, func(s *models.Session) error {
		resetContent(s, info, content, up.choice)
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view(session))
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return h.readURLUpload(r.Context(), r)
	}
	return h.readFileUpload(w, r)
}

func (h *Handler) readURLUpload(ctx context.Context, r *http.Request) (*upload, error) {
	var request struct {
		ImageURL string `json:"image_url"`
		ProviderChoice
	}
	if err := decodeJSON(r, &request); err != nil {
		return nil, err
	}
	if strings.TrimSpace(request.ImageURL) == "" {
		return nil, apperr.InvalidInput("image_url is required")
	}

	data, filename, err := h.fetcher.Download(ctx, request.ImageURL)
	if err != nil {
		return nil, err
	}
	return &upload{data: data, filename: filename, choice: request.ProviderChoice, source: "url"}, nil
}

func (h *Handler) readFileUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, apperr.InvalidInput("invalid multipart form: %v", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			return nil, apperr.InvalidInput("failed to read file: %v", err)
		}
	}
	defer file.Close()

	data, err := images.ReadLimited(file, h.cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}

	return &upload{
		data:     data,
		filename: header.Filename,
		choice: ProviderChoice{
			TextProvider:    r.FormValue("provider"),
			TextModel:       r.FormValue("model"),
			DiagramProvider: r.FormValue("diagram_provider"),
			DiagramModel:    r.FormValue("diagram_model"),
		},
		source: "file",
	}, nil
}
