package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/boarddeck/boarddeck/internal/apperr"
	"github.com/boarddeck/boarddeck/internal/models"
	"github.com/boarddeck/boarddeck/internal/review"
	"github.com/boarddeck/boarddeck/internal/slides"
)

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessionStore.GetAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		list = append(list, view(s))
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionStore.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view(session))
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionStore.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// edit loads the session's editor, applies fn and persists the resulting review state.
func (h *Handler) edit(w http.ResponseWriter, r *http.Request, fn func(*review.Editor, *models.Session) error) {
	session, err := h.sessionStore.Update(r.Context(), chi.URLParam(r, "id"), func(s *models.Session) error {
		e := review.Restore(s.Content, s.CommittedText, s.Review)
		if err := fn(e, s); err != nil {
			return err
		}
		s.CommittedText = e.CommittedText()
		s.Review = e.State()
		s.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view(session))
}

func (h *Handler) HandleBeginEdit(w http.ResponseWriter, r *http.Request) {
	h.edit(w, r, func(e *review.Editor, _ *models.Session) error {
		return e.BeginEdit()
	})
}

func (h *Handler) HandleDraft(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.edit(w, r, func(e *review.Editor, _ *models.Session) error {
		return e.SetDraft(body.Text)
	})
}

func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	h.edit(w, r, func(e *review.Editor, s *models.Session) error {
		return e.Save(func(c review.Changes) error {
			s.Content = models.ExtractedContent{Text: c.Text, Diagrams: c.Diagrams}
			return nil
		})
	})
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.edit(w, r, func(e *review.Editor, _ *models.Session) error {
		return e.Cancel()
	})
}

func (h *Handler) HandleSelectDiagram(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DiagramID string `json:"diagram_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.edit(w, r, func(e *review.Editor, _ *models.Session) error {
		return e.SelectDiagram(body.DiagramID)
	})
}

func (h *Handler) HandleRelabelDiagram(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Label string `json:"label"`
	}
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	diagramID := chi.URLParam(r, "diagramID")
	h.edit(w, r, func(e *review.Editor, s *models.Session) error {
		return e.RelabelDiagram(diagramID, strings.TrimSpace(body.Label), func(c review.Changes) error {
			s.Content.Diagrams = c.Diagrams
			return nil
		})
	})
}

func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	session, err := h.sessionStore.Update(r.Context(), chi.URLParam(r, "id"), func(s *models.Session) error {
		next, err := s.Settings.Update(body.Key, body.Value)
		if err != nil {
			return apperr.InvalidInput("%v", err)
		}
		if _, ok := h.catalog.Theme(next.Theme); !ok {
			return apperr.InvalidInput("unknown theme %q", next.Theme)
		}
		s.Settings = next
		s.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, session.Settings)
}

func (h *Handler) HandleSetTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Template string `json:"template"`
	}
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	tmpl, ok := h.catalog.Template(body.Template)
	if !ok {
		h.writeError(w, r, apperr.InvalidInput("unknown template %q", body.Template))
		return
	}

	session, err := h.sessionStore.Update(r.Context(), chi.URLParam(r, "id"), func(s *models.Session) error {
		s.Template = tmpl.ID
		s.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view(session))
}

// HandleSlides previews the slides an export would produce from the committed content.
func (h *Handler) HandleSlides(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionStore.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	deck := slides.Build(session.Content, slides.Options{
		Settings:       session.Settings,
		SourceImageURL: session.Image.URL,
	})
	h.writeJSON(w, http.StatusOK, deck)
}
