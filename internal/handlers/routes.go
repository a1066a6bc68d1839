package handlers

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/boarddeck/boarddeck/internal/artifacts"
)

// Router wires every endpoint onto a chi router with CORS and per-IP rate limiting.
// Exports are served from disk only when the artifact store is local.
func (h *Handler) Router(store artifacts.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: splitOrigins(h.cfg.AllowedOrigins),
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	r.Route("/api", func(api chi.Router) {
		if h.cfg.RateLimit > 0 {
			api.Use(httprate.LimitByIP(h.cfg.RateLimit, time.Minute))
		}

		api.Get("/catalog", h.HandleCatalog)
		api.Post("/upload", h.HandleUpload)

		api.Get("/sessions", h.HandleListSessions)
		api.Route("/sessions/{id}", func(s chi.Router) {
			s.Get("/", h.HandleGetSession)
			s.Delete("/", h.HandleDeleteSession)
			s.Post("/image", h.HandleReplaceImage)

			s.Post("/edit", h.HandleBeginEdit)
			s.Put("/draft", h.HandleDraft)
			s.Post("/save", h.HandleSave)
			s.Post("/cancel", h.HandleCancel)
			s.Post("/select", h.HandleSelectDiagram)
			s.Put("/diagrams/{diagramID}", h.HandleRelabelDiagram)

			s.Patch("/settings", h.HandleUpdateSettings)
			s.Put("/template", h.HandleSetTemplate)
			s.Get("/slides", h.HandleSlides)
			s.Post("/export", h.HandleExport)
		})
	})

	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(noListing{http.Dir(h.cfg.UploadsDir)})))
	if local, ok := store.(*artifacts.LocalStore); ok {
		r.Handle("/exports/*", http.StripPrefix("/exports/", http.FileServer(noListing{http.Dir(local.Dir())})))
	}

	return r
}

// noListing hides directory indexes.
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	if stat, err := f.Stat(); err == nil && stat.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
