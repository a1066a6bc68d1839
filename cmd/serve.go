package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/boarddeck/boarddeck/internal/artifacts"
	"github.com/boarddeck/boarddeck/internal/config"
	"github.com/boarddeck/boarddeck/internal/exporter"
	"github.com/boarddeck/boarddeck/internal/handlers"
	"github.com/boarddeck/boarddeck/internal/storage"
	"github.com/boarddeck/boarddeck/internal/themes"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the boarddeck API server",
		Long: `Starts the boarddeck HTTP API.

Upload a whiteboard photo, review the extracted text and diagrams, pick a
template and theme, and export the result as PPTX or PDF. Sessions live in
memory unless DATABASE_URL is set; exports go to the local exports directory
unless S3_ENDPOINT is set.`,
		Example: `  # Start server on default port 8888
  boarddeck serve

  # Start server on custom port
  boarddeck serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			ctx := cmd.Context()

			catalog, err := themes.Default()
			if err != nil {
				return fmt.Errorf("failed to load template catalog: %w", err)
			}
			sessions, err := storage.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}
			defer sessions.Close()

			store, err := artifacts.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open artifact store: %w", err)
			}

			handler := handlers.New(cfg, sessions, exporter.NewService(catalog, store), catalog)

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Router(store),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("boarddeck API available", "addr", addr, "url", "http://localhost"+addr,
					"text_provider", cfg.TextProvider, "diagram_provider", cfg.DiagramProvider)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				// Exports can take a while; give them 30 seconds to finish
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (overrides PORT)")

	return cmd
}
