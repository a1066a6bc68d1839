package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boarddeck/boarddeck/internal/artifacts"
	"github.com/boarddeck/boarddeck/internal/config"
	"github.com/boarddeck/boarddeck/internal/exporter"
	"github.com/boarddeck/boarddeck/internal/images"
	"github.com/boarddeck/boarddeck/internal/models"
	"github.com/boarddeck/boarddeck/internal/render"
	"github.com/boarddeck/boarddeck/internal/themes"
)

func newExportCmd() *cobra.Command {
	var format, template, theme, imagePath, title, output string
	var settings []string

	cmd := &cobra.Command{
		Use:   "export <content.json>",
		Short: "Export extracted content as a PPTX deck or PDF",
		Long: `Builds slides from a content file (the JSON printed by "boarddeck extract")
and renders them with the chosen template and theme.

With --output the document is written to that path. Otherwise it is stored
like a server export (local exports directory or S3) and the result is printed.`,
		Example: `  boarddeck export board.json --format pdf -o board.pdf
  boarddeck export board.json --template creative-1 --theme dark --set slide_count=minimal --image board.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read content: %w", err)
			}
			var content models.ExtractedContent
			if err := json.Unmarshal(raw, &content); err != nil {
				return fmt.Errorf("failed to parse content %s: %w", args[0], err)
			}
			if err := content.Validate(); err != nil {
				return fmt.Errorf("invalid content: %w", err)
			}

			s := models.DefaultExportSettings()
			s.Theme = cfg.DefaultTheme
			if theme != "" {
				s.Theme = theme
			}
			for _, kv := range settings {
				key, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid --set %q (expected key=value)", kv)
				}
				if s, err = s.Update(key, value); err != nil {
					return err
				}
			}
			if template == "" {
				template = cfg.DefaultLayout
			}

			req := exporter.Request{
				Content:  content,
				Template: template,
				Settings: s,
				Format:   models.ExportFormat(format),
				Title:    title,
			}
			if imagePath != "" && s.IncludeSourceImage {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("failed to read image: %w", err)
				}
				img, err := images.Inspect(data, cfg.MaxImagePixels)
				if err != nil {
					return err
				}
				req.Source = &render.SourceImage{Data: img.Data, MimeType: img.MimeType, Width: img.Width, Height: img.Height}
				req.SourceURL = filepath.Base(imagePath)
			}

			catalog, err := themes.Default()
			if err != nil {
				return err
			}

			if output != "" {
				data, _, n, err := exporter.NewService(catalog, nil).Render(req)
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d slides to %s\n", n, output)
				return nil
			}

			store, err := artifacts.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			result := exporter.NewService(catalog, store).Export(cmd.Context(), req)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if !result.OK() {
				return fmt.Errorf("export failed: %s", *result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "pptx", "Output format (pptx or pdf)")
	cmd.Flags().StringVar(&template, "template", "", "Template id (prof-1, prof-2, creative-1, minimal-1)")
	cmd.Flags().StringVar(&theme, "theme", "", "Theme id (light, dark, colorful, monochrome)")
	cmd.Flags().StringArrayVar(&settings, "set", nil, "Export setting as key=value (repeatable)")
	cmd.Flags().StringVar(&imagePath, "image", "", "Source whiteboard image to embed")
	cmd.Flags().StringVar(&title, "title", "", "Deck title")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to this path")

	return cmd
}
