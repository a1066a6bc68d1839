package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/boarddeck/boarddeck/internal/config"
	"github.com/boarddeck/boarddeck/internal/extraction"
	"github.com/boarddeck/boarddeck/internal/images"
)

func newExtractCmd() *cobra.Command {
	var provider, model, diagramProvider, diagramModel, output string

	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Extract text and diagrams from a whiteboard photo",
		Long: `Runs text extraction and diagram detection on one image and prints the
result as JSON. The output can be edited and passed to "boarddeck export".`,
		Example: `  boarddeck extract board.jpg > board.json
  boarddeck extract board.jpg --provider tesseract --diagram-provider roboflow -o board.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open image: %w", err)
			}
			defer file.Close()
			data, err := images.ReadLimited(file, cfg.MaxUploadBytes)
			if err != nil {
				return err
			}

			svc, err := extraction.NewConfigured(cfg, provider, model, diagramProvider, diagramModel)
			if err != nil {
				return err
			}
			res, err := svc.Extract(cmd.Context(), data)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(res.Content, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			if output == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			}
			return os.WriteFile(output, append(out, '\n'), 0644)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Text provider (ollama, openai, gemini, anthropic, tesseract)")
	cmd.Flags().StringVar(&model, "model", "", "Text model (defaults to the provider's default)")
	cmd.Flags().StringVar(&diagramProvider, "diagram-provider", "", "Diagram provider (ollama, openai, gemini, anthropic, roboflow, none)")
	cmd.Flags().StringVar(&diagramModel, "diagram-model", "", "Diagram model (defaults to the provider's default)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write JSON to this file instead of stdout")

	return cmd
}
