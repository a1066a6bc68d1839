package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/boarddeck/boarddeck/internal/config"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boarddeck",
		Short: "Turn whiteboard photos into slide decks",
		Long: `boarddeck extracts text and diagrams from a photographed whiteboard, lets you
review and correct the result, and exports it as a PowerPoint deck or a PDF.

Text and diagrams come from vision LLMs (Ollama, OpenAI, Gemini, Anthropic), Tesseract OCR,
or a Roboflow diagram detector.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			config.Load().SetupLogging()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newEvalCmd())

	return cmd
}
