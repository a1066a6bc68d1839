package cmd

import (
	"github.com/spf13/cobra"

	"github.com/boarddeck/boarddeck/internal/evalcmd"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Extraction evaluation tools",
		Long: `Evaluation tools for measuring how well text extraction and diagram detection
recover what is on a whiteboard, against a labelled dataset.`,
	}

	cmd.AddCommand(evalcmd.NewRunCmd())
	cmd.AddCommand(evalcmd.NewReportCmd())

	return cmd
}
