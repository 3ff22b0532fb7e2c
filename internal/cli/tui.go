package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/intentlayer/intentlayer/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal workflow shell",
	Long: `Open the full-screen terminal shell with the six workflow stages.

Keys:
  1-6, tab     switch stage
  d            load the demo goal
  s g q r x    sync, generate, queue, simulate, score
  R            reset the flow
  c            copy the export to the clipboard`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return tui.Run(ctx, newFlow(), tui.WithLocation(location()))
}
