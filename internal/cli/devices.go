package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the devices runs are queued on",
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDEVICE\tOS")
	for _, d := range workflow.Devices() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Label, d.OS)
	}
	return w.Flush()
}
