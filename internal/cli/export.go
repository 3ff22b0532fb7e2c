package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/intentlayer/intentlayer/internal/archive"
	"github.com/intentlayer/intentlayer/internal/stage"
	"github.com/intentlayer/intentlayer/internal/workflow"
)

var (
	exportFormat string
	exportOutput string
	exportFresh  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a workflow snapshot",
	Long: `Run the demo workflow and export the resulting state.

Formats:
  text     the experiment summary (same as the dashboard's Copy export)
  json     the full state
  yaml     the full state
  sqlite   a SQLite database for offline analysis (requires --output)

Examples:
  intentlayer export
  intentlayer export --format json > flow.json
  intentlayer export --format sqlite --output flow.db`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "text", "output format (text, json, yaml or sqlite)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to a file instead of stdout")
	exportCmd.Flags().BoolVar(&exportFresh, "fresh", false, "export the initial state instead of a completed demo run")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	switch exportFormat {
	case "text", "json", "yaml":
	case "sqlite":
		if exportOutput == "" {
			return fmt.Errorf("sqlite export requires --output")
		}
	default:
		return fmt.Errorf("invalid format: must be 'text', 'json', 'yaml' or 'sqlite'")
	}

	flow := newFlow()
	if !exportFresh {
		if err := runFlow(flow, stage.DemoGoalForm()); err != nil {
			return err
		}
	}
	st := flow.Snapshot()

	if exportFormat == "sqlite" {
		if err := exportSQLite(cmd, st, exportOutput); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", exportOutput)
		return nil
	}

	var buf bytes.Buffer
	var err error
	switch exportFormat {
	case "text":
		_, err = fmt.Fprintln(&buf, stage.ExportText(st, location()))
	case "json":
		err = exportJSON(&buf, st)
	case "yaml":
		err = exportYAML(&buf, st)
	}
	if err != nil {
		return err
	}

	if exportOutput == "" {
		_, err = buf.WriteTo(cmd.OutOrStdout())
		return err
	}
	if err := os.WriteFile(exportOutput, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

func exportJSON(w io.Writer, st workflow.State) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(st)
}

// exportYAML goes through JSON so the YAML keys match the API field names.
func exportYAML(w io.Writer, st workflow.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return encoder.Close()
}

func exportSQLite(cmd *cobra.Command, st workflow.State, path string) error {
	a, err := archive.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer a.Close()

	if err := a.WriteSnapshot(cmd.Context(), st, time.Now()); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}
