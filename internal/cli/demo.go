package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/intentlayer/intentlayer/internal/stage"
	"github.com/intentlayer/intentlayer/internal/workflow"
)

var (
	demoInteractive bool
	demoCopy        bool
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the whole workflow once and print the summary",
	Long: `Run goal → sync → variants → runs → results in memory and print
the experiment summary.

Examples:
  intentlayer demo
  intentlayer demo --interactive
  intentlayer demo --copy`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().BoolVarP(&demoInteractive, "interactive", "i", false, "prompt for the goal instead of using the demo goal")
	demoCmd.Flags().BoolVar(&demoCopy, "copy", false, "copy the summary to the clipboard")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	form := stage.DemoGoalForm()
	if demoInteractive {
		var err error
		form, err = promptGoal()
		if err != nil {
			return err
		}
	}

	flow := newFlow()
	fmt.Fprintln(cmd.ErrOrStderr(), "Syncing metrics...")
	if err := runFlow(flow, form); err != nil {
		return err
	}

	st := flow.Snapshot()
	loc := location()
	fmt.Fprintln(cmd.OutOrStdout(), stage.ExportText(st, loc))

	if demoCopy && stage.CopyExport(stage.SystemClipboard{}, st, loc) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard.")
	}
	return nil
}

// promptGoal asks for each goal field, starting from the demo values.
func promptGoal() (stage.GoalForm, error) {
	form := stage.DemoGoalForm()

	text := func(label, def string, validate promptui.ValidateFunc) (string, error) {
		prompt := promptui.Prompt{
			Label:    label,
			Default:  def,
			Validate: validate,
		}
		return prompt.Run()
	}
	required := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("required")
		}
		return nil
	}
	number := func(s string) error {
		if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return errors.New("must be a number")
		}
		return nil
	}

	var err error
	if form.MetricName, err = text("Metric name", form.MetricName, required); err != nil {
		return form, promptErr(err)
	}
	if form.Baseline, err = text("Baseline", form.Baseline, number); err != nil {
		return form, promptErr(err)
	}
	if form.Target, err = text("Target", form.Target, number); err != nil {
		return form, promptErr(err)
	}

	units := []workflow.Unit{workflow.UnitPercent, workflow.UnitAbsolute}
	unit := promptui.Select{
		Label: "Unit",
		Items: units,
	}
	idx, _, err := unit.Run()
	if err != nil {
		return form, promptErr(err)
	}
	form.Unit = units[idx]

	if form.AppArea, err = text("App area", form.AppArea, required); err != nil {
		return form, promptErr(err)
	}
	if form.Screens, err = text("Screens (comma separated)", form.Screens, required); err != nil {
		return form, promptErr(err)
	}

	risks := []workflow.RiskLevel{workflow.RiskLow, workflow.RiskMedium, workflow.RiskHigh}
	risk := promptui.Select{
		Label:     "Risk tolerance",
		Items:     risks,
		CursorPos: 1,
	}
	if idx, _, err = risk.Run(); err != nil {
		return form, promptErr(err)
	}
	form.RiskTolerance = risks[idx]

	if errs := form.Validate(); len(errs) > 0 {
		return form, fmt.Errorf("invalid goal: %s", form.ErrorSummary())
	}
	return form, nil
}

func promptErr(err error) error {
	if err == promptui.ErrInterrupt {
		os.Exit(0)
	}
	return fmt.Errorf("prompt failed: %w", err)
}
