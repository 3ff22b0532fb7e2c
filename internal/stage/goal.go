package stage

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

// ErrInvalidGoal is returned by GoalForm.Submit while validation errors exist.
var ErrInvalidGoal = errors.New("invalid goal")

// ConstraintOption describes a constraint checkbox on the goal form.
type ConstraintOption struct {
	Key   workflow.ConstraintKey
	Label string
	Hint  string
}

var ConstraintOptions = []ConstraintOption{
	{Key: workflow.ConstraintUIOnly, Label: "UI-only", Hint: "No backend changes required"},
	{Key: workflow.ConstraintNoNewBackendCalls, Label: "No new backend calls", Hint: "Keep network footprint stable"},
	{Key: workflow.ConstraintNoNewPermissions, Label: "No new permissions", Hint: "Avoid new OS permission prompts"},
	{Key: workflow.ConstraintLatencyUnder200ms, Label: "Latency < 200ms", Hint: "Guardrail for UX responsiveness"},
	{Key: workflow.ConstraintCrashRate, Label: "Crash-rate guardrail", Hint: "Reject variants increasing crash risk"},
	{Key: workflow.ConstraintShipIn24h, Label: "Ship in 24h", Hint: "Prefer minimal, safe changes"},
}

// GoalForm is the editable draft behind the Goal stage. Numeric fields are
// kept as typed so "must be a number" can be reported.
type GoalForm struct {
	MetricName    string
	Baseline      string
	Target        string
	Unit          workflow.Unit
	AppArea       string
	Screens       string // comma separated
	// ScreenList, when set, replaces Screens for callers that already hold
	// the screens as a list. Names may then contain commas.
	ScreenList    []string
	RiskTolerance workflow.RiskLevel
	Constraints   []workflow.ConstraintKey
	Notes         string
}

// DefaultGoalForm is what the form shows before the user touches it.
func DefaultGoalForm() GoalForm {
	return GoalForm{
		MetricName:    "onboarding_completed",
		Baseline:      "42",
		Target:        "55",
		Unit:          workflow.UnitPercent,
		AppArea:       "Onboarding",
		Screens:       "Welcome, Email, Permissions",
		RiskTolerance: workflow.RiskMedium,
		Constraints:   []workflow.ConstraintKey{workflow.ConstraintUIOnly, workflow.ConstraintCrashRate},
		Notes:         "Optimize completion without adding steps. Prefer clarity over novelty.",
	}
}

// DemoGoalForm is the "Load demo goal" preset.
func DemoGoalForm() GoalForm {
	return GoalForm{
		MetricName:    "onboarding_completed",
		Baseline:      "42",
		Target:        "55",
		Unit:          workflow.UnitPercent,
		AppArea:       "Onboarding",
		Screens:       "Welcome, Email, Permissions",
		RiskTolerance: workflow.RiskMedium,
		Constraints: []workflow.ConstraintKey{
			workflow.ConstraintUIOnly,
			workflow.ConstraintNoNewBackendCalls,
			workflow.ConstraintCrashRate,
		},
		Notes: "Reduce friction in step 2. Keep flow linear. No extra dialogs.",
	}
}

// GoalFormFrom fills a form from an existing goal.
func GoalFormFrom(g workflow.GoalSpec) GoalForm {
	return GoalForm{
		MetricName:    g.MetricName,
		Baseline:      FormatNumber(g.BaselineValue),
		Target:        FormatNumber(g.TargetValue),
		Unit:          g.Unit,
		AppArea:       g.Scope.AppArea,
		Screens:       strings.Join(g.Scope.Screens, ", "),
		RiskTolerance: g.RiskTolerance,
		Constraints:   slices.Clone(g.Constraints),
		Notes:         g.Notes,
	}
}

// parseNumber accepts finite numbers only; NaN and Inf cannot be stored.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// SplitScreens splits a comma separated screen list, dropping blanks.
func SplitScreens(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (f GoalForm) screens() []string {
	if f.ScreenList == nil {
		return SplitScreens(f.Screens)
	}
	var out []string
	for _, sc := range f.ScreenList {
		if sc = strings.TrimSpace(sc); sc != "" {
			out = append(out, sc)
		}
	}
	return out
}

// HasConstraint reports whether key is selected.
func (f GoalForm) HasConstraint(key workflow.ConstraintKey) bool {
	return slices.Contains(f.Constraints, key)
}

// ToggleConstraint selects key if it is not selected and deselects it
// otherwise.
func (f *GoalForm) ToggleConstraint(key workflow.ConstraintKey) {
	if i := slices.Index(f.Constraints, key); i >= 0 {
		f.Constraints = slices.Delete(slices.Clone(f.Constraints), i, i+1)
		return
	}
	f.Constraints = append(slices.Clone(f.Constraints), key)
}

// Validate returns every problem with the draft, in display order. An empty
// result means the goal can be created.
func (f GoalForm) Validate() []string {
	var errs []string

	if strings.TrimSpace(f.MetricName) == "" {
		errs = append(errs, "Metric name is required.")
	}
	if strings.TrimSpace(f.AppArea) == "" {
		errs = append(errs, "App area is required.")
	}

	baseline, baselineOK := parseNumber(f.Baseline)
	target, targetOK := parseNumber(f.Target)
	if !baselineOK {
		errs = append(errs, "Baseline value must be a number.")
	}
	if !targetOK {
		errs = append(errs, "Target value must be a number.")
	}

	if f.Unit != workflow.UnitPercent && f.Unit != workflow.UnitAbsolute {
		errs = append(errs, "Unit must be percent or absolute.")
	}
	if f.Unit == workflow.UnitPercent {
		if baselineOK && (baseline < 0 || baseline > 100) {
			errs = append(errs, "Baseline percent must be 0–100.")
		}
		if targetOK && (target < 0 || target > 100) {
			errs = append(errs, "Target percent must be 0–100.")
		}
	}
	if baselineOK && targetOK && target <= baseline {
		errs = append(errs, "Target should be greater than baseline.")
	}

	if len(f.screens()) == 0 {
		errs = append(errs, "Add at least one screen in scope.")
	}

	switch f.RiskTolerance {
	case "", workflow.RiskLow, workflow.RiskMedium, workflow.RiskHigh:
	default:
		errs = append(errs, "Risk tolerance must be low, medium or high.")
	}
	for _, c := range f.Constraints {
		if !slices.Contains(workflow.Constraints, c) {
			errs = append(errs, fmt.Sprintf("Unknown constraint %q.", c))
		}
	}

	return errs
}

// ErrorSummary is the first validation error plus how many more remain, or
// "" when the form is valid.
func (f GoalForm) ErrorSummary() string {
	return summarizeErrors(f.Validate())
}

func summarizeErrors(errs []string) string {
	switch len(errs) {
	case 0:
		return ""
	case 1:
		return errs[0]
	default:
		return fmt.Sprintf("%s (%d more)", errs[0], len(errs)-1)
	}
}

// Input converts the draft into store input. Only meaningful when Validate
// returns nothing.
func (f GoalForm) Input() workflow.GoalInput {
	baseline, _ := parseNumber(f.Baseline)
	target, _ := parseNumber(f.Target)

	risk := f.RiskTolerance
	if risk == "" {
		risk = workflow.RiskMedium
	}

	return workflow.GoalInput{
		MetricName:    strings.TrimSpace(f.MetricName),
		BaselineValue: baseline,
		TargetValue:   target,
		Unit:          f.Unit,
		Scope: workflow.Scope{
			AppArea: strings.TrimSpace(f.AppArea),
			Screens: f.screens(),
		},
		Constraints:   slices.Clone(f.Constraints),
		RiskTolerance: risk,
		Notes:         strings.TrimSpace(f.Notes),
	}
}

// GoalCreator is the part of the store the goal form needs.
type GoalCreator interface {
	CreateGoal(workflow.GoalInput) workflow.GoalSpec
}

// Submit creates the goal when the draft is valid. It never calls the store
// with an invalid draft.
func (f GoalForm) Submit(store GoalCreator) (workflow.GoalSpec, error) {
	if errs := f.Validate(); len(errs) > 0 {
		return workflow.GoalSpec{}, fmt.Errorf("%w: %s", ErrInvalidGoal, summarizeErrors(errs))
	}
	return store.CreateGoal(f.Input()), nil
}

// GoalView is what the Goal stage renders.
type GoalView struct {
	Form      GoalForm
	Errors    []string
	Summary   string
	CanCreate bool
	Saved     *workflow.GoalSpec
}

// NewGoalView builds the Goal stage for form against st.
func NewGoalView(st workflow.State, form GoalForm) GoalView {
	errs := form.Validate()
	return GoalView{
		Form:      form,
		Errors:    errs,
		Summary:   summarizeErrors(errs),
		CanCreate: len(errs) == 0,
		Saved:     st.Goal,
	}
}
