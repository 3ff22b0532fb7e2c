package stage_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/intentlayer/intentlayer/internal/stage"
	"github.com/intentlayer/intentlayer/internal/workflow"
)

type recordingCreator struct {
	calls []workflow.GoalInput
}

func (r *recordingCreator) CreateGoal(in workflow.GoalInput) workflow.GoalSpec {
	r.calls = append(r.calls, in)
	return workflow.GoalSpec{ID: "goal-1", GoalInput: in}
}

func TestDefaultGoalForm_IsValid(t *testing.T) {
	if errs := stage.DefaultGoalForm().Validate(); len(errs) != 0 {
		t.Errorf("expected default form to be valid, got %v", errs)
	}
	if errs := stage.DemoGoalForm().Validate(); len(errs) != 0 {
		t.Errorf("expected demo form to be valid, got %v", errs)
	}
}

func TestGoalForm_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *stage.GoalForm)
		want   []string
	}{
		{
			name:   "empty metric name",
			modify: func(f *stage.GoalForm) { f.MetricName = "   " },
			want:   []string{"Metric name is required."},
		},
		{
			name:   "empty app area",
			modify: func(f *stage.GoalForm) { f.AppArea = "" },
			want:   []string{"App area is required."},
		},
		{
			name:   "baseline not a number",
			modify: func(f *stage.GoalForm) { f.Baseline = "forty" },
			want:   []string{"Baseline value must be a number."},
		},
		{
			name:   "target not a number",
			modify: func(f *stage.GoalForm) { f.Target = "" },
			want:   []string{"Target value must be a number."},
		},
		{
			name:   "percent out of range",
			modify: func(f *stage.GoalForm) { f.Baseline = "-1"; f.Target = "120" },
			want:   []string{"Baseline percent must be 0–100.", "Target percent must be 0–100."},
		},
		{
			name:   "absolute allows large values",
			modify: func(f *stage.GoalForm) { f.Unit = workflow.UnitAbsolute; f.Baseline = "4200"; f.Target = "5000" },
			want:   nil,
		},
		{
			name:   "target equal to baseline",
			modify: func(f *stage.GoalForm) { f.Target = "42" },
			want:   []string{"Target should be greater than baseline."},
		},
		{
			name:   "no screens",
			modify: func(f *stage.GoalForm) { f.Screens = " , ," },
			want:   []string{"Add at least one screen in scope."},
		},
		{
			name:   "unknown unit",
			modify: func(f *stage.GoalForm) { f.Unit = "ratio" },
			want:   []string{"Unit must be percent or absolute."},
		},
		{
			name:   "baseline NaN",
			modify: func(f *stage.GoalForm) { f.Unit = workflow.UnitAbsolute; f.Baseline = "NaN" },
			want:   []string{"Baseline value must be a number."},
		},
		{
			name:   "percent baseline NaN",
			modify: func(f *stage.GoalForm) { f.Baseline = "nan" },
			want:   []string{"Baseline value must be a number."},
		},
		{
			name:   "target Inf",
			modify: func(f *stage.GoalForm) { f.Unit = workflow.UnitAbsolute; f.Target = "Inf" },
			want:   []string{"Target value must be a number."},
		},
		{
			name:   "target +Inf",
			modify: func(f *stage.GoalForm) { f.Target = "+Inf" },
			want:   []string{"Target value must be a number."},
		},
		{
			name:   "unknown risk tolerance",
			modify: func(f *stage.GoalForm) { f.RiskTolerance = "extreme" },
			want:   []string{"Risk tolerance must be low, medium or high."},
		},
		{
			name:   "empty risk tolerance",
			modify: func(f *stage.GoalForm) { f.RiskTolerance = "" },
			want:   nil,
		},
		{
			name:   "unknown constraint",
			modify: func(f *stage.GoalForm) { f.Constraints = append(f.Constraints, "bogus") },
			want:   []string{`Unknown constraint "bogus".`},
		},
		{
			name:   "screen list with blanks only",
			modify: func(f *stage.GoalForm) { f.ScreenList = []string{" ", ""} },
			want:   []string{"Add at least one screen in scope."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := stage.DefaultGoalForm()
			tt.modify(&f)
			if diff := cmp.Diff(tt.want, f.Validate()); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGoalForm_ErrorSummary(t *testing.T) {
	f := stage.DefaultGoalForm()
	if got := f.ErrorSummary(); got != "" {
		t.Errorf("expected empty summary, got %q", got)
	}

	f.MetricName = ""
	f.AppArea = ""
	f.Screens = ""
	if got := f.ErrorSummary(); got != "Metric name is required. (2 more)" {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestGoalForm_Input(t *testing.T) {
	f := stage.DefaultGoalForm()
	f.MetricName = "  signup_completed "
	f.Screens = "Welcome,  Email ,,Permissions"
	f.Notes = "  "

	in := f.Input()
	if in.MetricName != "signup_completed" {
		t.Errorf("expected trimmed metric name, got %q", in.MetricName)
	}
	if diff := cmp.Diff([]string{"Welcome", "Email", "Permissions"}, in.Scope.Screens); diff != "" {
		t.Errorf("screens mismatch (-want +got):\n%s", diff)
	}
	if in.Notes != "" {
		t.Errorf("expected blank notes dropped, got %q", in.Notes)
	}
	if in.BaselineValue != 42 || in.TargetValue != 55 {
		t.Errorf("unexpected values %v → %v", in.BaselineValue, in.TargetValue)
	}
}

func TestGoalForm_InputScreenList(t *testing.T) {
	f := stage.DefaultGoalForm()
	f.ScreenList = []string{" Email, step 2 ", "", "Permissions"}

	in := f.Input()
	if diff := cmp.Diff([]string{"Email, step 2", "Permissions"}, in.Scope.Screens); diff != "" {
		t.Errorf("screens mismatch (-want +got):\n%s", diff)
	}
}

func TestGoalForm_SubmitRejectsNonFinite(t *testing.T) {
	creator := &recordingCreator{}
	f := stage.DefaultGoalForm()
	f.Unit = workflow.UnitAbsolute
	f.Baseline = "NaN"

	if _, err := f.Submit(creator); !errors.Is(err, stage.ErrInvalidGoal) {
		t.Fatalf("expected ErrInvalidGoal, got %v", err)
	}
	if len(creator.calls) != 0 {
		t.Error("store must not be called with a NaN baseline")
	}
}

func TestGoalForm_SubmitRejectsInvalid(t *testing.T) {
	creator := &recordingCreator{}
	f := stage.DefaultGoalForm()
	f.Target = "10"

	_, err := f.Submit(creator)
	if !errors.Is(err, stage.ErrInvalidGoal) {
		t.Fatalf("expected ErrInvalidGoal, got %v", err)
	}
	if !strings.Contains(err.Error(), "Target should be greater than baseline.") {
		t.Errorf("expected reason in error, got %v", err)
	}
	if len(creator.calls) != 0 {
		t.Error("store must not be called with an invalid goal")
	}
}

func TestGoalForm_SubmitCreates(t *testing.T) {
	creator := &recordingCreator{}

	goal, err := stage.DemoGoalForm().Submit(creator)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if goal.ID != "goal-1" || len(creator.calls) != 1 {
		t.Errorf("expected one CreateGoal call, got %d", len(creator.calls))
	}
	if len(goal.Constraints) != 3 {
		t.Errorf("expected demo constraints, got %v", goal.Constraints)
	}
}

func TestGoalForm_ToggleConstraint(t *testing.T) {
	f := stage.DefaultGoalForm()
	original := f

	f.ToggleConstraint(workflow.ConstraintUIOnly)
	if f.HasConstraint(workflow.ConstraintUIOnly) {
		t.Error("expected ui_only removed")
	}
	if !original.HasConstraint(workflow.ConstraintUIOnly) {
		t.Error("toggle must not modify copies of the form")
	}

	f.ToggleConstraint(workflow.ConstraintShipIn24h)
	if !f.HasConstraint(workflow.ConstraintShipIn24h) {
		t.Error("expected ship_in_24h added")
	}
}

func TestGoalFormFrom_RoundTrips(t *testing.T) {
	s := workflow.New()
	goal, err := stage.DemoGoalForm().Submit(s)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	f := stage.GoalFormFrom(goal)
	if diff := cmp.Diff(goal.GoalInput, f.Input()); diff != "" {
		t.Errorf("input mismatch (-want +got):\n%s", diff)
	}
}

func TestNewGoalView(t *testing.T) {
	f := stage.DefaultGoalForm()
	f.MetricName = ""

	v := stage.NewGoalView(workflow.State{}, f)
	if v.CanCreate {
		t.Error("expected create disabled")
	}
	if v.Summary != "Metric name is required." {
		t.Errorf("unexpected summary %q", v.Summary)
	}
	if v.Saved != nil {
		t.Error("expected no saved goal")
	}
}
