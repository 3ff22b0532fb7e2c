package stage

import (
	"strconv"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

// maxRunRows caps the run list.
const maxRunRows = 16

type RunSummary struct {
	Total    int
	Queued   int
	Running  int
	Retrying int
	Passed   int
	Failed   int
}

func SummarizeRuns(runs []workflow.Run) RunSummary {
	s := RunSummary{Total: len(runs)}
	for _, r := range runs {
		switch r.Status {
		case workflow.RunQueued:
			s.Queued++
		case workflow.RunRunning:
			s.Running++
		case workflow.RunRetrying:
			s.Retrying++
		case workflow.RunPassed:
			s.Passed++
		case workflow.RunFailed:
			s.Failed++
		}
	}
	return s
}

type RunRow struct {
	Run          workflow.Run
	VariantTitle string
	Device       workflow.Device
}

// Score is "92/100", or "—" before the run has been simulated.
func (r RunRow) Score() string {
	if r.Run.PixelPerfectScore == nil {
		return none
	}
	return strconv.Itoa(*r.Run.PixelPerfectScore) + "/100"
}

// CrashFree is "Yes", "No" or "—".
func (r RunRow) CrashFree() string {
	if r.Run.CrashFree == nil {
		return none
	}
	if *r.Run.CrashFree {
		return "Yes"
	}
	return "No"
}

// Duration is "48s" or "—".
func (r RunRow) Duration() string {
	if r.Run.DurationSec == nil {
		return none
	}
	return strconv.Itoa(*r.Run.DurationSec) + "s"
}

type RunsView struct {
	Summary     RunSummary
	Devices     []workflow.Device
	Rows        []RunRow
	Hidden      int
	Selected    *RunRow
	CanQueue    bool
	CanSimulate bool
}

func newRunRow(st workflow.State, r workflow.Run) RunRow {
	row := RunRow{Run: r, VariantTitle: "Unknown"}
	if v, ok := st.Variant(r.VariantID); ok {
		row.VariantTitle = v.Title
	}
	if d, ok := workflow.DeviceByID(r.DeviceID); ok {
		row.Device = d
	} else {
		row.Device = workflow.Device{ID: r.DeviceID, Label: r.DeviceID}
	}
	return row
}

// NewRunsView selects selectedID when it names a run, else the first
// retrying run, else the first run.
func NewRunsView(st workflow.State, selectedID string) RunsView {
	v := RunsView{
		Summary:     SummarizeRuns(st.Runs),
		Devices:     workflow.Devices(),
		CanQueue:    len(st.Variants) > 0,
		CanSimulate: len(st.Runs) > 0,
	}

	shown := st.Runs
	if len(shown) > maxRunRows {
		v.Hidden = len(shown) - maxRunRows
		shown = shown[:maxRunRows]
	}
	for _, r := range shown {
		v.Rows = append(v.Rows, newRunRow(st, r))
	}

	pick := -1
	for i, r := range st.Runs {
		if r.ID == selectedID {
			pick = i
			break
		}
	}
	if pick < 0 {
		for i, r := range st.Runs {
			if r.Status == workflow.RunRetrying {
				pick = i
				break
			}
		}
	}
	if pick < 0 && len(st.Runs) > 0 {
		pick = 0
	}
	if pick >= 0 {
		row := newRunRow(st, st.Runs[pick])
		v.Selected = &row
	}
	return v
}
