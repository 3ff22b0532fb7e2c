// Package tui is the terminal shell over a workflow.Store: six stage tabs
// rendered from the stage views, with single-key actions.
package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/intentlayer/intentlayer/internal/stage"
	"github.com/intentlayer/intentlayer/internal/workflow"
)

const changeBuffer = 64

// changeMsg is delivered for every store transition.
type changeMsg workflow.Change

// syncDoneMsg is delivered when a background SyncMetrics call returns.
type syncDoneMsg struct {
	snapshot workflow.MetricsSnapshot
}

type Model struct {
	flow      *workflow.Store
	loc       *time.Location
	clipboard stage.Clipboard

	changes chan workflow.Change
	cancel  func()

	active  stage.Key
	version uint64
	cursor  map[stage.Key]int

	width  int
	height int

	status    string
	statusErr bool
}

type Option func(*Model)

// WithLocation sets the zone timestamps are printed in.
func WithLocation(loc *time.Location) Option {
	return func(m *Model) { m.loc = loc }
}

// WithClipboard replaces the system clipboard.
func WithClipboard(cb stage.Clipboard) Option {
	return func(m *Model) { m.clipboard = cb }
}

// New subscribes to flow. Call Close when the program exits.
func New(flow *workflow.Store, opts ...Option) Model {
	m := Model{
		flow:      flow,
		loc:       time.Local,
		clipboard: stage.SystemClipboard{},
		changes:   make(chan workflow.Change, changeBuffer),
		active:    stage.Goal,
		version:   flow.Version(),
		cursor:    map[stage.Key]int{},
	}
	for _, opt := range opts {
		opt(&m)
	}

	changes := m.changes
	m.cancel = flow.Subscribe(func(c workflow.Change) {
		// The view re-reads the snapshot on every change, so a dropped
		// notification only delays a repaint.
		select {
		case changes <- c:
		default:
		}
	})
	return m
}

// Close removes the store subscription.
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

func waitForChange(changes <-chan workflow.Change) tea.Cmd {
	return func() tea.Msg {
		return changeMsg(<-changes)
	}
}

func syncCmd(flow *workflow.Store) tea.Cmd {
	return func() tea.Msg {
		return syncDoneMsg{snapshot: flow.SyncMetrics()}
	}
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.changes)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case changeMsg:
		m.version = msg.Version
		return m, waitForChange(m.changes)
	case syncDoneMsg:
		m.setStatus(fmt.Sprintf("Metrics synced from %s.", msg.snapshot.Source))
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "ctrl+c":
		return m, tea.Quit
	case "1", "2", "3", "4", "5", "6":
		m.active = stage.Stages[int(key[0]-'1')].Key
	case "tab", "right", "l":
		m.active = stage.Next(m.active)
	case "shift+tab", "left", "h":
		m.active = stage.Prev(m.active)
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "d":
		goal, err := stage.DemoGoalForm().Submit(m.flow)
		if err != nil {
			m.setError(err.Error())
			break
		}
		m.setStatus(fmt.Sprintf("Goal created for %s.", goal.MetricName))
	case "s":
		if !stage.NewDataView(m.flow.Snapshot()).CanSync() {
			m.setError("A sync is already running.")
			break
		}
		m.setStatus("Syncing metrics…")
		return m, syncCmd(m.flow)
	case "g":
		m.flow.GenerateVariants()
		delete(m.cursor, stage.Variants)
		m.setStatus("Variants generated.")
	case "q":
		if len(m.flow.Snapshot().Variants) == 0 {
			m.setError("Generate variants first.")
			break
		}
		runs := m.flow.QueueRuns()
		delete(m.cursor, stage.Runs)
		m.setStatus(fmt.Sprintf("%d runs queued.", len(runs)))
	case "r":
		if len(m.flow.Snapshot().Runs) == 0 {
			m.setError("Queue runs first.")
			break
		}
		m.flow.SimulateRunProgress()
		m.setStatus("Device runs executed.")
	case "x":
		if !stage.NewResultsView(m.flow.Snapshot(), "").CanScore {
			m.setError("Variants and runs are required before scoring.")
			break
		}
		m.flow.ScoreResults()
		delete(m.cursor, stage.Results)
		m.setStatus("Variants scored.")
	case "R":
		m.flow.ResetFlow()
		m.cursor = map[stage.Key]int{}
		m.setStatus("Flow reset.")
	case "c":
		if stage.CopyExport(m.clipboard, m.flow.Snapshot(), m.loc) {
			m.setStatus("Export copied to clipboard.")
		}
	}
	return m, nil
}

// moveCursor moves the selection on list stages, clamped to the list. The
// first move starts from whatever the stage view selects by default.
func (m *Model) moveCursor(delta int) {
	st := m.flow.Snapshot()
	cur, n := -1, 0
	switch m.active {
	case stage.Variants:
		v := stage.NewVariantsView(st, m.variantID(st))
		n = len(v.Variants)
		for i, variant := range v.Variants {
			if v.Active != nil && variant.ID == v.Active.ID {
				cur = i
			}
		}
	case stage.Runs:
		v := stage.NewRunsView(st, m.runID(st))
		n = len(v.Rows)
		for i, row := range v.Rows {
			if v.Selected != nil && row.Run.ID == v.Selected.Run.ID {
				cur = i
			}
		}
	case stage.Results:
		v := stage.NewResultsView(st, m.resultVariantID(st))
		n = len(v.Ranked)
		if v.Active != nil {
			cur = v.Active.Rank - 1
		}
	default:
		return
	}
	if n == 0 {
		return
	}
	m.cursor[m.active] = max(0, min(n-1, cur+delta))
}

func (m Model) variantID(st workflow.State) string {
	if c, ok := m.cursor[stage.Variants]; ok && c < len(st.Variants) {
		return st.Variants[c].ID
	}
	return ""
}

func (m Model) runID(st workflow.State) string {
	if c, ok := m.cursor[stage.Runs]; ok && c < len(st.Runs) {
		return st.Runs[c].ID
	}
	return ""
}

func (m Model) resultVariantID(st workflow.State) string {
	ranked := stage.Rank(st)
	if c, ok := m.cursor[stage.Results]; ok && c < len(ranked) {
		return ranked[c].Variant.ID
	}
	return ""
}
