package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/intentlayer/intentlayer/internal/stage"
	"github.com/intentlayer/intentlayer/internal/workflow"
)

const helpLine = "1-6/tab stages · j/k select · d demo goal · s sync · g generate · q queue · r simulate · x score · R reset · c copy · ctrl+c quit"

func (m Model) View() string {
	st := m.flow.Snapshot()

	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	var body string
	switch m.active {
	case stage.Goal:
		body = m.renderGoal(st)
	case stage.Data:
		body = m.renderData(st)
	case stage.Variants:
		body = m.renderVariants(st)
	case stage.Runs:
		body = m.renderRuns(st)
	case stage.Results:
		body = m.renderResults(st)
	case stage.Audit:
		body = m.renderAudit(st)
	}
	panel := panelStyle
	if m.width > 4 {
		panel = panel.Width(m.width - 2)
	}
	b.WriteString(panel.Render(body))
	b.WriteString("\n")

	if m.status != "" {
		style := infoStyle
		if m.statusErr {
			style = errStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(helpLine))
	return b.String()
}

func (m Model) renderTabs() string {
	tabs := []string{brandStyle.Render("Intent Layer")}
	for i, s := range stage.Stages {
		label := fmt.Sprintf("%d %s", i+1, s.Label)
		if s.Key == m.active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	tabs = append(tabs, subtleStyle.Render(fmt.Sprintf("v%d", m.version)))
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func heading(key stage.Key) string {
	s, _ := stage.Lookup(key)
	return titleStyle.Render(s.Label) + "  " + subtleStyle.Render(s.Description)
}

func field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-16s", label)) + value
}

func (m Model) renderGoal(st workflow.State) string {
	lines := []string{heading(stage.Goal), ""}
	if st.Goal == nil {
		form := stage.DemoGoalForm()
		lines = append(lines,
			subtleStyle.Render("No goal yet. Press d to create the demo goal:"),
			"",
			field("Metric", form.MetricName),
			field("Baseline", form.Baseline),
			field("Target", form.Target),
			field("Screens", form.Screens),
		)
		return strings.Join(lines, "\n")
	}

	g := st.Goal
	constraints := make([]string, len(g.Constraints))
	for i, c := range g.Constraints {
		constraints[i] = string(c)
	}
	lines = append(lines,
		field("Goal", stage.GoalLine(g)),
		field("App area", g.Scope.AppArea),
		field("Screens", strings.Join(g.Scope.Screens, ", ")),
		field("Risk", statusStyle(string(g.RiskTolerance)).Render(string(g.RiskTolerance))),
		field("Constraints", strings.Join(constraints, ", ")),
		field("Created", stage.FormatTime(g.CreatedAt, m.loc)),
	)
	if g.Notes != "" {
		lines = append(lines, field("Notes", g.Notes))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderData(st workflow.State) string {
	v := stage.NewDataView(st)
	lines := []string{heading(stage.Data), ""}

	for _, c := range v.Connectors {
		last := "never"
		if c.LastSyncAt != nil {
			last = stage.FormatTime(*c.LastSyncAt, m.loc)
		}
		line := fmt.Sprintf("%-10s %s  %s", c.Name, statusStyle(string(c.Status)).Render(fmt.Sprintf("%-12s", c.Status)), subtleStyle.Render(last))
		if c.TokenHint != "" {
			line += " " + warnStyle.Render(c.TokenHint)
		}
		lines = append(lines, line)
	}

	if v.Metrics == nil {
		lines = append(lines, "", subtleStyle.Render("No metrics yet. Press s to sync."))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "", titleStyle.Render("Funnel")+"  "+subtleStyle.Render(stage.MetricsLine(v.Metrics, m.loc)))
	for _, step := range v.Funnel {
		drop := ""
		if step.Dropoff != nil {
			drop = warnStyle.Render(fmt.Sprintf("  -%s%%", stage.FormatNumber(*step.Dropoff)))
		}
		lines = append(lines, fmt.Sprintf("%-22s %8s  %5.1f%% [%4.1f–%4.1f]%s",
			step.Name, stage.FormatUsers(step.Users), step.Rate*100, step.CILower*100, step.CIUpper*100, drop))
	}
	lines = append(lines, "", titleStyle.Render("Events (7d)"))
	for _, e := range v.Events {
		lines = append(lines, fmt.Sprintf("%-26s %8s", e.Event, stage.FormatUsers(e.Count7d)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderVariants(st workflow.State) string {
	v := stage.NewVariantsView(st, m.variantID(st))
	lines := []string{heading(stage.Variants), ""}
	if len(v.Variants) == 0 {
		lines = append(lines, subtleStyle.Render("No variants yet. Press g to generate."))
		return strings.Join(lines, "\n")
	}

	for _, variant := range v.Variants {
		marker, style := "  ", lipgloss.NewStyle()
		if v.Active != nil && variant.ID == v.Active.ID {
			marker, style = "> ", selectedStyle
		}
		lines = append(lines, marker+style.Render(variant.Title)+"  "+
			statusStyle(string(variant.Risk)).Render(string(variant.Risk)+" risk"))
	}

	a := v.Active
	lines = append(lines,
		"",
		titleStyle.Render(a.Title),
		a.Hypothesis,
		field("Before", a.UIPreview.BeforeLabel),
		field("After", a.UIPreview.AfterLabel),
		field("Patch", fmt.Sprintf("%d files, +%d -%d", a.PatchSummary.FilesChanged, a.PatchSummary.Additions, a.PatchSummary.Deletions)),
		"",
		subtleStyle.Render(a.DiffText),
	)
	return strings.Join(lines, "\n")
}

func (m Model) renderRuns(st workflow.State) string {
	v := stage.NewRunsView(st, m.runID(st))
	s := v.Summary
	lines := []string{
		heading(stage.Runs),
		"",
		fmt.Sprintf("%d runs · %d queued · %d running · %d retrying · %d passed · %d failed",
			s.Total, s.Queued, s.Running, s.Retrying, s.Passed, s.Failed),
		"",
	}
	if len(v.Rows) == 0 {
		lines = append(lines, subtleStyle.Render("No runs queued. Press q to queue."))
		return strings.Join(lines, "\n")
	}

	for _, row := range v.Rows {
		marker := "  "
		if v.Selected != nil && row.Run.ID == v.Selected.Run.ID {
			marker = "> "
		}
		lines = append(lines, fmt.Sprintf("%s%-36s %-16s %s %7s %4s %4s",
			marker, truncate(row.VariantTitle, 36), row.Device.Label,
			statusStyle(string(row.Run.Status)).Render(fmt.Sprintf("%-9s", row.Run.Status)),
			row.Score(), row.CrashFree(), row.Duration()))
	}
	if v.Hidden > 0 {
		lines = append(lines, subtleStyle.Render(fmt.Sprintf("+%d more", v.Hidden)))
	}

	if sel := v.Selected; sel != nil && len(sel.Run.Logs) > 0 {
		lines = append(lines, "", titleStyle.Render("Logs"))
		for _, l := range sel.Run.Logs {
			lines = append(lines, subtleStyle.Render(l))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderResults(st workflow.State) string {
	v := stage.NewResultsView(st, m.resultVariantID(st))
	lines := []string{heading(stage.Results), ""}
	if len(v.Ranked) == 0 {
		lines = append(lines, subtleStyle.Render(fmt.Sprintf("No results yet (%d runs). Press x to score.", v.RunCount)))
		return strings.Join(lines, "\n")
	}

	for _, r := range v.Ranked {
		marker := "  "
		if v.Active != nil && r.Variant.ID == v.Active.Variant.ID {
			marker = "> "
		}
		line := fmt.Sprintf("%s#%d %3d/100  %s", marker, r.Rank, r.Result.Score, r.Variant.Title)
		if r.Result.Recommended {
			line += "  " + okStyle.Render("recommended")
		}
		lines = append(lines, line)
	}

	a := v.Active
	bd := a.Result.Breakdown
	lines = append(lines,
		"",
		titleStyle.Render(a.Variant.Title),
		a.Result.Why,
		field("Impact", fmt.Sprintf("+%s to +%s %s", stage.FormatNumber(bd.EstimatedImpact.Min), stage.FormatNumber(bd.EstimatedImpact.Max), bd.EstimatedImpact.Unit)),
		field("Confidence", stage.FormatNumber(bd.ConfidencePct)+"%"),
		field("Friction", stage.FormatNumber(bd.FrictionDeltaSec)+"s"),
		field("Error density", stage.FormatNumber(bd.ErrorDensityDelta)),
	)
	for _, g := range bd.Guardrails {
		mark := okStyle.Render("✓")
		if !g.OK {
			mark = errStyle.Render("✗")
		}
		line := mark + " " + g.Key
		if g.Note != "" {
			line += subtleStyle.Render(" · " + g.Note)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderAudit(st workflow.State) string {
	v := stage.NewAuditView(st, m.loc)
	s := v.Summary
	lines := []string{
		heading(stage.Audit),
		"",
		field("Goal", s.Goal),
		field("Metrics", s.Metrics),
		field("Variants", fmt.Sprint(s.Variants)),
		field("Runs", fmt.Sprint(s.Runs)),
		field("Recommendation", s.Recommendation),
		"",
	}
	if v.Total == 0 {
		lines = append(lines, subtleStyle.Render("No activity yet."))
		return strings.Join(lines, "\n")
	}
	if v.Truncated() {
		lines = append(lines, subtleStyle.Render(fmt.Sprintf("Showing %d of %d", len(v.Entries), v.Total)))
	}
	for _, e := range v.Entries {
		lines = append(lines, fmt.Sprintf("%s %s %s  %s",
			badgeStyle.Render(fmt.Sprintf("%-8s", stage.BadgeLabel(e.Kind))),
			subtleStyle.Render(stage.FormatTime(e.TS, m.loc)),
			e.Kind, e.Message))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
