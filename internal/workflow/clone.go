package workflow

import (
	"maps"
	"slices"
)

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (g GoalSpec) clone() GoalSpec {
	g.Scope.Screens = slices.Clone(g.Scope.Screens)
	g.Constraints = slices.Clone(g.Constraints)
	return g
}

func (m MetricsSnapshot) clone() MetricsSnapshot {
	funnel := make([]FunnelStep, len(m.Funnel))
	for i, f := range m.Funnel {
		f.DropoffPct = clonePtr(f.DropoffPct)
		funnel[i] = f
	}
	m.Funnel = funnel
	m.EventDictionary = slices.Clone(m.EventDictionary)
	return m
}

func cloneRuns(runs []Run) []Run {
	out := make([]Run, len(runs))
	for i, r := range runs {
		r.StartedAt = clonePtr(r.StartedAt)
		r.FinishedAt = clonePtr(r.FinishedAt)
		r.DurationSec = clonePtr(r.DurationSec)
		r.PixelPerfectScore = clonePtr(r.PixelPerfectScore)
		r.CrashFree = clonePtr(r.CrashFree)
		r.Logs = slices.Clone(r.Logs)
		r.ScreenshotLabels = slices.Clone(r.ScreenshotLabels)
		out[i] = r
	}
	return out
}

func cloneResults(results []Result) []Result {
	out := make([]Result, len(results))
	for i, r := range results {
		r.Breakdown.Guardrails = slices.Clone(r.Breakdown.Guardrails)
		out[i] = r
	}
	return out
}

// Clone returns a deep copy of the state. The store hands out clones only, so
// callers may keep or modify what they receive.
func (s State) Clone() State {
	out := State{
		Connectors: make([]Connector, len(s.Connectors)),
		Variants:   slices.Clone(s.Variants),
		Runs:       cloneRuns(s.Runs),
		Results:    cloneResults(s.Results),
		AuditLog:   make([]AuditEvent, len(s.AuditLog)),
	}
	if out.Variants == nil {
		out.Variants = []Variant{}
	}

	if s.Goal != nil {
		g := s.Goal.clone()
		out.Goal = &g
	}
	if s.Metrics != nil {
		m := s.Metrics.clone()
		out.Metrics = &m
	}

	for i, c := range s.Connectors {
		c.LastSyncAt = clonePtr(c.LastSyncAt)
		out.Connectors[i] = c
	}
	for i, e := range s.AuditLog {
		e.Meta = maps.Clone(e.Meta)
		out.AuditLog[i] = e
	}

	return out
}
