package stage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

const (
	maxTimelineEntries = 28
	maxExportEntries   = 30
)

// ExportTitle heads the plain-text export.
const ExportTitle = "Intent Layer — Experiment Summary"

// BadgeLabel groups an audit kind under the stage that produced it.
func BadgeLabel(kind workflow.AuditKind) string {
	k := string(kind)
	switch {
	case strings.HasPrefix(k, "goal"):
		return "Goal"
	case strings.HasPrefix(k, "data"):
		return "Data"
	case strings.HasPrefix(k, "variants"):
		return "Variants"
	case strings.HasPrefix(k, "runs"):
		return "Runs"
	case strings.HasPrefix(k, "results"):
		return "Results"
	default:
		return "System"
	}
}

// Summary is the one-line-per-field digest shown beside the timeline and at
// the top of the export.
type Summary struct {
	Goal           string
	Metrics        string
	Variants       int
	Runs           int
	Recommendation string
}

func Summarize(st workflow.State, loc *time.Location) Summary {
	s := Summary{
		Goal:           GoalLine(st.Goal),
		Metrics:        MetricsLine(st.Metrics, loc),
		Variants:       len(st.Variants),
		Runs:           len(st.Runs),
		Recommendation: none,
	}
	if ranked := Rank(st); len(ranked) > 0 {
		top := ranked[0]
		s.Recommendation = fmt.Sprintf("%d/100 · %s", top.Result.Score, top.Variant.Title)
	}
	return s
}

// ExportText renders the copyable experiment summary. The layout is a
// contract: header, blank line, Goal/Metrics/Variants/Runs/Recommendation,
// blank line, "Audit trail:" and the newest 30 audit entries.
func ExportText(st workflow.State, loc *time.Location) string {
	s := Summarize(st, loc)

	lines := []string{
		ExportTitle,
		"",
		"Goal: " + s.Goal,
		"Metrics: " + s.Metrics,
		"Variants: " + strconv.Itoa(s.Variants),
		"Runs: " + strconv.Itoa(s.Runs),
		"Recommendation: " + s.Recommendation,
		"",
		"Audit trail:",
	}
	for i, e := range st.AuditLog {
		if i == maxExportEntries {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s · %s · %s", FormatTime(e.TS, loc), e.Kind, e.Message))
	}
	return strings.Join(lines, "\n")
}

type AuditView struct {
	Entries []workflow.AuditEvent
	Total   int
	Summary Summary
	Export  string
}

// Truncated reports whether the timeline hides older entries.
func (v AuditView) Truncated() bool {
	return v.Total > len(v.Entries)
}

func NewAuditView(st workflow.State, loc *time.Location) AuditView {
	entries := st.AuditLog
	if len(entries) > maxTimelineEntries {
		entries = entries[:maxTimelineEntries]
	}
	return AuditView{
		Entries: entries,
		Total:   len(st.AuditLog),
		Summary: Summarize(st, loc),
		Export:  ExportText(st, loc),
	}
}

// Clipboard is the sink the export is copied to.
type Clipboard interface {
	WriteAll(text string) error
}

// CopyExport writes the export to cb. A failed write is dropped; the return
// value only says whether a "copied" confirmation should be shown.
func CopyExport(cb Clipboard, st workflow.State, loc *time.Location) bool {
	return cb.WriteAll(ExportText(st, loc)) == nil
}
