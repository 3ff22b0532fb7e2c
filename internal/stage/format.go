package stage

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

// TimeLayout is used wherever a timestamp is printed.
const TimeLayout = "2006-01-02 15:04:05"

const none = "—"

// FormatTime prints t in loc. A nil loc means local time.
func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(TimeLayout)
}

// FormatNumber prints v without trailing zeros, so 42 stays "42".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatValue prints a goal value with a percent sign when unit is percent.
func FormatValue(v float64, unit workflow.Unit) string {
	if unit == workflow.UnitPercent {
		return FormatNumber(v) + "%"
	}
	return FormatNumber(v)
}

// FormatUsers prints a user count with thousands separators.
func FormatUsers(n int) string {
	return humanize.Comma(int64(n))
}

// Ago prints t relative to now, e.g. "3 minutes ago".
func Ago(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// GoalLine is the one-line goal summary, "metric: 42% → 55%".
func GoalLine(g *workflow.GoalSpec) string {
	if g == nil {
		return none
	}
	return fmt.Sprintf("%s: %s → %s", g.MetricName, FormatValue(g.BaselineValue, g.Unit), FormatValue(g.TargetValue, g.Unit))
}

// MetricsLine is the one-line metrics summary, "source @ time".
func MetricsLine(m *workflow.MetricsSnapshot, loc *time.Location) string {
	if m == nil {
		return none
	}
	return fmt.Sprintf("%s @ %s", m.Source, FormatTime(m.SyncedAt, loc))
}
