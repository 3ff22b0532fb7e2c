package archive_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/intentlayer/intentlayer/internal/archive"
	"github.com/intentlayer/intentlayer/internal/workflow"
)

func setupTestArchive(t *testing.T) *archive.SQLiteArchive {
	t.Helper()

	a, err := archive.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	t.Cleanup(func() {
		a.Close()
	})
	return a
}

func completedState(t *testing.T) workflow.State {
	t.Helper()
	n := 0
	s := workflow.New(
		workflow.WithClock(func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }),
		workflow.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
		workflow.WithSleep(func(time.Duration) {}),
	)
	s.CreateGoal(workflow.GoalInput{
		MetricName:    "onboarding_completed",
		BaselineValue: 42,
		TargetValue:   55,
		Unit:          workflow.UnitPercent,
		Scope:         workflow.Scope{AppArea: "Onboarding", Screens: []string{"Welcome"}},
		RiskTolerance: workflow.RiskMedium,
	})
	s.SyncMetrics()
	s.GenerateVariants()
	s.QueueRuns()
	s.SimulateRunProgress()
	s.ScoreResults()
	return s.Snapshot()
}

func TestOpen(t *testing.T) {
	a := setupTestArchive(t)

	_, err := a.ExportedAt(context.Background())
	if err != archive.ErrNotFound {
		t.Errorf("expected ErrNotFound on empty archive, got %v", err)
	}
}

func TestWriteSnapshot(t *testing.T) {
	a := setupTestArchive(t)
	ctx := context.Background()
	st := completedState(t)
	exportedAt := time.Unix(1773480600, 0)

	if err := a.WriteSnapshot(ctx, st, exportedAt); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	counts, err := a.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	want := archive.Counts{Variants: 3, Runs: 12, Results: 3, AuditEvents: 6}
	if counts != want {
		t.Errorf("got counts %+v, want %+v", counts, want)
	}

	got, err := a.ExportedAt(ctx)
	if err != nil {
		t.Fatalf("ExportedAt failed: %v", err)
	}
	if !got.Equal(exportedAt) {
		t.Errorf("got exported_at %v, want %v", got, exportedAt)
	}
}

func TestWriteSnapshot_Replaces(t *testing.T) {
	a := setupTestArchive(t)
	ctx := context.Background()

	if err := a.WriteSnapshot(ctx, completedState(t), time.Now()); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}
	if err := a.WriteSnapshot(ctx, workflow.New().Snapshot(), time.Now()); err != nil {
		t.Fatalf("second WriteSnapshot failed: %v", err)
	}

	counts, err := a.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts != (archive.Counts{}) {
		t.Errorf("expected empty archive after writing fresh state, got %+v", counts)
	}
}

func TestAuditEvents_NewestFirst(t *testing.T) {
	a := setupTestArchive(t)
	ctx := context.Background()
	st := completedState(t)

	if err := a.WriteSnapshot(ctx, st, time.Now()); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	events, err := a.AuditEvents(ctx)
	if err != nil {
		t.Fatalf("AuditEvents failed: %v", err)
	}
	if len(events) != len(st.AuditLog) {
		t.Fatalf("got %d events, want %d", len(events), len(st.AuditLog))
	}
	if events[0].Kind != workflow.KindResultsScored {
		t.Errorf("expected newest event first, got %s", events[0].Kind)
	}
	last := events[len(events)-1]
	if last.Kind != workflow.KindGoalCreated {
		t.Errorf("expected goal.created last, got %s", last.Kind)
	}
	if last.Meta["target"] != float64(55) {
		t.Errorf("expected meta to survive, got %v", last.Meta)
	}
	if !last.TS.Equal(st.AuditLog[len(st.AuditLog)-1].TS) {
		t.Errorf("got ts %v, want %v", last.TS, st.AuditLog[len(st.AuditLog)-1].TS)
	}
}

func TestRunStatusCounts(t *testing.T) {
	a := setupTestArchive(t)
	ctx := context.Background()

	if err := a.WriteSnapshot(ctx, completedState(t), time.Now()); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	counts, err := a.RunStatusCounts(ctx)
	if err != nil {
		t.Fatalf("RunStatusCounts failed: %v", err)
	}
	if counts[workflow.RunPassed] != 11 || counts[workflow.RunRetrying] != 1 {
		t.Errorf("unexpected run counts %v", counts)
	}
}
