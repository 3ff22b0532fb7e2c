// Package archive writes a workflow snapshot to a SQLite file for offline
// analysis. Archives are write-once exports; nothing loads them back into a
// running store.
package archive

import (
	"context"
	"time"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

// Counts is the number of archived rows per collection.
type Counts struct {
	Variants    int
	Runs        int
	Results     int
	AuditEvents int
}

// Archive defines the interface for snapshot export targets
type Archive interface {
	WriteSnapshot(ctx context.Context, st workflow.State, exportedAt time.Time) error
	ExportedAt(ctx context.Context) (time.Time, error)
	AuditEvents(ctx context.Context) ([]workflow.AuditEvent, error)
	RunStatusCounts(ctx context.Context) (map[workflow.RunStatus]int, error)
	Counts(ctx context.Context) (Counts, error)

	Close() error
}

var _ Archive = (*SQLiteArchive)(nil)
