package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

var ErrNotFound = errors.New("not found")

type SQLiteArchive struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    exported_at INTEGER NOT NULL,
    goal TEXT,
    metrics TEXT
);

CREATE TABLE IF NOT EXISTS variants (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    title TEXT NOT NULL,
    hypothesis TEXT NOT NULL,
    risk TEXT NOT NULL,
    files_changed INTEGER NOT NULL,
    additions INTEGER NOT NULL,
    deletions INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    variant_id TEXT NOT NULL,
    device_id TEXT NOT NULL,
    status TEXT NOT NULL,
    duration_sec INTEGER,
    pixel_perfect_score INTEGER,
    crash_free INTEGER
);

CREATE INDEX IF NOT EXISTS idx_runs_variant ON runs(variant_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

CREATE TABLE IF NOT EXISTS results (
    id TEXT PRIMARY KEY,
    variant_id TEXT NOT NULL,
    score INTEGER NOT NULL,
    recommended INTEGER NOT NULL,
    why TEXT NOT NULL,
    breakdown TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    ts INTEGER NOT NULL,
    kind TEXT NOT NULL,
    message TEXT NOT NULL,
    meta TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_kind ON audit_events(kind);
`

// Open creates or opens an archive file and applies the schema.
func Open(dbPath string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteArchive{db: db}, nil
}

func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

// WriteSnapshot replaces the archive contents with st in one transaction.
func (a *SQLiteArchive) WriteSnapshot(ctx context.Context, st workflow.State, exportedAt time.Time) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"snapshots", "variants", "runs", "results", "audit_events"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	goalJSON, err := nullableJSON(st.Goal)
	if err != nil {
		return fmt.Errorf("failed to marshal goal: %w", err)
	}
	metricsJSON, err := nullableJSON(st.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, exported_at, goal, metrics) VALUES (1, ?, ?, ?)`,
		exportedAt.Unix(), goalJSON, metricsJSON,
	); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for i, v := range st.Variants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO variants (id, position, title, hypothesis, risk, files_changed, additions, deletions, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID, i, v.Title, v.Hypothesis, string(v.Risk),
			v.PatchSummary.FilesChanged, v.PatchSummary.Additions, v.PatchSummary.Deletions,
			v.CreatedAt.Unix(),
		); err != nil {
			return fmt.Errorf("failed to insert variant: %w", err)
		}
	}

	for i, r := range st.Runs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, position, variant_id, device_id, status, duration_sec, pixel_perfect_score, crash_free)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, i, r.VariantID, r.DeviceID, string(r.Status),
			nullableInt(r.DurationSec), nullableInt(r.PixelPerfectScore), nullableBool(r.CrashFree),
		); err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
	}

	for _, r := range st.Results {
		breakdown, err := json.Marshal(r.Breakdown)
		if err != nil {
			return fmt.Errorf("failed to marshal breakdown: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO results (id, variant_id, score, recommended, why, breakdown)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.VariantID, r.Score, r.Recommended, r.Why, string(breakdown),
		); err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}
	}

	for i, e := range st.AuditLog {
		meta, err := nullableJSON(e.Meta)
		if err != nil {
			return fmt.Errorf("failed to marshal audit meta: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO audit_events (id, position, ts, kind, message, meta)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, i, e.TS.UnixMilli(), string(e.Kind), e.Message, meta,
		); err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// ExportedAt returns when the archived snapshot was written.
func (a *SQLiteArchive) ExportedAt(ctx context.Context) (time.Time, error) {
	var ts int64
	err := a.db.QueryRowContext(ctx, `SELECT exported_at FROM snapshots WHERE id = 1`).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return time.Unix(ts, 0), nil
}

// AuditEvents returns the archived audit log, newest first.
func (a *SQLiteArchive) AuditEvents(ctx context.Context) ([]workflow.AuditEvent, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, ts, kind, message, meta FROM audit_events ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit events: %w", err)
	}
	defer rows.Close()

	var events []workflow.AuditEvent
	for rows.Next() {
		var e workflow.AuditEvent
		var ts int64
		var meta sql.NullString
		if err := rows.Scan(&e.ID, &ts, &e.Kind, &e.Message, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &e.Meta); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit meta: %w", err)
			}
		}
		e.TS = time.UnixMilli(ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

// RunStatusCounts tallies archived runs by status.
func (a *SQLiteArchive) RunStatusCounts(ctx context.Context) (map[workflow.RunStatus]int, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	defer rows.Close()

	counts := map[workflow.RunStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan run count: %w", err)
		}
		counts[workflow.RunStatus(status)] = n
	}
	return counts, rows.Err()
}

// Counts returns the row count of every archived collection.
func (a *SQLiteArchive) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := a.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM variants),
			(SELECT COUNT(*) FROM runs),
			(SELECT COUNT(*) FROM results),
			(SELECT COUNT(*) FROM audit_events)
	`).Scan(&c.Variants, &c.Runs, &c.Results, &c.AuditEvents)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count rows: %w", err)
	}
	return c, nil
}

func nullableJSON(v any) (sql.NullString, error) {
	switch x := v.(type) {
	case *workflow.GoalSpec:
		if x == nil {
			return sql.NullString{}, nil
		}
	case *workflow.MetricsSnapshot:
		if x == nil {
			return sql.NullString{}, nil
		}
	case map[string]any:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullableInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullableBool(p *bool) sql.NullBool {
	if p == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *p, Valid: true}
}
