package workflow

import "time"

type Unit string

const (
	UnitPercent  Unit = "percent"
	UnitAbsolute Unit = "absolute"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type ConstraintKey string

const (
	ConstraintNoNewBackendCalls ConstraintKey = "no_new_backend_calls"
	ConstraintUIOnly            ConstraintKey = "ui_only"
	ConstraintNoNewPermissions  ConstraintKey = "no_new_permissions"
	ConstraintLatencyUnder200ms ConstraintKey = "keep_latency_under_200ms"
	ConstraintCrashRate         ConstraintKey = "crash_rate_guardrail"
	ConstraintShipIn24h         ConstraintKey = "ship_in_24h"
)

// Constraints lists every constraint key in display order.
var Constraints = []ConstraintKey{
	ConstraintUIOnly,
	ConstraintNoNewBackendCalls,
	ConstraintNoNewPermissions,
	ConstraintLatencyUnder200ms,
	ConstraintCrashRate,
	ConstraintShipIn24h,
}

type Scope struct {
	AppArea string   `json:"app_area"`
	Screens []string `json:"screens"`
}

// GoalInput is a goal as submitted by a caller, before the store assigns
// identity and creation time.
type GoalInput struct {
	MetricName    string          `json:"metric_name"`
	BaselineValue float64         `json:"baseline_value"`
	TargetValue   float64         `json:"target_value"`
	Unit          Unit            `json:"unit"`
	Scope         Scope           `json:"scope"`
	Constraints   []ConstraintKey `json:"constraints"`
	RiskTolerance RiskLevel       `json:"risk_tolerance"`
	Notes         string          `json:"notes,omitempty"`
}

type GoalSpec struct {
	ID string `json:"id"`
	GoalInput
	CreatedAt time.Time `json:"created_at"`
}

type MetricSource string

const (
	SourceFirebase  MetricSource = "firebase"
	SourceAmplitude MetricSource = "amplitude"
	SourceMixpanel  MetricSource = "mixpanel"
	SourceSegment   MetricSource = "segment"
)

type ConnectorStatus string

const (
	StatusConnected    ConnectorStatus = "connected"
	StatusDisconnected ConnectorStatus = "disconnected"
	StatusExpired      ConnectorStatus = "expired"
	StatusSyncing      ConnectorStatus = "syncing"
)

// ValidConnectorStatus reports whether s is one of the known statuses.
func ValidConnectorStatus(s ConnectorStatus) bool {
	switch s {
	case StatusConnected, StatusDisconnected, StatusExpired, StatusSyncing:
		return true
	}
	return false
}

type Connector struct {
	Key        MetricSource    `json:"key"`
	Name       string          `json:"name"`
	Status     ConnectorStatus `json:"status"`
	LastSyncAt *time.Time      `json:"last_sync_at,omitempty"`
	TokenHint  string          `json:"token_hint,omitempty"`
}

type FunnelStep struct {
	Name       string   `json:"name"`
	Users      int      `json:"users"`
	DropoffPct *float64 `json:"dropoff_pct,omitempty"` // from previous step
}

type EventCount struct {
	Event   string `json:"event"`
	Count7d int    `json:"count_7d"`
}

type MetricsSnapshot struct {
	Source          MetricSource `json:"source"`
	SyncedAt        time.Time    `json:"synced_at"`
	Funnel          []FunnelStep `json:"funnel"`
	EventDictionary []EventCount `json:"event_dictionary"`
	Notes           string       `json:"notes,omitempty"`
}

type PatchSummary struct {
	FilesChanged int `json:"files_changed"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
}

type UIPreview struct {
	BeforeLabel string `json:"before_label"`
	AfterLabel  string `json:"after_label"`
}

type Variant struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Hypothesis   string       `json:"hypothesis"`
	Risk         RiskLevel    `json:"risk"`
	PatchSummary PatchSummary `json:"patch_summary"`
	DiffText     string       `json:"diff_text"`
	UIPreview    UIPreview    `json:"ui_preview"`
	CreatedAt    time.Time    `json:"created_at"`
}

type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	OS    string `json:"os"`
}

type RunStatus string

const (
	RunQueued   RunStatus = "queued"
	RunRunning  RunStatus = "running"
	RunRetrying RunStatus = "retrying"
	RunPassed   RunStatus = "passed"
	RunFailed   RunStatus = "failed"
)

type Run struct {
	ID                string     `json:"id"`
	VariantID         string     `json:"variant_id"`
	DeviceID          string     `json:"device_id"`
	Status            RunStatus  `json:"status"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	DurationSec       *int       `json:"duration_sec,omitempty"`
	PixelPerfectScore *int       `json:"pixel_perfect_score,omitempty"` // 0-100
	CrashFree         *bool      `json:"crash_free,omitempty"`
	Logs              []string   `json:"logs"`
	ScreenshotLabels  []string   `json:"screenshot_labels"`
}

type ImpactRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Unit Unit    `json:"unit"`
}

type Guardrail struct {
	Key  string `json:"key"`
	OK   bool   `json:"ok"`
	Note string `json:"note,omitempty"`
}

type ScoringBreakdown struct {
	EstimatedImpact   ImpactRange `json:"estimated_impact"`
	ConfidencePct     float64     `json:"confidence_pct"`
	FrictionDeltaSec  float64     `json:"friction_delta_sec"`  // negative means faster completion
	ErrorDensityDelta float64     `json:"error_density_delta"` // negative means fewer errors
	Guardrails        []Guardrail `json:"guardrails"`
}

type Result struct {
	ID          string           `json:"id"`
	VariantID   string           `json:"variant_id"`
	Score       int              `json:"score"` // 0-100
	Recommended bool             `json:"recommended"`
	Why         string           `json:"why"`
	Breakdown   ScoringBreakdown `json:"breakdown"`
}

type AuditKind string

const (
	KindGoalCreated       AuditKind = "goal.created"
	KindConnectorUpdated  AuditKind = "data.connector.updated"
	KindDataSynced        AuditKind = "data.synced"
	KindVariantsGenerated AuditKind = "variants.generated"
	KindRunsQueued        AuditKind = "runs.queued"
	KindRunsUpdated       AuditKind = "runs.updated"
	KindResultsScored     AuditKind = "results.scored"
	KindFlowReset         AuditKind = "flow.reset"
)

type AuditEvent struct {
	ID      string         `json:"id"`
	TS      time.Time      `json:"ts"`
	Kind    AuditKind      `json:"kind"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// State is a point-in-time copy of everything the store holds. Goal and
// Metrics are nil until created; AuditLog is newest first.
type State struct {
	Goal       *GoalSpec        `json:"goal"`
	Connectors []Connector      `json:"connectors"`
	Metrics    *MetricsSnapshot `json:"metrics"`
	Variants   []Variant        `json:"variants"`
	Runs       []Run            `json:"runs"`
	Results    []Result         `json:"results"`
	AuditLog   []AuditEvent     `json:"audit_log"`
}

// Variant returns the variant with the given id.
func (s State) Variant(id string) (Variant, bool) {
	for _, v := range s.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}
