// Package workflow holds the experiment workflow state and the transitions
// that move it from goal to scored results. Every transition replaces the
// affected slices in one step and records exactly one audit event.
package workflow

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSyncLatency is how long SyncMetrics pretends to talk to a connector.
const DefaultSyncLatency = 1200 * time.Millisecond

// KindSyncStarted is published when a connector flips to syncing. It has no
// audit event of its own; the matching data.synced event lands when the sync
// finishes.
const KindSyncStarted AuditKind = "data.syncing"

// Change is delivered to subscribers after each transition.
type Change struct {
	Kind    AuditKind `json:"kind"`
	Version uint64    `json:"version"`
}

type listener struct {
	id int
	fn func(Change)
}

type Store struct {
	mu      sync.Mutex
	state   State
	version uint64

	listenersMu sync.Mutex
	listeners   []listener
	nextID      int

	now         func() time.Time
	newID       func() string
	sleep       func(time.Duration)
	syncLatency time.Duration
	logger      *zap.Logger
}

type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func WithSyncLatency(d time.Duration) Option {
	return func(s *Store) { s.syncLatency = d }
}

// WithSleep replaces the function used to wait out the sync latency.
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Store) { s.sleep = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns a store with the initial connector set and nothing else.
func New(opts ...Option) *Store {
	s := &Store{
		state: State{
			Connectors: initialConnectors(),
			Variants:   []Variant{},
			Runs:       []Run{},
			Results:    []Result{},
			AuditLog:   []AuditEvent{},
		},
		now:         time.Now,
		newID:       uuid.NewString,
		sleep:       time.Sleep,
		syncLatency: DefaultSyncLatency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Version returns the number of transitions applied so far.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Subscribe registers fn to be called after every transition. Listeners run
// on the goroutine that made the change, after the store lock is released,
// in registration order. The returned func removes the listener.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			defer s.listenersMu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) notify(c Change) {
	s.listenersMu.Lock()
	ls := make([]listener, len(s.listeners))
	copy(ls, s.listeners)
	s.listenersMu.Unlock()

	for _, l := range ls {
		l.fn(c)
	}
}

// apply runs mutate under the lock, bumps the version and publishes the
// change once the lock is released.
func (s *Store) apply(kind AuditKind, mutate func(st *State, now time.Time)) {
	s.mu.Lock()
	mutate(&s.state, s.now())
	s.version++
	c := Change{Kind: kind, Version: s.version}
	s.mu.Unlock()

	s.logger.Debug("workflow transition",
		zap.String("kind", string(kind)),
		zap.Uint64("version", c.Version),
	)
	s.notify(c)
}

func (s *Store) event(now time.Time, kind AuditKind, message string, meta map[string]any) AuditEvent {
	return AuditEvent{
		ID:      s.newID(),
		TS:      now,
		Kind:    kind,
		Message: message,
		Meta:    meta,
	}
}

func prepend(log []AuditEvent, e AuditEvent) []AuditEvent {
	out := make([]AuditEvent, 0, len(log)+1)
	out = append(out, e)
	return append(out, log...)
}

// CreateGoal makes input the single active goal. Callers validate input
// first; the store accepts whatever it is given.
func (s *Store) CreateGoal(input GoalInput) GoalSpec {
	var goal GoalSpec
	s.apply(KindGoalCreated, func(st *State, now time.Time) {
		goal = GoalSpec{ID: s.newID(), GoalInput: input, CreatedAt: now}.clone()
		stored := goal.clone()
		st.Goal = &stored
		st.AuditLog = prepend(st.AuditLog, s.event(now, KindGoalCreated,
			fmt.Sprintf("Goal created for metric %q", goal.MetricName),
			map[string]any{"target": goal.TargetValue},
		))
	})
	return goal
}

// UpdateConnectorStatus sets the status of the connector with the given key.
// It reports false, and changes nothing, when no such connector exists.
func (s *Store) UpdateConnectorStatus(key MetricSource, status ConnectorStatus) bool {
	// The connector set is fixed at New, so the lookup stays valid once the
	// lock is dropped.
	s.mu.Lock()
	idx := -1
	for i, c := range s.state.Connectors {
		if c.Key == key {
			idx = i
			break
		}
	}
	s.mu.Unlock()
	if idx < 0 {
		return false
	}

	s.apply(KindConnectorUpdated, func(st *State, now time.Time) {
		st.Connectors = withConnector(st.Connectors, key, func(c *Connector) {
			c.Status = status
		})
		st.AuditLog = prepend(st.AuditLog, s.event(now, KindConnectorUpdated,
			fmt.Sprintf("Connector %q status → %s", key, status), nil))
	})
	return true
}

// withConnector returns a copy of cs with fn applied to the connector
// matching key.
func withConnector(cs []Connector, key MetricSource, fn func(*Connector)) []Connector {
	out := make([]Connector, len(cs))
	copy(out, cs)
	for i := range out {
		if out[i].Key == key {
			fn(&out[i])
		}
	}
	return out
}

// SyncMetrics pulls a metrics snapshot from the first connected connector,
// falling back to firebase. It blocks for the configured latency. The
// connector shows as syncing in the meantime and every other action stays
// available. A started sync cannot be cancelled. Two overlapping syncs both
// complete and the later one wins.
func (s *Store) SyncMetrics() MetricsSnapshot {
	var source MetricSource
	s.apply(KindSyncStarted, func(st *State, _ time.Time) {
		source = SourceFirebase
		for _, c := range st.Connectors {
			if c.Status == StatusConnected {
				source = c.Key
				break
			}
		}
		st.Connectors = withConnector(st.Connectors, source, func(c *Connector) {
			c.Status = StatusSyncing
		})
	})

	s.logger.Info("metrics sync started",
		zap.String("source", string(source)),
		zap.Duration("latency", s.syncLatency),
	)
	s.sleep(s.syncLatency)

	var snap MetricsSnapshot
	s.apply(KindDataSynced, func(st *State, now time.Time) {
		snap = MetricsSnapshot{
			Source:          source,
			SyncedAt:        now,
			Funnel:          syncedFunnel(),
			EventDictionary: syncedEvents(),
			Notes:           syncedNotes,
		}
		stored := snap.clone()
		st.Metrics = &stored
		st.Connectors = withConnector(st.Connectors, source, func(c *Connector) {
			c.Status = StatusConnected
			c.LastSyncAt = &now
		})
		st.AuditLog = prepend(st.AuditLog, s.event(now, KindDataSynced,
			fmt.Sprintf("Metrics synced from %s", source), nil))
	})
	return snap.clone()
}

// GenerateVariants replaces the variant set with the fixed batch of three.
func (s *Store) GenerateVariants() []Variant {
	var variants []Variant
	s.apply(KindVariantsGenerated, func(st *State, now time.Time) {
		variants = make([]Variant, len(variantTemplates))
		for i, tmpl := range variantTemplates {
			v := tmpl
			v.ID = s.newID()
			v.CreatedAt = now
			variants[i] = v
		}
		st.Variants = variants
		st.AuditLog = prepend(st.AuditLog, s.event(now, KindVariantsGenerated,
			fmt.Sprintf("%d variants generated", len(variants)), nil))
	})
	return slices.Clone(variants)
}

// QueueRuns creates one queued run per (variant, device) pair, variant-major,
// discarding any earlier runs.
func (s *Store) QueueRuns() []Run {
	var runs []Run
	s.apply(KindRunsQueued, func(st *State, now time.Time) {
		runs = make([]Run, 0, len(st.Variants)*len(devices))
		for _, v := range st.Variants {
			for _, d := range devices {
				runs = append(runs, Run{
					ID:               s.newID(),
					VariantID:        v.ID,
					DeviceID:         d.ID,
					Status:           RunQueued,
					Logs:             []string{},
					ScreenshotLabels: []string{},
				})
			}
		}
		st.Runs = runs
		st.AuditLog = prepend(st.AuditLog, s.event(now, KindRunsQueued,
			fmt.Sprintf("%d device runs queued", len(runs)), nil))
	})
	return cloneRuns(runs)
}

// simulateRun derives the outcome of the run at position i. It depends on
// nothing but i.
func simulateRun(run Run, i int, now time.Time) Run {
	r := SeededRandom(float64(i + 1))

	status := RunRetrying
	if r > passThreshold {
		status = RunPassed
	}
	duration := roundHalfUp(20 + r*40)
	score := roundHalfUp(85 + r*10)
	crashFree := r > crashFreeThreshold
	started, finished := now, now

	run.Status = status
	run.StartedAt = &started
	run.FinishedAt = &finished
	run.DurationSec = &duration
	run.PixelPerfectScore = &score
	run.CrashFree = &crashFree
	run.Logs = append([]string(nil), simulatedLogs...)
	run.ScreenshotLabels = append([]string(nil), simulatedScreenshots...)
	return run
}

// SimulateRunProgress moves every run to its simulated outcome.
func (s *Store) SimulateRunProgress() []Run {
	var runs []Run
	s.apply(KindRunsUpdated, func(st *State, now time.Time) {
		runs = make([]Run, len(st.Runs))
		for i, run := range st.Runs {
			runs[i] = simulateRun(run, i, now)
		}
		st.Runs = runs
		st.AuditLog = prepend(st.AuditLog, s.event(now, KindRunsUpdated, "Device runs executed", nil))
	})
	return cloneRuns(runs)
}

func scoreVariant(v Variant, i int, id string) Result {
	why := whyDefault
	if i == recommendedIndex {
		why = whyRecommended
	}
	fi := float64(i)
	return Result{
		ID:          id,
		VariantID:   v.ID,
		Score:       70 + i*6,
		Recommended: i == recommendedIndex,
		Why:         why,
		Breakdown: ScoringBreakdown{
			EstimatedImpact:   ImpactRange{Min: 6 + fi, Max: 12 + fi, Unit: UnitPercent},
			ConfidencePct:     78 + fi*5,
			FrictionDeltaSec:  -0.8 - fi*0.2,
			ErrorDensityDelta: -0.02,
			Guardrails: []Guardrail{
				{Key: "crash_rate", OK: true},
				{Key: "latency", OK: true},
			},
		},
	}
}

// ScoreResults produces one result per variant, in variant order, replacing
// any earlier results.
func (s *Store) ScoreResults() []Result {
	var results []Result
	s.apply(KindResultsScored, func(st *State, now time.Time) {
		results = make([]Result, len(st.Variants))
		for i, v := range st.Variants {
			results[i] = scoreVariant(v, i, s.newID())
		}
		st.Results = results
		st.AuditLog = prepend(st.AuditLog, s.event(now, KindResultsScored, "Variants scored and ranked", nil))
	})
	return cloneResults(results)
}

// ResetFlow clears everything but the connectors and leaves a single
// flow.reset event in the audit log.
func (s *Store) ResetFlow() {
	s.apply(KindFlowReset, func(st *State, now time.Time) {
		st.Goal = nil
		st.Metrics = nil
		st.Variants = []Variant{}
		st.Runs = []Run{}
		st.Results = []Result{}
		st.AuditLog = []AuditEvent{s.event(now, KindFlowReset, "Flow reset", nil)}
	})
}
