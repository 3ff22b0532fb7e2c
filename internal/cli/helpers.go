package cli

import (
	"fmt"
	"time"

	"github.com/intentlayer/intentlayer/internal/stage"
	"github.com/intentlayer/intentlayer/internal/workflow"
)

// newFlow builds the in-memory store every command works on.
func newFlow() *workflow.Store {
	return workflow.New(
		workflow.WithLogger(logger),
		workflow.WithSyncLatency(cfg.SyncLatency),
	)
}

// location is the configured display zone. Load has already validated it.
func location() *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		return time.Local
	}
	return loc
}

// runFlow drives a store through the whole workflow with the given goal.
func runFlow(flow *workflow.Store, form stage.GoalForm) error {
	if _, err := form.Submit(flow); err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	flow.SyncMetrics()
	flow.GenerateVariants()
	flow.QueueRuns()
	flow.SimulateRunProgress()
	flow.ScoreResults()
	return nil
}
