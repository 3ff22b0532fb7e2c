// Package stage turns workflow state into what each of the six screens
// shows. Every view here is a pure function of a workflow.State snapshot;
// changes go through the workflow.Store.
package stage

type Key string

const (
	Goal     Key = "goal"
	Data     Key = "data"
	Variants Key = "variants"
	Runs     Key = "runs"
	Results  Key = "results"
	Audit    Key = "audit"
)

type Stage struct {
	Key         Key
	Label       string
	Description string
}

// Stages is the navigation order.
var Stages = []Stage{
	{Key: Goal, Label: "Goal", Description: "Define objective + constraints"},
	{Key: Data, Label: "Data", Description: "Connect + sync analytics"},
	{Key: Variants, Label: "Variants", Description: "Generate controlled options"},
	{Key: Runs, Label: "Runs", Description: "Queue device evaluations"},
	{Key: Results, Label: "Results", Description: "Score + rank outcomes"},
	{Key: Audit, Label: "Audit Log", Description: "Trace every action"},
}

// Lookup returns the stage for key.
func Lookup(key Key) (Stage, bool) {
	for _, s := range Stages {
		if s.Key == key {
			return s, true
		}
	}
	return Stage{}, false
}

// Index returns the position of key in Stages, or -1.
func Index(key Key) int {
	for i, s := range Stages {
		if s.Key == key {
			return i
		}
	}
	return -1
}

// Next returns the stage after key, wrapping around.
func Next(key Key) Key {
	i := Index(key)
	return Stages[(i+1)%len(Stages)].Key
}

// Prev returns the stage before key, wrapping around.
func Prev(key Key) Key {
	i := Index(key)
	if i <= 0 {
		return Stages[len(Stages)-1].Key
	}
	return Stages[i-1].Key
}
