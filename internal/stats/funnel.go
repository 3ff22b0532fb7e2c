// Package stats computes the figures the Data stage shows next to a synced
// funnel.
package stats

import "github.com/intentlayer/intentlayer/internal/workflow"

// StepConversion is one funnel step measured against the top of the funnel.
type StepConversion struct {
	Name    string
	Users   int
	Rate    float64 // users / first step users
	CILower float64
	CIUpper float64
	Dropoff *float64 // as reported by the connector
}

// FunnelConversion measures every step against the first one with a 95%
// Wilson interval. Steps with more users than the first are capped at 1.
func FunnelConversion(funnel []workflow.FunnelStep) []StepConversion {
	if len(funnel) == 0 {
		return nil
	}

	top := funnel[0].Users
	out := make([]StepConversion, len(funnel))
	for i, step := range funnel {
		users := min(step.Users, top)
		sc := StepConversion{
			Name:    step.Name,
			Users:   step.Users,
			Dropoff: step.DropoffPct,
		}
		if top > 0 {
			sc.Rate = float64(users) / float64(top)
			sc.CILower, sc.CIUpper = WilsonInterval(users, top, 0.95)
		}
		out[i] = sc
	}
	return out
}
