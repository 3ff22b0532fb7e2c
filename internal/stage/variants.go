package stage

import "github.com/intentlayer/intentlayer/internal/workflow"

type VariantsView struct {
	Goal     *workflow.GoalSpec
	Metrics  *workflow.MetricsSnapshot
	Variants []workflow.Variant
	Active   *workflow.Variant
}

// NewVariantsView selects activeID when it names a variant. Otherwise the
// second variant is shown, since that is the one scoring recommends.
func NewVariantsView(st workflow.State, activeID string) VariantsView {
	v := VariantsView{
		Goal:     st.Goal,
		Metrics:  st.Metrics,
		Variants: st.Variants,
	}
	if a, ok := st.Variant(activeID); ok {
		v.Active = &a
		return v
	}
	switch {
	case len(st.Variants) > 1:
		v.Active = &st.Variants[1]
	case len(st.Variants) == 1:
		v.Active = &st.Variants[0]
	}
	return v
}
