package stage

import (
	"cmp"
	"slices"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

type RankedResult struct {
	Rank    int
	Result  workflow.Result
	Variant workflow.Variant
}

// Rank orders results by score, highest first. Ties keep store order.
func Rank(st workflow.State) []RankedResult {
	sorted := slices.Clone(st.Results)
	slices.SortStableFunc(sorted, func(a, b workflow.Result) int {
		return cmp.Compare(b.Score, a.Score)
	})

	out := make([]RankedResult, len(sorted))
	for i, r := range sorted {
		v, ok := st.Variant(r.VariantID)
		if !ok {
			v = workflow.Variant{ID: r.VariantID, Title: "Variant"}
		}
		out[i] = RankedResult{Rank: i + 1, Result: r, Variant: v}
	}
	return out
}

type ResultsView struct {
	Ranked   []RankedResult
	Active   *RankedResult
	RunCount int
	CanScore bool
}

// NewResultsView selects the result for activeVariantID, or the top result.
func NewResultsView(st workflow.State, activeVariantID string) ResultsView {
	v := ResultsView{
		Ranked:   Rank(st),
		RunCount: len(st.Runs),
		CanScore: len(st.Variants) > 0 && len(st.Runs) > 0,
	}
	for i := range v.Ranked {
		if v.Ranked[i].Variant.ID == activeVariantID {
			v.Active = &v.Ranked[i]
			return v
		}
	}
	if len(v.Ranked) > 0 {
		v.Active = &v.Ranked[0]
	}
	return v
}
