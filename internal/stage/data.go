package stage

import (
	"github.com/intentlayer/intentlayer/internal/stats"
	"github.com/intentlayer/intentlayer/internal/workflow"
)

// DataView is what the Data stage renders.
type DataView struct {
	Connectors []workflow.Connector
	Metrics    *workflow.MetricsSnapshot
	Funnel     []stats.StepConversion
	Events     []workflow.EventCount
	Syncing    bool
}

func NewDataView(st workflow.State) DataView {
	v := DataView{
		Connectors: st.Connectors,
		Metrics:    st.Metrics,
	}
	for _, c := range st.Connectors {
		if c.Status == workflow.StatusSyncing {
			v.Syncing = true
		}
	}
	if st.Metrics != nil {
		v.Funnel = stats.FunnelConversion(st.Metrics.Funnel)
		v.Events = st.Metrics.EventDictionary
	}
	return v
}

// CanSync is false while a sync is pending.
func (v DataView) CanSync() bool {
	return !v.Syncing
}
