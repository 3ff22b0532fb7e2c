package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/intentlayer/intentlayer/internal/stage"
	"github.com/intentlayer/intentlayer/internal/workflow"
)

type HealthResponse struct {
	Status        string `json:"status"`
	Version       uint64 `json:"version"`
	AuditCount    int    `json:"audit_count"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Reasons an action is refused while its prerequisites are missing.
const (
	errSyncRunning = "a sync is already running"
	errNoVariants  = "generate variants before queueing runs"
	errNoRuns      = "no runs queued"
	errCannotScore = "variants and runs are required before scoring"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

// writeJSON encodes v before writing the header so an unencodable value
// becomes a 500 instead of a 2xx with an empty body.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Int("status", status), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.flow.Snapshot()

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       s.flow.Version(),
		AuditCount:    len(st.AuditLog),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.flow.Snapshot())
}

// GoalRequest is the body of POST /api/goal. Baseline and target are taken
// as JSON numbers or numeric strings.
type GoalRequest struct {
	MetricName    string                   `json:"metric_name"`
	BaselineValue json.Number              `json:"baseline_value"`
	TargetValue   json.Number              `json:"target_value"`
	Unit          workflow.Unit            `json:"unit"`
	AppArea       string                   `json:"app_area"`
	Screens       []string                 `json:"screens"`
	Constraints   []workflow.ConstraintKey `json:"constraints"`
	RiskTolerance workflow.RiskLevel       `json:"risk_tolerance"`
	Notes         string                   `json:"notes"`
}

func (req GoalRequest) form() stage.GoalForm {
	return stage.GoalForm{
		MetricName:    req.MetricName,
		Baseline:      req.BaselineValue.String(),
		Target:        req.TargetValue.String(),
		Unit:          req.Unit,
		AppArea:       req.AppArea,
		Screens:       strings.Join(req.Screens, ", "),
		ScreenList:    append([]string{}, req.Screens...),
		RiskTolerance: req.RiskTolerance,
		Constraints:   req.Constraints,
		Notes:         req.Notes,
	}
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	form := req.form()
	if errs := form.Validate(); len(errs) > 0 {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid goal", Errors: errs})
		return
	}

	goal, err := form.Submit(s.flow)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, goal)
}

type connectorRequest struct {
	Status workflow.ConnectorStatus `json:"status"`
}

func (s *Server) handleUpdateConnector(w http.ResponseWriter, r *http.Request) {
	key := workflow.MetricSource(chi.URLParam(r, "key"))

	var req connectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !workflow.ValidConnectorStatus(req.Status) {
		s.writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if !s.flow.UpdateConnectorStatus(key, req.Status) {
		s.writeError(w, http.StatusNotFound, "connector not found")
		return
	}
	s.writeJSON(w, http.StatusOK, s.flow.Snapshot().Connectors)
}

// startSync runs SyncMetrics in the background. Shutdown waits for it.
func (s *Server) startSync() {
	s.syncs.Add(1)
	go func() {
		defer s.syncs.Done()
		snap := s.flow.SyncMetrics()
		s.logger.Info("metrics synced",
			zap.String("source", string(snap.Source)),
			zap.Int("funnel_steps", len(snap.Funnel)),
		)
	}()
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if !stage.NewDataView(s.flow.Snapshot()).CanSync() {
		s.writeError(w, http.StatusConflict, errSyncRunning)
		return
	}
	s.startSync()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "syncing"})
}

func (s *Server) handleGenerateVariants(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.flow.GenerateVariants())
}

func (s *Server) handleQueueRuns(w http.ResponseWriter, r *http.Request) {
	if !stage.NewRunsView(s.flow.Snapshot(), "").CanQueue {
		s.writeError(w, http.StatusConflict, errNoVariants)
		return
	}
	s.writeJSON(w, http.StatusOK, s.flow.QueueRuns())
}

func (s *Server) handleSimulateRuns(w http.ResponseWriter, r *http.Request) {
	if !stage.NewRunsView(s.flow.Snapshot(), "").CanSimulate {
		s.writeError(w, http.StatusConflict, errNoRuns)
		return
	}
	s.writeJSON(w, http.StatusOK, s.flow.SimulateRunProgress())
}

func (s *Server) handleScoreResults(w http.ResponseWriter, r *http.Request) {
	if !stage.NewResultsView(s.flow.Snapshot(), "").CanScore {
		s.writeError(w, http.StatusConflict, errCannotScore)
		return
	}
	s.writeJSON(w, http.StatusOK, s.flow.ScoreResults())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.flow.ResetFlow()
	s.writeJSON(w, http.StatusOK, s.flow.Snapshot())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(stage.ExportText(s.flow.Snapshot(), s.loc)))
}
