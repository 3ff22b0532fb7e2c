package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/intentlayer/intentlayer/internal/dashboard"
	"github.com/intentlayer/intentlayer/internal/stage"
	"github.com/intentlayer/intentlayer/internal/workflow"
)

// Dashboard template data structures
type layoutData struct {
	Title   string
	CSS     template.CSS
	Nav     []stage.Stage
	Active  stage.Key
	Flash   string
	Content template.HTML
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"inc":      func(i int) int { return i + 1 },
		"fmtTime":  func(t interface{}) string { return s.formatTime(t) },
		"goalLine": stage.GoalLine,
		"users":    stage.FormatUsers,
		"badge":    stage.BadgeLabel,
		"percent":  func(p float64) string { return formatPercentage(p * 100) },
		"deref": func(p *float64) string {
			if p == nil {
				return ""
			}
			return stage.FormatNumber(*p)
		},
		"risks": func() []string {
			return []string{string(workflow.RiskLow), string(workflow.RiskMedium), string(workflow.RiskHigh)}
		},
		"constraintOptions": func() []stage.ConstraintOption { return stage.ConstraintOptions },
		"connectorStatuses": func() []workflow.ConnectorStatus {
			return []workflow.ConnectorStatus{
				workflow.StatusConnected,
				workflow.StatusDisconnected,
				workflow.StatusExpired,
				workflow.StatusSyncing,
			}
		},
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// Handle logout
	if r.URL.Query().Get("logout") == "1" {
		http.SetCookie(w, &http.Cookie{
			Name:   tokenCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	key := stage.Goal
	if p := chi.URLParam(r, "stage"); p != "" {
		key = stage.Key(p)
	}
	if _, ok := stage.Lookup(key); !ok {
		http.NotFound(w, r)
		return
	}

	st := s.flow.Snapshot()
	q := r.URL.Query()

	var data any
	switch key {
	case stage.Goal:
		form := stage.DefaultGoalForm()
		if st.Goal != nil {
			form = stage.GoalFormFrom(*st.Goal)
		}
		data = stage.NewGoalView(st, form)
	case stage.Data:
		data = stage.NewDataView(st)
	case stage.Variants:
		data = stage.NewVariantsView(st, q.Get("variant"))
	case stage.Runs:
		data = stage.NewRunsView(st, q.Get("run"))
	case stage.Results:
		data = stage.NewResultsView(st, q.Get("variant"))
	case stage.Audit:
		data = stage.NewAuditView(st, s.loc)
	}

	s.renderDashboard(w, http.StatusOK, key, q.Get("flash"), data)
}

// handleDashboardAction runs the store action behind a form button and
// redirects back to the stage.
func (s *Server) handleDashboardAction(w http.ResponseWriter, r *http.Request) {
	key := stage.Key(chi.URLParam(r, "stage"))
	action := chi.URLParam(r, "action")

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	flash := ""
	switch string(key) + "/" + action {
	case "goal/create":
		form := goalFormFromRequest(r)
		if _, err := form.Submit(s.flow); err != nil {
			s.renderDashboard(w, http.StatusUnprocessableEntity, stage.Goal, "",
				stage.NewGoalView(s.flow.Snapshot(), form))
			return
		}
		flash = "Goal created."
	case "goal/demo":
		if _, err := stage.DemoGoalForm().Submit(s.flow); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		flash = "Demo goal created."
	case "data/sync":
		if !stage.NewDataView(s.flow.Snapshot()).CanSync() {
			flash = "A sync is already running."
			break
		}
		s.startSync()
		flash = "Sync started."
	case "data/connector":
		k := workflow.MetricSource(r.PostForm.Get("key"))
		status := workflow.ConnectorStatus(r.PostForm.Get("status"))
		if !workflow.ValidConnectorStatus(status) {
			http.Error(w, "Invalid status", http.StatusBadRequest)
			return
		}
		if !s.flow.UpdateConnectorStatus(k, status) {
			http.NotFound(w, r)
			return
		}
	case "variants/generate":
		s.flow.GenerateVariants()
	case "runs/queue":
		if !stage.NewRunsView(s.flow.Snapshot(), "").CanQueue {
			flash = "Generate variants before queueing runs."
			break
		}
		s.flow.QueueRuns()
	case "runs/simulate":
		if !stage.NewRunsView(s.flow.Snapshot(), "").CanSimulate {
			flash = "Queue runs before simulating."
			break
		}
		s.flow.SimulateRunProgress()
	case "results/score":
		if !stage.NewResultsView(s.flow.Snapshot(), "").CanScore {
			flash = "Variants and runs are required before scoring."
			break
		}
		s.flow.ScoreResults()
	case "audit/reset":
		s.flow.ResetFlow()
		flash = "Flow reset."
	default:
		http.NotFound(w, r)
		return
	}

	s.logger.Debug("dashboard action", zap.String("stage", string(key)), zap.String("action", action))

	target := "/dashboard/" + string(key)
	if flash != "" {
		target += "?flash=" + url.QueryEscape(flash)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func goalFormFromRequest(r *http.Request) stage.GoalForm {
	f := r.PostForm
	form := stage.GoalForm{
		MetricName:    f.Get("metric_name"),
		Baseline:      f.Get("baseline"),
		Target:        f.Get("target"),
		Unit:          workflow.Unit(f.Get("unit")),
		AppArea:       f.Get("app_area"),
		Screens:       f.Get("screens"),
		RiskTolerance: workflow.RiskLevel(f.Get("risk_tolerance")),
		Notes:         f.Get("notes"),
	}
	for _, c := range f["constraints"] {
		form.Constraints = append(form.Constraints, workflow.ConstraintKey(c))
	}
	return form
}

func (s *Server) renderDashboard(w http.ResponseWriter, status int, key stage.Key, flash string, data interface{}) {
	st, _ := stage.Lookup(key)

	// Load CSS
	cssBytes, err := dashboard.Assets.ReadFile("assets/style.css")
	if err != nil {
		http.Error(w, "Failed to load styles", http.StatusInternalServerError)
		return
	}

	// Load and execute content template
	contentTmplBytes, err := dashboard.Templates.ReadFile("templates/" + string(key) + ".html")
	if err != nil {
		http.Error(w, "Failed to load template", http.StatusInternalServerError)
		return
	}

	contentTmpl, err := template.New("content").Funcs(s.templateFuncs()).Parse(string(contentTmplBytes))
	if err != nil {
		http.Error(w, "Failed to parse template", http.StatusInternalServerError)
		return
	}

	var contentBuf bytes.Buffer
	if err := contentTmpl.Execute(&contentBuf, data); err != nil {
		s.logger.Error("failed to render stage", zap.String("stage", string(key)), zap.Error(err))
		http.Error(w, fmt.Sprintf("Failed to render template: %v", err), http.StatusInternalServerError)
		return
	}

	// Load and execute layout template
	layoutTmplBytes, err := dashboard.Templates.ReadFile("templates/layout.html")
	if err != nil {
		http.Error(w, "Failed to load layout", http.StatusInternalServerError)
		return
	}

	layoutTmpl, err := template.New("layout").Funcs(s.templateFuncs()).Parse(string(layoutTmplBytes))
	if err != nil {
		http.Error(w, "Failed to parse layout", http.StatusInternalServerError)
		return
	}

	var page bytes.Buffer
	if err := layoutTmpl.Execute(&page, layoutData{
		Title:   st.Label,
		CSS:     template.CSS(cssBytes),
		Nav:     stage.Stages,
		Active:  key,
		Flash:   flash,
		Content: template.HTML(contentBuf.String()),
	}); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page.WriteTo(w)
}

func (s *Server) formatTime(t interface{}) string {
	switch v := t.(type) {
	case time.Time:
		return stage.FormatTime(v, s.loc)
	case *time.Time:
		if v == nil {
			return "—"
		}
		return stage.FormatTime(*v, s.loc)
	}
	return ""
}

func formatPercentage(p float64) string {
	if p < 0.01 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", p)
}
