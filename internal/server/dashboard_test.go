package server_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/intentlayer/intentlayer/internal/server"
	"github.com/intentlayer/intentlayer/internal/workflow"
)

func dashboardRequest(srv *server.Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.AddCookie(&http.Cookie{Name: "il_token", Value: srv.Token()})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestDashboard_Unauthorized(t *testing.T) {
	srv, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestDashboard_ValidToken(t *testing.T) {
	srv, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/runs?token="+srv.Token(), nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected status 302 (redirect), got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard/runs" {
		t.Errorf("expected redirect without token, got %s", loc)
	}

	var tokenCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "il_token" {
			tokenCookie = c
		}
	}
	if tokenCookie == nil || !tokenCookie.HttpOnly {
		t.Error("expected HttpOnly il_token cookie to be set")
	}
}

func TestDashboard_InvalidToken(t *testing.T) {
	srv, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard?token=wrong", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestDashboard_Logout(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := dashboardRequest(srv, http.MethodGet, "/dashboard?logout=1", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected cookie to be cleared, got %+v", cookies)
	}
}

func TestDashboard_RendersEveryStage(t *testing.T) {
	srv, flow := setupTestServer(t)
	flow.SyncMetrics()
	flow.GenerateVariants()
	flow.QueueRuns()
	flow.SimulateRunProgress()
	flow.ScoreResults()

	tests := map[string]string{
		"/dashboard":          "Define the goal",
		"/dashboard/goal":     "Load demo goal",
		"/dashboard/data":     "Event dictionary",
		"/dashboard/variants": "Remove optional field in step 2",
		"/dashboard/runs":     "iPhone 14",
		"/dashboard/results":  "Recommended",
		"/dashboard/audit":    "Audit trail:",
	}
	for target, want := range tests {
		t.Run(target, func(t *testing.T) {
			w := dashboardRequest(srv, http.MethodGet, target, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Header().Get("Content-Type"), "text/html") {
				t.Errorf("expected HTML content type, got %s", w.Header().Get("Content-Type"))
			}
			if !strings.Contains(w.Body.String(), want) {
				t.Errorf("expected page to contain %q", want)
			}
		})
	}
}

func TestDashboard_UnknownStage(t *testing.T) {
	srv, _ := setupTestServer(t)

	if w := dashboardRequest(srv, http.MethodGet, "/dashboard/settings", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	if w := dashboardRequest(srv, http.MethodPost, "/dashboard/runs/explode", url.Values{}); w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestDashboard_Actions(t *testing.T) {
	srv, flow := setupTestServer(t)

	steps := []struct {
		target string
		kind   workflow.AuditKind
	}{
		{"/dashboard/goal/demo", workflow.KindGoalCreated},
		{"/dashboard/variants/generate", workflow.KindVariantsGenerated},
		{"/dashboard/runs/queue", workflow.KindRunsQueued},
		{"/dashboard/runs/simulate", workflow.KindRunsUpdated},
		{"/dashboard/results/score", workflow.KindResultsScored},
		{"/dashboard/audit/reset", workflow.KindFlowReset},
	}
	for _, step := range steps {
		w := dashboardRequest(srv, http.MethodPost, step.target, url.Values{})
		if w.Code != http.StatusSeeOther {
			t.Fatalf("%s: expected status 303, got %d", step.target, w.Code)
		}
		if got := flow.Snapshot().AuditLog[0].Kind; got != step.kind {
			t.Errorf("%s: expected %s, got %s", step.target, step.kind, got)
		}
	}
}

func TestDashboard_ConnectorAction(t *testing.T) {
	srv, flow := setupTestServer(t)

	w := dashboardRequest(srv, http.MethodPost, "/dashboard/data/connector", url.Values{
		"key":    {"segment"},
		"status": {"expired"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", w.Code)
	}
	if st := flow.Snapshot(); st.Connectors[3].Status != workflow.StatusExpired {
		t.Errorf("expected segment expired, got %s", st.Connectors[3].Status)
	}
}

func TestDashboard_GoalFormErrors(t *testing.T) {
	srv, flow := setupTestServer(t)

	w := dashboardRequest(srv, http.MethodPost, "/dashboard/goal/create", url.Values{
		"metric_name": {"activation"},
		"baseline":    {"abc"},
		"target":      {"55"},
		"unit":        {"percent"},
		"app_area":    {"Onboarding"},
		"screens":     {"Welcome"},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Baseline value must be a number.") {
		t.Error("expected the validation error on the page")
	}
	if !strings.Contains(w.Body.String(), `value="activation"`) {
		t.Error("expected the draft to be kept")
	}
	if flow.Snapshot().Goal != nil {
		t.Error("invalid goal must not be stored")
	}

	w = dashboardRequest(srv, http.MethodPost, "/dashboard/goal/create", url.Values{
		"metric_name": {"activation"},
		"baseline":    {"10"},
		"target":      {"20"},
		"unit":        {"percent"},
		"app_area":    {"Onboarding"},
		"screens":     {"Welcome, Email"},
		"constraints": {"ui_only", "ship_in_24h"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", w.Code)
	}
	goal := flow.Snapshot().Goal
	if goal == nil || goal.MetricName != "activation" || len(goal.Constraints) != 2 {
		t.Errorf("unexpected goal %+v", goal)
	}
}

func TestDashboard_ActionsRequirePrerequisites(t *testing.T) {
	srv, flow := setupTestServer(t)

	tests := []struct {
		target string
		flash  string
	}{
		{"/dashboard/runs/queue", "Generate variants before queueing runs."},
		{"/dashboard/runs/simulate", "Queue runs before simulating."},
		{"/dashboard/results/score", "Variants and runs are required before scoring."},
	}
	for _, tt := range tests {
		w := dashboardRequest(srv, http.MethodPost, tt.target, url.Values{})
		if w.Code != http.StatusSeeOther {
			t.Fatalf("%s: expected status 303, got %d", tt.target, w.Code)
		}
		loc, err := url.Parse(w.Header().Get("Location"))
		if err != nil {
			t.Fatalf("%s: bad redirect: %v", tt.target, err)
		}
		if got := loc.Query().Get("flash"); got != tt.flash {
			t.Errorf("%s: expected flash %q, got %q", tt.target, tt.flash, got)
		}
	}
	if n := len(flow.Snapshot().AuditLog); n != 0 {
		t.Errorf("expected no audit events for refused actions, got %d", n)
	}
}

func TestDashboard_GoalFormRejectsNonFinite(t *testing.T) {
	srv, flow := setupTestServer(t)

	for _, baseline := range []string{"NaN", "Inf"} {
		w := dashboardRequest(srv, http.MethodPost, "/dashboard/goal/create", url.Values{
			"metric_name": {"activation"},
			"baseline":    {baseline},
			"target":      {"55"},
			"unit":        {"absolute"},
			"app_area":    {"Onboarding"},
			"screens":     {"Welcome"},
		})
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: expected status 422, got %d", baseline, w.Code)
		}
	}
	if flow.Snapshot().Goal != nil {
		t.Fatal("non-finite baseline must not be stored")
	}

	if w := do(srv, http.MethodGet, "/api/state", ""); w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Errorf("expected encodable state, got %d with %d bytes", w.Code, w.Body.Len())
	}
}
