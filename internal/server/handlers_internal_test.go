package server

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

func TestWriteJSON_EncodeFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := New(workflow.New(), Options{Logger: zap.New(core)})

	w := httptest.NewRecorder()
	s.writeJSON(w, http.StatusOK, map[string]float64{"target": math.NaN()})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	if logs.FilterMessage("failed to encode response").Len() != 1 {
		t.Errorf("expected the encode failure to be logged, got %v", logs.All())
	}
}
