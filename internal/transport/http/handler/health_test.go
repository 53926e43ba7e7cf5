package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		checks map[string]func(context.Context) error
		status int
	}{
		{name: "all healthy", checks: map[string]func(context.Context) error{"vector_store": ok, "mysql": ok}, status: http.StatusOK},
		{name: "one down", checks: map[string]func(context.Context) error{"vector_store": down, "redis": ok}, status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("resume-ragger", "test", time.Now(), tt.checks)
			r := gin.New()
			r.GET("/healthz", h.Check)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			var body struct {
				App          string                      `json:"app"`
				Dependencies map[string]dependencyStatus `json:"dependencies"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.App != "resume-ragger" || len(body.Dependencies) != len(tt.checks) {
				t.Fatalf("unexpected body %s", w.Body.String())
			}
		})
	}
}
