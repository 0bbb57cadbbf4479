package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"paper-portal/backend/internal/middleware"
)

func TestHealthzReportsDependencyFailure(t *testing.T) {
	healthy := true
	r := NewRouter(RouterOptions{Health: func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("db down")
	}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	healthy = false
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRouterExposesMetricsAndRequestID(t *testing.T) {
	r := NewRouter(RouterOptions{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set(middleware.RequestIDHeader, "trace-1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected metrics 200, got %d", w.Code)
	}
	if got := w.Header().Get(middleware.RequestIDHeader); got != "trace-1" {
		t.Fatalf("expected request id echo, got %q", got)
	}
}

func TestCORSAllowsLocalOrigins(t *testing.T) {
	r := NewRouter(RouterOptions{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected local origin allowed, got %q", got)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected foreign origin rejected, got %q", got)
	}
}
