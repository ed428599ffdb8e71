package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		check      HealthCheck
		timeout    time.Duration
		wantStatus int
		wantBody   string
	}{
		{name: "no check", method: http.MethodGet, wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "store reachable", method: http.MethodGet, check: func(context.Context) error { return nil }, wantStatus: http.StatusOK, wantBody: "ok"},
		{
			name:       "store unreachable",
			method:     http.MethodGet,
			check:      func(context.Context) error { return errors.New("database unreachable") },
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unavailable",
		},
		{
			name:   "check exceeds timeout",
			method: http.MethodGet,
			check: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			timeout:    10 * time.Millisecond,
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unavailable",
		},
		{name: "wrong method", method: http.MethodPost, wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := HealthHandler{Check: tc.check, Timeout: tc.timeout}
			rec := httptest.NewRecorder()
			handler.Handle(rec, httptest.NewRequest(tc.method, "/healthz", nil))

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantBody == "" {
				return
			}
			if got := rec.Header().Get("Content-Type"); got != "application/json" {
				t.Fatalf("expected json content type got %s", got)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["status"] != tc.wantBody {
				t.Fatalf("expected status %q got %q", tc.wantBody, body["status"])
			}
		})
	}
}
