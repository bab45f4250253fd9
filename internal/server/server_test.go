package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthzReportsOK(t *testing.T) {
	health := Health{
		Postgres:   fakePinger{},
		Redis:      fakePinger{},
		Checkpoint: func(context.Context) (uint64, error) { return 1234, nil },
	}
	handler := healthHandler(health, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" || body["postgres"] != "ok" || body["redis"] != "ok" {
		t.Errorf("body = %v", body)
	}
	if body["last_processed_block"] != float64(1234) {
		t.Errorf("last_processed_block = %v, want 1234", body["last_processed_block"])
	}
}

func TestHealthzDegradedOnDependencyFailure(t *testing.T) {
	health := Health{
		Postgres: fakePinger{err: errors.New("connection refused")},
		Redis:    fakePinger{},
	}
	handler := healthHandler(health, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
	if body["redis"] != "ok" {
		t.Errorf("redis = %v, want ok", body["redis"])
	}
}
