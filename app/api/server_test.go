package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/rss-digest/app/ingest"
)

type fakeRunner struct {
	mu      sync.Mutex
	running bool
	last    *ingest.RunSummary
	runs    chan struct{}
}

func (r *fakeRunner) Trigger(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ingest.ErrRunInProgress
	}
	r.last = &ingest.RunSummary{ID: "run-1", Result: "delivered"}

	if r.runs != nil {
		r.runs <- struct{}{}
	}
	return nil
}

func (r *fakeRunner) LastRun() *ingest.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *fakeRunner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func newTestServer(runner *fakeRunner, key string) http.Handler {
	return NewServer(NewHandler(context.Background(), runner, 10, "test"), key)
}

func doRequest(handler http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	runner := &fakeRunner{last: &ingest.RunSummary{ID: "abc", Result: "empty"}}
	server := newTestServer(runner, "")

	w := doRequest(server, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status 'ok', got %v", body["status"])
	}
	if body["sources"] != float64(10) {
		t.Errorf("Expected 10 sources, got %v", body["sources"])
	}
	lastRun, ok := body["last_run"].(map[string]interface{})
	if !ok || lastRun["result"] != "empty" {
		t.Errorf("Expected last run result 'empty', got %v", body["last_run"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(&fakeRunner{}, "")

	w := doRequest(server, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("Expected prometheus exposition output")
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	server := newTestServer(&fakeRunner{}, "")

	w := doRequest(server, http.MethodPost, "/api/runs", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	server := newTestServer(&fakeRunner{last: &ingest.RunSummary{ID: "abc"}}, "secret")

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer key", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(server, http.MethodGet, "/api/runs/last", tt.headers)
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestLastRunNotFound(t *testing.T) {
	server := newTestServer(&fakeRunner{}, "secret")

	w := doRequest(server, http.MethodGet, "/api/runs/last", map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestTriggerRun(t *testing.T) {
	runner := &fakeRunner{runs: make(chan struct{}, 1)}
	server := newTestServer(runner, "secret")

	w := doRequest(server, http.MethodPost, "/api/runs", map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", w.Code)
	}

	select {
	case <-runner.runs:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected run to be started")
	}
}

func TestTriggerRunConflict(t *testing.T) {
	runner := &fakeRunner{running: true}
	server := newTestServer(runner, "secret")

	w := doRequest(server, http.MethodPost, "/api/runs", map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}
