package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"threatwire/internal/domain"
	"threatwire/internal/logging"
	"threatwire/internal/usecase"
)

type fakeRunner struct {
	calls  atomic.Int64
	result *domain.RunResult
	err    error
}

func (f *fakeRunner) Run(ctx context.Context) (*domain.RunResult, error) {
	f.calls.Add(1)
	return f.result, f.err
}

func newTestServer(runner Runner) *Server {
	return NewServer(runner, "s3cret", logging.New("error"))
}

func TestIngestRejectsMissingToken(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: &domain.RunResult{}}
	srv := newTestServer(runner)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if runner.calls.Load() != 0 {
		t.Fatal("unauthorized call reached the pipeline")
	}
}

func TestIngestRejectsWrongToken(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: &domain.RunResult{}}
	srv := newTestServer(runner)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if runner.calls.Load() != 0 {
		t.Fatal("unauthorized call reached the pipeline")
	}
}

func TestIngestReportsRunCounters(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: &domain.RunResult{
		RunID:     "run-1",
		Processed: 10,
		Added:     3,
		Skipped:   7,
		Errors:    []string{"fetch feedX: timeout"},
	}}
	srv := newTestServer(runner)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RunID != "run-1" || resp.ArticlesProcessed != 10 || resp.ArticlesAdded != 3 || resp.ArticlesSkipped != 7 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Errors) != 1 {
		t.Fatalf("errors not reported: %+v", resp)
	}
}

func TestIngestReportsEmptyErrorsArray(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeRunner{result: &domain.RunResult{RunID: "run-2"}})

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(raw["errors"]) != "[]" {
		t.Fatalf("errors = %s, want []", raw["errors"])
	}
}

func TestIngestFailedRun(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeRunner{err: errors.New("seed dedup index: connection refused")})

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestIngestBusy(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeRunner{err: usecase.ErrRunInProgress})

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestHealthzNeedsNoAuthAndDoesNoWork(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{result: &domain.RunResult{}}
	srv := newTestServer(runner)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if runner.calls.Load() != 0 {
		t.Fatal("liveness check triggered work")
	}
}
