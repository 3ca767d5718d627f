package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealth(t *testing.T) {
	s := NewServer()
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestStatus_BeforeFirstRun(t *testing.T) {
	s := NewServer()
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before any run, got %d", rec.Code)
	}
}

func TestStatus_AfterRun(t *testing.T) {
	s := NewServer()
	s.SetStatus(Status{
		LastRun: time.Date(2025, time.September, 10, 6, 0, 0, 0, time.UTC),
		Weeks:   2,
		Created: 12,
		Updated: 3,
		Skipped: 1,
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if st.Weeks != 2 || st.Created != 12 || st.Updated != 3 || st.Skipped != 1 {
		t.Fatalf("unexpected status payload: %+v", st)
	}
	if st.Error != "" {
		t.Fatalf("unexpected error in status: %q", st.Error)
	}
}
