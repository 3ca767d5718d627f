// Package web exposes read-only operational endpoints for the sync process:
// /health for liveness and /api/status for the outcome of the last run.
// There is deliberately no interactive surface.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	appLog "mocal/internal/log"
)

// Status is the JSON shape of /api/status.
type Status struct {
	LastRun time.Time `json:"last_run"`
	Weeks   int       `json:"weeks"`
	Created int       `json:"created"`
	Updated int       `json:"updated"`
	Skipped int       `json:"skipped"`
	Error   string    `json:"error,omitempty"`
}

// Server serves the status endpoints and holds the last run's outcome.
type Server struct {
	mux *http.ServeMux

	mu     sync.RWMutex
	status *Status
}

func NewServer() *Server {
	s := &Server{mux: http.NewServeMux()}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	return s
}

// SetStatus records the outcome of the most recent sync run.
func (s *Server) SetStatus(st Status) {
	s.mu.Lock()
	s.status = &st
	s.mu.Unlock()
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on listen until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, listen string) error {
	srv := &http.Server{Addr: listen, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting status server", "listen", "http://"+listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()

	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "no run completed yet")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
