package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/leoxtc/jsm-tui/pkg/models"
)

// SnapshotSource is the read-only view of the alert store the status server
// needs.
type SnapshotSource interface {
	CurrentSnapshot() models.Snapshot
}

// Server exposes the current snapshot over a local read-only HTTP API so
// scripts can inspect what the dashboard is showing. It never mutates
// anything.
type Server struct {
	source    SnapshotSource
	startTime time.Time
	httpSrv   *http.Server
}

// NewServer creates a status server listening on the given port
func NewServer(source SnapshotSource, port string) *Server {
	s := &Server{
		source:    source,
		startTime: time.Now(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/alerts", s.handleAlerts).Methods(http.MethodGet)

	s.httpSrv = &http.Server{
		Addr:         "127.0.0.1:" + port,
		Handler:      cors.Default().Handler(router),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Start runs the server until Shutdown is called
func (s *Server) Start() error {
	logrus.Infof("Starting status API on %s", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the HTTP handler, exposed for tests
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	snapshot := s.source.CurrentSnapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts":     snapshot.Alerts,
		"count":      len(snapshot.Alerts),
		"open_count": snapshot.OpenCount(),
		"taken_at":   snapshot.TakenAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("Error encoding status API response: %v", err)
	}
}
