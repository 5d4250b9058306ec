// Package api serves the latest anomaly report to the reporting
// collaborator. It is strictly read-only: nothing here can start a run
// or mutate pipeline state.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ecoscale/ports"
)

// Server exposes the report API
type Server struct {
	router *chi.Mux
	reader ports.ReportReaderPort
}

// NewServer creates the report server over a report reader
func NewServer(reader ports.ReportReaderPort) *Server {
	s := &Server{
		router: chi.NewRouter(),
		reader: reader,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/report", s.handleReport)
	s.router.Get("/api/report/summary", s.handleSummary)
	s.router.Get("/report", s.handleReportHTML)

	return s
}

// Start blocks serving HTTP on the given port
func (s *Server) Start(port string) error {
	addr := ":" + port
	log.Printf("[API] report server listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.reader.LatestReport(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.buildSummary(r)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	summary, err := s.buildSummary(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, renderSummaryHTML(summary))
}

func (s *Server) buildSummary(r *http.Request) (*ReportSummary, error) {
	report, err := s.reader.LatestReport(r.Context())
	if err != nil {
		return nil, err
	}
	manifest, err := s.reader.LatestManifest(r.Context())
	if err != nil {
		return nil, err
	}
	return NewReportSummary(report, manifest), nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}
