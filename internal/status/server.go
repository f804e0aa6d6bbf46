package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/resilience"
)

// Snapshot is the processing-status view exposed over HTTP and by the
// status subcommand.
type Snapshot struct {
	TotalCompanies   int                     `json:"total_companies"`
	Processed        int                     `json:"processed"`
	Remaining        int                     `json:"remaining"`
	PercentComplete  float64                 `json:"percent_complete"`
	FailedQueueDepth int                     `json:"failed_queue_depth"`
	Breakers         map[string]string       `json:"breakers,omitempty"`
	Errors           resilience.ErrorSummary `json:"errors"`
	LatestSummary    *domain.BatchSummary    `json:"latest_summary,omitempty"`
}

// Provider builds the current snapshot.
type Provider interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Server exposes batch status over HTTP.
type Server struct {
	provider Provider
	server   *http.Server
}

// NewServer creates a new status server.
func NewServer(provider Provider, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		provider: provider,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.provider.Snapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}
