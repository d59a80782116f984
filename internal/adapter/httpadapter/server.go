package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/couchcryptid/snow-phenology/internal/domain"
)

// ResultSource exposes the most recent completed run.
type ResultSource interface {
	LastResult() (domain.Result, bool)
}

// Server exposes health, readiness, metrics, and run summary HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /v1/result routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, results ResultSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/result", s.handleResult(results))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// RunSummary is the /v1/result body.
type RunSummary struct {
	RunID           string                  `json:"run_id"`
	StartYear       int                     `json:"start_year"`
	EndYear         int                     `json:"end_year"`
	Grid            domain.Grid             `json:"grid"`
	Years           []int                   `json:"years"`
	Diagnostics     []domain.YearDiagnostic `json:"diagnostics"`
	ValidTrendCells int                     `json:"valid_trend_cells"`
	DegenerateCells int                     `json:"degenerate_cells"`
	DroppedYears    int                     `json:"dropped_years"`
	ProcessedAt     time.Time               `json:"processed_at"`
}

func summarize(r domain.Result) RunSummary {
	valid := 0
	if slope, ok := r.Derived.Trend.Select(domain.BandSlope); ok {
		valid = slope.ValidCount()
	}
	return RunSummary{
		RunID:           r.RunID,
		StartYear:       r.StartYear,
		EndYear:         r.EndYear,
		Grid:            r.Grid,
		Years:           r.Years,
		Diagnostics:     r.Diagnostics,
		ValidTrendCells: valid,
		DegenerateCells: r.Derived.Degenerate,
		DroppedYears:    r.Derived.DroppedYears,
		ProcessedAt:     r.ProcessedAt,
	}
}

// handleResult answers JSON by default and MessagePack when format=msgpack.
func (s *Server) handleResult(results ResultSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, ok := results.LastResult()
		if !ok {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no completed run"})
			return
		}
		summary := summarize(result)

		if r.URL.Query().Get("format") != "msgpack" {
			sharedobs.WriteJSON(w, http.StatusOK, summary)
			return
		}
		w.Header().Set("Content-Type", "application/x-msgpack")
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(summary); err != nil {
			s.logger.Warn("encode run summary failed", "error", err)
		}
	}
}
