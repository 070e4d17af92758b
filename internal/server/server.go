package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/shopsignal/shopsignal/internal/models"
	"github.com/shopsignal/shopsignal/internal/store"
	"github.com/shopsignal/shopsignal/internal/tracking"
	"github.com/shopsignal/shopsignal/pkg/config"
)

// EventReader is the slice of the event store the API needs for
// per-product reads.
type EventReader interface {
	FetchProductEvents(ctx context.Context, productID string, since time.Time, limit int) ([]models.InterestEvent, error)
	FetchProductStats(ctx context.Context, productID string) (map[models.EventType]models.EventStats, error)
}

// RecalcRunner triggers a full score recalculation.
type RecalcRunner interface {
	Run(ctx context.Context) (*models.RecalcReport, error)
}

// Server exposes the tracking, scoring, and viability API.
type Server struct {
	config  *config.Config
	tracker *tracking.Tracker
	store   store.Store
	events  EventReader
	runner  RecalcRunner
	limiter *rate.Limiter
	mux     *http.ServeMux
}

// New wires the API server over its collaborators. The ingest rate
// limit bounds write pressure on the event store; reads are unmetered.
func New(cfg *config.Config, tracker *tracking.Tracker, st store.Store, events EventReader, runner RecalcRunner) *Server {
	limit := cfg.IngestRateLimit
	if limit <= 0 {
		limit = 50
	}

	s := &Server{
		config:  cfg,
		tracker: tracker,
		store:   st,
		events:  events,
		runner:  runner,
		limiter: rate.NewLimiter(rate.Limit(limit), limit*2),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/v1/sessions", s.handleSession)
	s.mux.HandleFunc("POST /api/v1/events", s.handleIngest)

	s.mux.HandleFunc("GET /api/v1/scores", s.handleListScores)
	s.mux.HandleFunc("GET /api/v1/scores/{product}", s.handleGetScore)
	s.mux.HandleFunc("GET /api/v1/events/{product}", s.handleProductEvents)
	s.mux.HandleFunc("GET /api/v1/stats/{product}", s.handleProductStats)
	s.mux.HandleFunc("GET /api/v1/overview", s.handleOverview)
	s.mux.HandleFunc("GET /api/v1/analytics/{product}", s.handleAnalytics)
	s.mux.HandleFunc("GET /api/v1/viability/{product}", s.handleViability)

	s.mux.HandleFunc("POST /api/v1/recalculate", s.handleRecalculate)
}

// Handler returns the routed handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe runs the server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.ServerPort),
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Debug("api server started", slog.Int("port", s.config.ServerPort))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	}
}
