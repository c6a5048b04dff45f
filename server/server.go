// Package server publishes the latest forecast over HTTP and refreshes it on
// a cron schedule.
package server

import (
	"call-forecast/formatter"
	"call-forecast/metrics"
	"call-forecast/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner produces a forecast for the given instant. *engine.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, now time.Time) (*models.Forecast, error)
}

// Config holds the server settings.
type Config struct {
	ListenAddr      string
	RefreshSchedule string
	Location        *time.Location
}

// Server holds the most recent successful forecast. Refreshes replace it
// wholesale, so readers never see a partial result.
type Server struct {
	runner Runner
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu          sync.RWMutex
	latest      *models.Forecast
	lastRefresh time.Time
	lastError   error
}

// New builds a Server. A nil logger disables logging.
func New(runner Runner, cfg Config, logger *zap.Logger) *Server {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		runner: runner,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Refresh runs the engine once. On failure the previous forecast is kept.
// A run that started before the last recorded refresh has been superseded
// and its result is discarded.
func (s *Server) Refresh(ctx context.Context) error {
	now := s.now()
	forecast, err := s.runner.Run(ctx, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Before(s.lastRefresh) {
		s.logger.Debug("discarding superseded forecast refresh",
			zap.Time("started", now),
			zap.Time("last_refresh", s.lastRefresh))
		return err
	}
	s.lastRefresh = now
	s.lastError = err
	if err != nil {
		s.logger.Error("forecast refresh failed", zap.Error(err))
		return err
	}
	s.latest = forecast
	return nil
}

// Latest returns the most recent successful forecast, or nil.
func (s *Server) Latest() *models.Forecast {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/forecast", s.handleForecast).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/buckets", s.handleBuckets).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return router
}

// Start refreshes once, schedules further refreshes and serves HTTP until ctx
// is done. A failed initial refresh is logged and served as 503 until a later
// refresh succeeds.
func (s *Server) Start(ctx context.Context) error {
	// Refresh logs its own failures.
	s.Refresh(ctx)

	scheduler := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := scheduler.AddFunc(s.cfg.RefreshSchedule, func() {
		s.Refresh(ctx)
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.cfg.RefreshSchedule, err)
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	httpServer := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening",
			zap.String("addr", s.cfg.ListenAddr),
			zap.String("refresh_schedule", s.cfg.RefreshSchedule))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	forecast := s.Latest()
	if forecast == nil {
		writeError(w, http.StatusServiceUnavailable, "forecast not available yet")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, formatter.FormatJSON(forecast))
}

func (s *Server) handleBuckets(w http.ResponseWriter, r *http.Request) {
	forecast := s.Latest()
	if forecast == nil {
		writeError(w, http.StatusServiceUnavailable, "forecast not available yet")
		return
	}
	writeJSON(w, http.StatusOK, formatter.PrepareBuckets(forecast.Buckets))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := map[string]any{
		"status":       "ok",
		"has_forecast": s.latest != nil,
	}
	if !s.lastRefresh.IsZero() {
		resp["last_refresh"] = s.lastRefresh.Format(time.RFC3339)
	}
	if s.lastError != nil {
		resp["status"] = "degraded"
		resp["last_error"] = s.lastError.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
