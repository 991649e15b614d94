// Package server exposes the overdue run over HTTP alongside health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	commonerrors "overdue-watchdog/internal/common/errors"
	"overdue-watchdog/internal/common/logger"
	"overdue-watchdog/internal/models"
	"overdue-watchdog/internal/watchdog/report"
	"overdue-watchdog/internal/watchdog/runner"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Runner interface {
	Run(ctx context.Context, now time.Time) (*models.RunResult, error)
}

// Check is a readiness probe for one dependency.
type Check func(ctx context.Context) error

type Option func(*Server)

func WithReadinessCheck(name string, check Check) Option {
	return func(s *Server) { s.checks[name] = check }
}

type Server struct {
	runner Runner
	logger logger.Logger
	checks map[string]Check
	clock  func() time.Time
	router *mux.Router
}

func New(r Runner, log logger.Logger, opts ...Option) *Server {
	s := &Server{
		runner: r,
		logger: log.WithFields(map[string]interface{}{"component": "http"}),
		checks: map[string]Check{},
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	router := mux.NewRouter()
	router.HandleFunc("/check-overdue", s.handleCheckOverdue).Methods(http.MethodPost, http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler())
	s.router = router

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]interface{}{"address": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	}
}

// handleCheckOverdue runs one pass. An optional ?now= (RFC3339) overrides the clock.
func (s *Server) handleCheckOverdue(w http.ResponseWriter, req *http.Request) {
	now := s.clock()
	if raw := req.URL.Query().Get("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			runErr := commonerrors.NewInvalidTriggerInputError("now: " + err.Error())
			writeJSON(w, http.StatusBadRequest, report.Failure(nil, runErr))
			return
		}
		now = parsed
	}

	ctx := runner.WithTrigger(context.WithoutCancel(req.Context()), "http")
	result, err := s.runner.Run(ctx, now)
	if err != nil {
		s.logger.Error("check-overdue request failed", map[string]interface{}{"error": err})
		writeJSON(w, http.StatusInternalServerError, report.Failure(result, err))
		return
	}
	writeJSON(w, http.StatusOK, report.Build(result, nil))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	writeJSON(w, status, map[string]interface{}{
		"ready":  status == http.StatusOK,
		"checks": results,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
