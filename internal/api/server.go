// Package api exposes the monitor over HTTP.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shem-project/shem/internal/breakdown"
	"github.com/shem-project/shem/internal/logging"
	"github.com/shem-project/shem/internal/metrics"
	"github.com/shem-project/shem/internal/models"
	"github.com/shem-project/shem/internal/monitor"
	"github.com/shem-project/shem/internal/simulation"
)

// Backend is the part of monitor.Service the API serves.
type Backend interface {
	Simulate(ctx context.Context, opts simulation.CycleOptions) (*simulation.Result, error)
	Readings(ctx context.Context, key string) (*monitor.ReadingsResult, error)
	History(ctx context.Context) ([]models.AggregatedPeriod, error)
	Predict(ctx context.Context, target string) (*monitor.Prediction, error)
	Breakdown(ctx context.Context, key string) (*breakdown.Report, error)
	Suggestions(usage float64) []string
	Clear(ctx context.Context) (int64, error)
}

var _ Backend = (*monitor.Service)(nil)

// Server builds the HTTP handler tree.
type Server struct {
	backend Backend
	metrics *metrics.Metrics
	limiter *RateLimiter
	origins []string
	logger  zerolog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetrics mounts /metrics for m.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRateLimiter applies rl to every route.
func WithRateLimiter(rl *RateLimiter) ServerOption {
	return func(s *Server) {
		s.limiter = rl
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server over backend.
func NewServer(backend Backend, opts ...ServerOption) *Server {
	s := &Server{
		backend: backend,
		origins: []string{"*"},
		logger:  logging.Component("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the bare route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/simulate", s.simulate).Methods(http.MethodPost)
	r.HandleFunc("/readings", s.readings).Methods(http.MethodGet)
	r.HandleFunc("/history", s.history).Methods(http.MethodGet)
	r.HandleFunc("/predict", s.predict).Methods(http.MethodGet)
	r.HandleFunc("/suggestions", s.suggestions).Methods(http.MethodGet)
	r.HandleFunc("/breakdown", s.breakdown).Methods(http.MethodGet)
	r.HandleFunc("/clear_readings", s.clearReadings).Methods(http.MethodDelete)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}
	return r
}

// Handler returns the router wrapped with recovery, request logging and CORS.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)(h)
	h = handlers.CustomLoggingHandler(io.Discard, h, s.logRequest)
	h = handlers.CORS(
		handlers.AllowedOrigins(s.origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	return h
}

func (s *Server) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	event := s.logger.Debug()
	if p.StatusCode >= http.StatusInternalServerError {
		event = s.logger.Warn()
	}
	event.
		Str("method", p.Request.Method).
		Str("path", p.URL.Path).
		Int("status", p.StatusCode).
		Int("size", p.Size).
		Dur("duration", time.Since(p.TimeStamp)).
		Msg("request")
}

// recoveryLogger routes recovered panics to zerolog.
type recoveryLogger struct {
	logger zerolog.Logger
}

func (l recoveryLogger) Println(args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprint(args...))
}
