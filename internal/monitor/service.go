// Package monitor is the application service behind the HTTP API, the CLI
// and the dashboard. It owns the current trend model and rebuilds it after
// every change to the reading log.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shem-project/shem/internal/breakdown"
	"github.com/shem-project/shem/internal/db"
	"github.com/shem-project/shem/internal/events"
	"github.com/shem-project/shem/internal/forecast"
	"github.com/shem-project/shem/internal/logging"
	"github.com/shem-project/shem/internal/metrics"
	"github.com/shem-project/shem/internal/models"
	"github.com/shem-project/shem/internal/period"
	"github.com/shem-project/shem/internal/simulation"
)

// Service errors.
var (
	ErrNoReadings          = errors.New("no readings available")
	ErrTargetBeforeHistory = errors.New("target month is before earliest recorded month")
	ErrInvalidPeriod       = errors.New("invalid period")
)

// Store is the reading log.
type Store interface {
	simulation.Store
	ForPeriod(ctx context.Context, key string) ([]*models.Reading, error)
	AggregateByPeriod(ctx context.Context) ([]models.AggregatedPeriod, error)
	Clear(ctx context.Context) (int64, error)
}

// EventLog is the event repository.
type EventLog interface {
	events.Repository
	Query(ctx context.Context, q db.EventQuery) (*db.EventPage, error)
}

// Simulator runs one cycle.
type Simulator interface {
	RunCycle(ctx context.Context, opts simulation.CycleOptions) (*simulation.Result, error)
}

// Service coordinates simulation, queries and forecasting.
type Service struct {
	store     Store
	simulator Simulator
	builder   *forecast.Builder
	events    EventLog
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEventLog sets the event log.
func WithEventLog(log EventLog) Option {
	return func(s *Service) {
		s.events = log
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a Service.
func New(store Store, simulator Simulator, opts ...Option) *Service {
	s := &Service{
		store:     store,
		simulator: simulator,
		builder:   forecast.NewBuilder(),
		logger:    logging.Component("monitor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadingsResult is the set of readings for a period query.
type ReadingsResult struct {
	PeriodKey string           `json:"simulation_date"`
	Readings  []models.Reading `json:"readings"`
}

// Prediction is a forecast for a target month.
type Prediction struct {
	TargetMonth       string  `json:"target_month"`
	MonthIndex        int     `json:"month_index"`
	PredictedUsageKWh float64 `json:"predicted_usage_kwh"`
}

// ModelStatus describes the current trend model.
type ModelStatus struct {
	Fitted    bool    `json:"fitted"`
	Periods   int     `json:"periods"`
	Earliest  string  `json:"earliest,omitempty"`
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
}

// Rebuild refits the model from the stored history.
func (s *Service) Rebuild(ctx context.Context) (*forecast.Model, []models.AggregatedPeriod, error) {
	history, err := s.store.AggregateByPeriod(ctx)
	if err != nil {
		return nil, nil, err
	}
	model := s.builder.Rebuild(history)
	s.metrics.SetHistoryPeriods(len(history))
	return model, history, nil
}

// Simulate runs one cycle and rebuilds the model.
func (s *Service) Simulate(ctx context.Context, opts simulation.CycleOptions) (*simulation.Result, error) {
	result, err := s.simulator.RunCycle(ctx, opts)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.Rebuild(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to rebuild model after simulation")
	}
	return result, nil
}

// Readings returns the readings for key, a day or a month. An empty key
// selects the latest stored period.
func (s *Service) Readings(ctx context.Context, key string) (*ReadingsResult, error) {
	key, err := s.resolveKey(ctx, key)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ForPeriod(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoReadings, key)
	}

	result := &ReadingsResult{PeriodKey: key, Readings: make([]models.Reading, 0, len(rows))}
	for _, r := range rows {
		result.Readings = append(result.Readings, *r)
	}
	return result, nil
}

// History returns the aggregated history in ascending period order.
func (s *Service) History(ctx context.Context) ([]models.AggregatedPeriod, error) {
	return s.store.AggregateByPeriod(ctx)
}

// Predict forecasts total usage for the month containing target
// (YYYY-MM-DD or YYYY-MM).
func (s *Service) Predict(ctx context.Context, target string) (*Prediction, error) {
	model, _, err := s.Rebuild(ctx)
	if err != nil {
		return nil, err
	}
	if !model.Fitted() {
		s.metrics.Prediction(metrics.OutcomeInsufficient)
		return nil, forecast.ErrInsufficientHistory
	}

	targetTime, err := parseTarget(target)
	if err != nil {
		s.metrics.Prediction(metrics.OutcomeRejected)
		return nil, err
	}

	earliest, err := period.Parse(model.Earliest())
	if err != nil {
		return nil, fmt.Errorf("failed to parse earliest period: %w", err)
	}
	index := period.MonthIndex(earliest, targetTime)
	if index < 0 {
		s.metrics.Prediction(metrics.OutcomeRejected)
		return nil, ErrTargetBeforeHistory
	}

	predicted, err := model.Predict(index)
	if err != nil {
		s.metrics.Prediction(metrics.OutcomeInsufficient)
		return nil, err
	}
	s.metrics.Prediction(metrics.OutcomeOK)

	return &Prediction{
		TargetMonth:       target,
		MonthIndex:        index,
		PredictedUsageKWh: predicted,
	}, nil
}

// Breakdown summarizes the readings for key. An empty key selects the
// latest stored period.
func (s *Service) Breakdown(ctx context.Context, key string) (*breakdown.Report, error) {
	result, err := s.Readings(ctx, key)
	if err != nil {
		return nil, err
	}

	season, err := seasonFor(result.PeriodKey)
	if err != nil {
		return nil, err
	}

	report := breakdown.Compute(result.Readings, season)
	report.PeriodKey = result.PeriodKey
	return &report, nil
}

// Suggestions returns usage-tier advice. It does not need a fitted model.
func (s *Service) Suggestions(usage float64) []string {
	return forecast.UsageSuggestions(usage)
}

// Clear deletes all readings and resets the model.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	deleted, err := s.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	if s.events != nil {
		if err := events.LogReadingsCleared(ctx, s.events, deleted); err != nil {
			s.logger.Warn().Err(err).Msg("failed to write event")
		}
	}
	if _, _, err := s.Rebuild(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to rebuild model after clear")
	}
	s.logger.Info().Int64("deleted", deleted).Msg("readings cleared")
	return deleted, nil
}

// Model returns the status of the current trend model.
func (s *Service) Model() ModelStatus {
	m := s.builder.Current()
	intercept, slope := m.Coefficients()
	return ModelStatus{
		Fitted:    m.Fitted(),
		Periods:   m.Periods(),
		Earliest:  m.Earliest(),
		Intercept: intercept,
		Slope:     slope,
	}
}

// Events lists logged events.
func (s *Service) Events(ctx context.Context, q db.EventQuery) (*db.EventPage, error) {
	if s.events == nil {
		return &db.EventPage{}, nil
	}
	return s.events.Query(ctx, q)
}

func (s *Service) resolveKey(ctx context.Context, key string) (string, error) {
	if key == "" {
		latest, ok, err := s.store.LatestPeriod(ctx)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrNoReadings
		}
		return latest, nil
	}
	if err := period.ValidateQueryKey(key); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}
	return key, nil
}

func parseTarget(target string) (time.Time, error) {
	if target == "" {
		return time.Time{}, fmt.Errorf("%w: month is required in YYYY-MM-DD format", ErrInvalidPeriod)
	}
	if period.IsMonthKey(target) {
		t, _ := time.Parse(period.MonthLayout, target)
		return t, nil
	}
	t, err := period.Parse(target)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}
	return t, nil
}

func seasonFor(key string) (models.Season, error) {
	t, err := parseTarget(key)
	if err != nil {
		return "", err
	}
	return models.SeasonForMonth(t.Month()), nil
}
