package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shem-project/shem/internal/events"
	"github.com/shem-project/shem/internal/logging"
	"github.com/shem-project/shem/internal/metrics"
	"github.com/shem-project/shem/internal/models"
	"github.com/shem-project/shem/internal/period"
	"github.com/shem-project/shem/internal/sensor"
)

// Store is the part of the reading log a cycle needs.
type Store interface {
	LatestPeriod(ctx context.Context) (string, bool, error)
	Append(ctx context.Context, reading *models.Reading) error
}

// Publisher fans a cycle's readings out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, readings []models.Reading) error
}

// Controller orchestrates simulation cycles. Cycles are serialized so each
// one sees the period appended by the previous one.
type Controller struct {
	mu sync.Mutex

	store      Store
	sampler    *sensor.Sampler
	strategy   CostStrategy
	categories []models.CategoryBaseline

	seasonal     bool
	scenarioMode bool
	scenario     models.Scenario

	now       func() time.Time
	publisher Publisher
	events    events.Repository
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithCategories replaces the default household category set.
func WithCategories(categories []models.CategoryBaseline) Option {
	return func(c *Controller) {
		if len(categories) > 0 {
			c.categories = categories
		}
	}
}

// WithSeasonal enables seasonal modulation derived from the cycle's month.
func WithSeasonal(enabled bool) Option {
	return func(c *Controller) {
		c.seasonal = enabled
	}
}

// WithScenarioMode enables a scenario draw for every cycle.
func WithScenarioMode(enabled bool) Option {
	return func(c *Controller) {
		c.scenarioMode = enabled
	}
}

// WithPinnedScenario fixes the scenario instead of drawing one.
func WithPinnedScenario(s models.Scenario) Option {
	return func(c *Controller) {
		c.scenario = s
	}
}

// WithClock overrides the wall clock used for the first period.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithPublisher sets a downstream publisher.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

// WithEvents sets the event log.
func WithEvents(repo events.Repository) Option {
	return func(c *Controller) {
		c.events = repo
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a Controller.
func New(store Store, sampler *sensor.Sampler, strategy CostStrategy, opts ...Option) *Controller {
	c := &Controller{
		store:      store,
		sampler:    sampler,
		strategy:   strategy,
		categories: models.DefaultCategories(),
		now:        time.Now,
		logger:     logging.Component("simulation"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Strategy returns the configured cost strategy name.
func (c *Controller) Strategy() string {
	return c.strategy.Name()
}

// CycleOptions are per-cycle overrides.
type CycleOptions struct {
	// Scenario pins the demand scenario for this cycle.
	Scenario models.Scenario

	// Totals replaces the household totals of a target strategy.
	Totals *Totals
}

// Result is the outcome of one cycle.
type Result struct {
	Period          string           `json:"simulation_date"`
	Season          models.Season    `json:"season,omitempty"`
	Scenario        models.Scenario  `json:"scenario,omitempty"`
	Strategy        string           `json:"strategy"`
	Readings        []models.Reading `json:"readings"`
	Skipped         []string         `json:"skipped,omitempty"`
	PersistFailures int              `json:"persist_failures,omitempty"`
}

// TotalUsage sums the usage of the cycle's readings.
func (r *Result) TotalUsage() float64 {
	var total float64
	for _, reading := range r.Readings {
		total += reading.UsageKWh
	}
	return total
}

// TotalCost sums the cost of the cycle's readings.
func (r *Result) TotalCost() float64 {
	var total float64
	for _, reading := range r.Readings {
		total += reading.Cost
	}
	return total
}

// RunCycle simulates the period after the latest stored one.
//
// Malfunctioning sensors are skipped. When nothing can be costed the result
// carries no readings and nothing is persisted. Append failures are logged
// and counted; the affected readings are still returned.
func (c *Controller) RunCycle(ctx context.Context, opts CycleOptions) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := c.nextPeriod(ctx)
	if err != nil {
		return nil, err
	}
	periodTime, err := period.Parse(key)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Period:   key,
		Strategy: c.strategy.Name(),
		Readings: []models.Reading{},
	}

	mod := sensor.Modulation{}
	if c.seasonal {
		mod.Season = models.SeasonForMonth(periodTime.Month())
	}
	mod.Scenario = c.resolveScenario(opts.Scenario)
	result.Season = mod.Season
	result.Scenario = mod.Scenario

	samples := make([]Sample, 0, len(c.categories))
	for _, cat := range c.categories {
		usage, err := c.sampler.Sample(cat.Name, cat.BaseUsageKWh, mod)
		if err != nil {
			if errors.Is(err, sensor.ErrSensorMalfunction) {
				result.Skipped = append(result.Skipped, cat.Name)
				c.metrics.SensorMalfunction(cat.Name)
				c.logger.Warn().Str("category", cat.Name).Str("period", key).Msg("sensor malfunction, skipping category")
				c.logEvent(ctx, func(repo events.Repository) error {
					return events.LogSensorMalfunction(ctx, repo, cat.Name, key)
				})
				continue
			}
			return nil, fmt.Errorf("failed to sample %s: %w", cat.Name, err)
		}
		samples = append(samples, Sample{Category: cat.Name, UsageKWh: usage})
	}

	costed, err := c.strategy.Cost(samples, opts.Totals)
	if err != nil {
		if !errors.Is(err, ErrEmptyNormalization) {
			return nil, fmt.Errorf("failed to cost samples: %w", err)
		}
		c.logger.Warn().Str("period", key).Strs("skipped", result.Skipped).Msg("cycle produced no readings")
		c.logEvent(ctx, func(repo events.Repository) error {
			return events.LogCycleEmpty(ctx, repo, key, models.CycleEmptyPayload{
				Strategy: result.Strategy,
				Skipped:  result.Skipped,
				Reason:   err.Error(),
			})
		})
		return result, nil
	}

	persisted := 0
	for _, cs := range costed {
		reading := models.Reading{
			Category:   cs.Category,
			UsageKWh:   cs.UsageKWh,
			Cost:       cs.Cost,
			PeriodKey:  key,
			RecordedAt: c.now().UTC(),
		}
		if err := c.store.Append(ctx, &reading); err != nil {
			result.PersistFailures++
			c.metrics.PersistFailed()
			c.logger.Error().Err(err).Str("category", cs.Category).Str("period", key).Msg("failed to persist reading")
			c.logEvent(ctx, func(repo events.Repository) error {
				return events.LogPersistFailed(ctx, repo, cs.Category, key, err)
			})
		} else {
			persisted++
		}
		result.Readings = append(result.Readings, reading)
	}
	c.metrics.ReadingsPersisted(persisted)
	c.metrics.CycleCompleted(result.Strategy)

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, result.Readings); err != nil {
			c.logger.Warn().Err(err).Str("period", key).Msg("failed to publish readings")
		}
	}

	c.logEvent(ctx, func(repo events.Repository) error {
		return events.LogCycleCompleted(ctx, repo, key, models.CycleCompletedPayload{
			Strategy:        result.Strategy,
			Season:          result.Season,
			Scenario:        result.Scenario,
			Readings:        len(result.Readings),
			Skipped:         result.Skipped,
			PersistFailures: result.PersistFailures,
			TotalUsage:      result.TotalUsage(),
			TotalCost:       result.TotalCost(),
		})
	})

	c.logger.Info().
		Str("period", key).
		Str("strategy", result.Strategy).
		Int("readings", len(result.Readings)).
		Int("skipped", len(result.Skipped)).
		Float64("total_usage", result.TotalUsage()).
		Msg("simulation cycle completed")

	return result, nil
}

func (c *Controller) nextPeriod(ctx context.Context) (string, error) {
	latest, ok, err := c.store.LatestPeriod(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve latest period: %w", err)
	}
	if !ok {
		return period.Format(c.now().UTC()), nil
	}
	return period.Next(latest)
}

func (c *Controller) resolveScenario(override models.Scenario) models.Scenario {
	if override != "" {
		return override
	}
	if c.scenario != "" {
		return c.scenario
	}
	if c.scenarioMode {
		return c.sampler.DrawScenario()
	}
	return ""
}

// logEvent writes an event best-effort.
func (c *Controller) logEvent(ctx context.Context, write func(events.Repository) error) {
	if c.events == nil {
		return
	}
	if err := write(c.events); err != nil {
		c.logger.Warn().Err(err).Msg("failed to write event")
	}
}
