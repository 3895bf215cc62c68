package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shem-project/shem/internal/config"
	"github.com/shem-project/shem/internal/db"
	"github.com/shem-project/shem/internal/forecast"
	"github.com/shem-project/shem/internal/models"
	"github.com/shem-project/shem/internal/sensor"
	"github.com/shem-project/shem/internal/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	service  *Service
	readings *db.ReadingRepository
	events   *db.EventRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	_, err = database.MigrateUp(ctx)
	require.NoError(t, err)

	readings := db.NewReadingRepository(database)
	eventRepo := db.NewEventRepository(database)
	controller := simulation.New(readings,
		sensor.NewSampler(sensor.NewSource(17), sensor.WithMalfunctionRate(0)),
		simulation.NewRateStrategy(0.12),
		simulation.WithEvents(eventRepo),
		simulation.WithClock(func() time.Time { return time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC) }),
		simulation.WithLogger(zerolog.Nop()),
	)
	service := New(readings, controller, WithEventLog(eventRepo), WithLogger(zerolog.Nop()))
	return &harness{service: service, readings: readings, events: eventRepo}
}

func (h *harness) seed(t *testing.T, rows ...models.AggregatedPeriod) {
	t.Helper()
	for _, row := range rows {
		r := &models.Reading{Category: models.CategoryOther, UsageKWh: row.TotalUsage, Cost: row.TotalCost, PeriodKey: row.PeriodKey}
		require.NoError(t, h.readings.Append(context.Background(), r))
	}
}

func TestSimulateAdvancesAndRebuilds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.service.Simulate(ctx, simulation.CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-31", first.Period)
	assert.False(t, h.service.Model().Fitted)

	second, err := h.service.Simulate(ctx, simulation.CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", second.Period)

	status := h.service.Model()
	assert.True(t, status.Fitted)
	assert.Equal(t, 2, status.Periods)
	assert.Equal(t, "2025-01-31", status.Earliest)

	history, err := h.service.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.InDelta(t, first.TotalUsage(), history[0].TotalUsage, 1e-6)
}

func TestSimulateConcurrentCyclesGetDistinctPeriods(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	const cycles = 8
	var wg sync.WaitGroup
	errs := make(chan error, cycles)
	for i := 0; i < cycles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.service.Simulate(ctx, simulation.CycleOptions{}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := h.service.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, cycles)
	for i := 1; i < len(history); i++ {
		assert.Less(t, history[i-1].PeriodKey, history[i].PeriodKey)
	}

	count, err := h.readings.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(cycles*len(models.DefaultCategories())), count)
	assert.Equal(t, cycles, h.service.Model().Periods)
}

func TestReadingsDefaultsToLatest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.service.Readings(ctx, "")
	assert.ErrorIs(t, err, ErrNoReadings)

	h.seed(t,
		models.AggregatedPeriod{PeriodKey: "2025-01-10", TotalUsage: 10},
		models.AggregatedPeriod{PeriodKey: "2025-02-10", TotalUsage: 20},
	)

	latest, err := h.service.Readings(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-10", latest.PeriodKey)
	require.Len(t, latest.Readings, 1)

	month, err := h.service.Readings(ctx, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-01", month.PeriodKey)

	_, err = h.service.Readings(ctx, "2025-03")
	assert.ErrorIs(t, err, ErrNoReadings)

	_, err = h.service.Readings(ctx, "yesterday")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPredict(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.service.Predict(ctx, "2025-04-01")
	assert.ErrorIs(t, err, forecast.ErrInsufficientHistory)

	h.seed(t, models.AggregatedPeriod{PeriodKey: "2025-01-15", TotalUsage: 1000})
	_, err = h.service.Predict(ctx, "2025-04-01")
	assert.ErrorIs(t, err, forecast.ErrInsufficientHistory)

	h.seed(t,
		models.AggregatedPeriod{PeriodKey: "2025-02-15", TotalUsage: 1100},
		models.AggregatedPeriod{PeriodKey: "2025-03-15", TotalUsage: 1200},
	)

	p, err := h.service.Predict(ctx, "2025-04-01")
	require.NoError(t, err)
	assert.Equal(t, 3, p.MonthIndex)
	assert.InDelta(t, 1300, p.PredictedUsageKWh, 1e-6)
	assert.Equal(t, "2025-04-01", p.TargetMonth)

	p, err = h.service.Predict(ctx, "2025-06")
	require.NoError(t, err)
	assert.InDelta(t, 1500, p.PredictedUsageKWh, 1e-6)

	_, err = h.service.Predict(ctx, "2024-12-31")
	assert.ErrorIs(t, err, ErrTargetBeforeHistory)

	_, err = h.service.Predict(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestBreakdown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.service.Breakdown(ctx, "")
	assert.ErrorIs(t, err, ErrNoReadings)

	for _, r := range []models.Reading{
		{Category: models.CategoryHeating, UsageKWh: 400, Cost: 48, PeriodKey: "2025-12-01"},
		{Category: models.CategoryLighting, UsageKWh: 600, Cost: 72, PeriodKey: "2025-12-01"},
	} {
		r := r
		require.NoError(t, h.readings.Append(ctx, &r))
	}

	report, err := h.service.Breakdown(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-01", report.PeriodKey)
	assert.Equal(t, models.SeasonWinter, report.Season)
	assert.InDelta(t, 1000, report.TotalUsage, 1e-9)
	assert.Equal(t, "B", string(report.Rating))
	assert.InDelta(t, 60, report.ByCategory[models.CategoryLighting].UsagePercentage, 1e-9)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.seed(t,
		models.AggregatedPeriod{PeriodKey: "2025-01-15", TotalUsage: 1000},
		models.AggregatedPeriod{PeriodKey: "2025-02-15", TotalUsage: 1100},
	)
	_, _, err := h.service.Rebuild(ctx)
	require.NoError(t, err)
	require.True(t, h.service.Model().Fitted)

	deleted, err := h.service.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.False(t, h.service.Model().Fitted)

	eventType := models.EventTypeReadingsCleared
	page, err := h.service.Events(ctx, db.EventQuery{Type: &eventType})
	require.NoError(t, err)
	assert.Len(t, page.Events, 1)
}

func TestSuggestions(t *testing.T) {
	h := newHarness(t)
	assert.Len(t, h.service.Suggestions(750), 3)
}

type failingSimulator struct{}

func (failingSimulator) RunCycle(context.Context, simulation.CycleOptions) (*simulation.Result, error) {
	return nil, errors.New("store unavailable")
}

func TestSimulateError(t *testing.T) {
	h := newHarness(t)
	s := New(h.readings, failingSimulator{}, WithLogger(zerolog.Nop()))
	_, err := s.Simulate(context.Background(), simulation.CycleOptions{})
	assert.Error(t, err)
}

func TestOpenWithDB(t *testing.T) {
	ctx := context.Background()
	database, err := db.OpenInMemory()
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Simulation.Seed = 42
	rt, err := OpenWithDB(ctx, cfg, database, nil)
	require.NoError(t, err)
	defer rt.Close()

	result, err := rt.Service.Simulate(ctx, simulation.CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, simulation.StrategyRate, result.Strategy)

	count, err := rt.Readings.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(result.Readings)-result.PersistFailures), count)
}
