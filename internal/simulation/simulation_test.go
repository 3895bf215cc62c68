package simulation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shem-project/shem/internal/models"
	"github.com/shem-project/shem/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	latest    string
	appended  []models.Reading
	failFor   map[string]bool
	latestErr error
}

func (s *fakeStore) LatestPeriod(ctx context.Context) (string, bool, error) {
	if s.latestErr != nil {
		return "", false, s.latestErr
	}
	return s.latest, s.latest != "", nil
}

func (s *fakeStore) Append(ctx context.Context, r *models.Reading) error {
	if s.failFor[r.Category] {
		return errors.New("connection reset")
	}
	s.appended = append(s.appended, *r)
	return nil
}

type fakeEvents struct {
	events []*models.Event
}

func (f *fakeEvents) Create(ctx context.Context, e *models.Event) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEvents) types() []models.EventType {
	out := make([]models.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakePublisher struct {
	batches [][]models.Reading
}

func (p *fakePublisher) Publish(ctx context.Context, readings []models.Reading) error {
	p.batches = append(p.batches, readings)
	return nil
}

// fixedSource always returns the same draw.
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func fixedClock() time.Time {
	return time.Date(2025, time.January, 31, 15, 4, 5, 0, time.UTC)
}

func relClose(t *testing.T, want, got float64) {
	t.Helper()
	assert.LessOrEqual(t, math.Abs(want-got), 1e-6*math.Abs(want), "want %v got %v", want, got)
}

func TestNormalizeMatchesTargets(t *testing.T) {
	cases := [][]Sample{
		{{"Heating", 310}, {"Lighting", 190}, {"Other", 95.5}},
		{{"HVAC", 0.0001}},
		{{"A", 1}, {"B", 1e6}, {"C", 0}, {"D", 42.42}},
	}
	target := Totals{UsageKWh: 1234.5, Cost: 187.25}

	for _, samples := range cases {
		out := Normalize(samples, target, DefaultCostRate)
		require.Len(t, out, len(samples))

		var usage, cost float64
		for _, o := range out {
			usage += o.UsageKWh
			cost += o.Cost
			assert.GreaterOrEqual(t, o.UsageKWh, 0.0)
			assert.GreaterOrEqual(t, o.Cost, 0.0)
		}
		relClose(t, target.UsageKWh, usage)
		relClose(t, target.Cost, cost)
	}
}

func TestNormalizePreservesProportions(t *testing.T) {
	out := Normalize([]Sample{{"A", 100}, {"B", 300}}, Totals{UsageKWh: 800, Cost: 80}, 0.12)
	require.Len(t, out, 2)
	assert.InDelta(t, 200, out[0].UsageKWh, 1e-9)
	assert.InDelta(t, 600, out[1].UsageKWh, 1e-9)
	assert.InDelta(t, 20, out[0].Cost, 1e-9)
	assert.InDelta(t, 60, out[1].Cost, 1e-9)
}

func TestNormalizeEmptyInputs(t *testing.T) {
	assert.Nil(t, Normalize(nil, Totals{UsageKWh: 1, Cost: 1}, 0.12))
	assert.Nil(t, Normalize([]Sample{{"A", 0}, {"B", 0}}, Totals{UsageKWh: 1, Cost: 1}, 0.12))
	// Zero base rate makes every derived cost zero.
	assert.Nil(t, Normalize([]Sample{{"A", 5}}, Totals{UsageKWh: 1, Cost: 1}, 0))
}

func TestRateStrategy(t *testing.T) {
	s := NewRateStrategy(0.12)
	out, err := s.Cost([]Sample{{"Heating", 250}}, &Totals{UsageKWh: 1, Cost: 1})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 30.0, out[0].Cost, 1e-9)
	assert.Equal(t, 250.0, out[0].UsageKWh)

	_, err = s.Cost(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyNormalization)
}

func TestTargetStrategyOverride(t *testing.T) {
	s := NewTargetStrategy(Totals{UsageKWh: 1000, Cost: 150}, 0.12)

	out, err := s.Cost([]Sample{{"A", 1}, {"B", 3}}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1000, out[0].UsageKWh+out[1].UsageKWh, 1e-9)

	out, err = s.Cost([]Sample{{"A", 1}, {"B", 3}}, &Totals{UsageKWh: 40, Cost: 4})
	require.NoError(t, err)
	assert.InDelta(t, 10, out[0].UsageKWh, 1e-9)
	assert.InDelta(t, 3, out[1].Cost, 1e-9)

	_, err = s.Cost([]Sample{{"A", 0}}, nil)
	assert.ErrorIs(t, err, ErrEmptyNormalization)
}

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy("", 0.12, Totals{})
	require.NoError(t, err)
	assert.Equal(t, StrategyRate, s.Name())

	_, err = NewStrategy(StrategyTarget, 0.12, Totals{})
	assert.Error(t, err)

	s, err = NewStrategy(StrategyTarget, 0.12, Totals{UsageKWh: 900, Cost: 120})
	require.NoError(t, err)
	assert.Equal(t, StrategyTarget, s.Name())

	_, err = NewStrategy("flat", 0.12, Totals{})
	assert.Error(t, err)
}

func TestRunCycleFirstPeriodUsesClock(t *testing.T) {
	store := &fakeStore{}
	c := New(store, sensor.NewSampler(sensor.NewSource(1), sensor.WithMalfunctionRate(0)), NewRateStrategy(0.12),
		WithClock(fixedClock), WithLogger(zerolog.Nop()))

	result, err := c.RunCycle(context.Background(), CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-31", result.Period)
	assert.Len(t, result.Readings, len(models.DefaultCategories()))
	assert.Len(t, store.appended, len(models.DefaultCategories()))
	for _, r := range store.appended {
		assert.Equal(t, "2025-01-31", r.PeriodKey)
		assert.NoError(t, r.Validate())
		assert.InDelta(t, r.UsageKWh*0.12, r.Cost, 1e-9)
	}
}

func TestRunCycleFirstPeriodIsUTCDate(t *testing.T) {
	store := &fakeStore{}
	// 23:00 on Jan 31 at UTC-5 is already Feb 1 in UTC.
	clock := func() time.Time {
		return time.Date(2025, time.January, 31, 23, 0, 0, 0, time.FixedZone("EST", -5*3600))
	}
	c := New(store, sensor.NewSampler(sensor.NewSource(1), sensor.WithMalfunctionRate(0)), NewRateStrategy(0.12),
		WithClock(clock), WithLogger(zerolog.Nop()))

	result, err := c.RunCycle(context.Background(), CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", result.Period)
}

func TestRunCycleAdvancesFromLatest(t *testing.T) {
	store := &fakeStore{latest: "2025-01-31"}
	c := New(store, sensor.NewSampler(sensor.NewSource(1)), NewRateStrategy(0.12), WithLogger(zerolog.Nop()))

	result, err := c.RunCycle(context.Background(), CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", result.Period)
}

func TestRunCycleSkipsMalfunctions(t *testing.T) {
	store := &fakeStore{latest: "2025-06-15"}
	ev := &fakeEvents{}
	// Every draw is below the malfunction rate.
	c := New(store, sensor.NewSampler(fixedSource(0.01)), NewRateStrategy(0.12),
		WithEvents(ev), WithLogger(zerolog.Nop()))

	result, err := c.RunCycle(context.Background(), CycleOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Readings)
	assert.Len(t, result.Skipped, len(models.DefaultCategories()))
	assert.Empty(t, store.appended)
	assert.Contains(t, ev.types(), models.EventTypeSensorMalfunction)
	assert.Contains(t, ev.types(), models.EventTypeCycleEmpty)
	assert.NotContains(t, ev.types(), models.EventTypeCycleCompleted)
}

func TestRunCycleTargetModeMatchesTotals(t *testing.T) {
	store := &fakeStore{latest: "2025-03-10"}
	pub := &fakePublisher{}
	totals := Totals{UsageKWh: 1500, Cost: 210}
	c := New(store, sensor.NewSampler(sensor.NewSource(5)), NewTargetStrategy(totals, 0.12),
		WithPublisher(pub), WithSeasonal(true), WithScenarioMode(true), WithLogger(zerolog.Nop()))

	result, err := c.RunCycle(context.Background(), CycleOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Readings)
	relClose(t, totals.UsageKWh, result.TotalUsage())
	relClose(t, totals.Cost, result.TotalCost())
	assert.Equal(t, models.SeasonSpring, result.Season)
	assert.NotEmpty(t, result.Scenario)
	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0], len(result.Readings))
}

func TestRunCyclePersistFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{latest: "2025-03-10", failFor: map[string]bool{models.CategoryHVAC: true}}
	ev := &fakeEvents{}
	c := New(store, sensor.NewSampler(sensor.NewSource(5), sensor.WithMalfunctionRate(0)), NewRateStrategy(0.12),
		WithEvents(ev), WithLogger(zerolog.Nop()))

	result, err := c.RunCycle(context.Background(), CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PersistFailures)
	assert.Len(t, result.Readings, len(models.DefaultCategories()))
	assert.Len(t, store.appended, len(models.DefaultCategories())-1)
	assert.Contains(t, ev.types(), models.EventTypePersistFailed)
	assert.Contains(t, ev.types(), models.EventTypeCycleCompleted)
}

func TestRunCyclePinnedScenario(t *testing.T) {
	store := &fakeStore{}
	c := New(store, sensor.NewSampler(sensor.NewSource(9)), NewRateStrategy(0.12),
		WithPinnedScenario(models.ScenarioLow), WithClock(fixedClock), WithLogger(zerolog.Nop()))

	result, err := c.RunCycle(context.Background(), CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.ScenarioLow, result.Scenario)

	result, err = c.RunCycle(context.Background(), CycleOptions{Scenario: models.ScenarioAlarming})
	require.NoError(t, err)
	assert.Equal(t, models.ScenarioAlarming, result.Scenario)
}

func TestRunCycleLatestPeriodError(t *testing.T) {
	store := &fakeStore{latestErr: errors.New("db down")}
	c := New(store, sensor.NewSampler(sensor.NewSource(1)), NewRateStrategy(0.12), WithLogger(zerolog.Nop()))

	_, err := c.RunCycle(context.Background(), CycleOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve latest period")
}

func TestRunCycleCustomCategories(t *testing.T) {
	store := &fakeStore{}
	cats := []models.CategoryBaseline{{Name: "Pool Pump", BaseUsageKWh: 80}}
	c := New(store, sensor.NewSampler(sensor.NewSource(1), sensor.WithMalfunctionRate(0)), NewRateStrategy(0.12),
		WithCategories(cats), WithClock(fixedClock), WithLogger(zerolog.Nop()))

	result, err := c.RunCycle(context.Background(), CycleOptions{})
	require.NoError(t, err)
	require.Len(t, result.Readings, 1)
	assert.Equal(t, "Pool Pump", result.Readings[0].Category)
}
