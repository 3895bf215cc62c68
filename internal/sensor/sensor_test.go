package sensor

import (
	"errors"
	"math"
	"testing"

	"github.com/shem-project/shem/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqSource replays fixed values in order, wrapping around.
type seqSource struct {
	values []float64
	i      int
}

func (s *seqSource) Float64() float64 {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

func TestSampleMalfunctionRate(t *testing.T) {
	s := NewSampler(NewSource(42))

	const trials = 10000
	failures := 0
	for i := 0; i < trials; i++ {
		usage, err := s.Sample(models.CategoryLighting, 200, Modulation{})
		if errors.Is(err, ErrSensorMalfunction) {
			failures++
			continue
		}
		require.NoError(t, err)
		assert.GreaterOrEqual(t, usage, 0.0)
	}

	rate := float64(failures) / trials
	// Three standard deviations of a binomial at p=0.05.
	assert.InDelta(t, DefaultMalfunctionRate, rate, 3*math.Sqrt(0.05*0.95/trials))
}

func TestSampleBaseFluctuation(t *testing.T) {
	s := NewSampler(NewSource(7), WithMalfunctionRate(0))
	for i := 0; i < 1000; i++ {
		usage, err := s.Sample(models.CategoryCooking, 150, Modulation{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, usage, 150*0.9)
		assert.Less(t, usage, 150*1.1)
	}
}

func TestSampleWinterHeatingBound(t *testing.T) {
	s := NewSampler(NewSource(99), WithMalfunctionRate(0))
	mod := Modulation{Season: models.SeasonWinter, Scenario: models.ScenarioModerate}

	const base = 300.0
	lo := base * 0.9 * 0.9 * 1.1
	hi := base * 1.1 * 1.0 * 1.3
	for i := 0; i < 5000; i++ {
		usage, err := s.Sample(models.CategoryHeating, base, mod)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, usage, lo)
		assert.LessOrEqual(t, usage, hi)
	}
}

func TestSampleWinterNonBoostedCategory(t *testing.T) {
	// fluctuation 0.5 -> x1.0, scenario unset, winter on a non-boosted category -> x1.0
	s := NewSampler(&seqSource{values: []float64{0.9, 0.5}})
	usage, err := s.Sample(models.CategoryRefrigeration, 100, Modulation{Season: models.SeasonWinter})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, usage, 1e-9)
}

func TestSampleSpikeOutsideWinter(t *testing.T) {
	// malfunction check, fluctuation midpoint, spike hit, spike at lower bound.
	s := NewSampler(&seqSource{values: []float64{0.9, 0.5, 0.05, 0.0}})
	usage, err := s.Sample(models.CategoryOther, 100, Modulation{Season: models.SeasonSummer})
	require.NoError(t, err)
	assert.InDelta(t, 120.0, usage, 1e-9)
}

func TestSampleMalfunctionOnLowDraw(t *testing.T) {
	s := NewSampler(&seqSource{values: []float64{0.01}})
	_, err := s.Sample(models.CategoryHeating, 300, Modulation{})
	assert.ErrorIs(t, err, ErrSensorMalfunction)
}

func TestSampleNeverNegative(t *testing.T) {
	s := NewSampler(NewSource(3), WithMalfunctionRate(0), WithFluctuation(2))
	for i := 0; i < 1000; i++ {
		usage, err := s.Sample(models.CategoryOther, 100, Modulation{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, usage, 0.0)
	}
}

func TestSampleDeterministicForSeed(t *testing.T) {
	a := NewSampler(NewSource(2024))
	b := NewSampler(NewSource(2024))
	mod := Modulation{Season: models.SeasonFall, Scenario: models.ScenarioHigh}
	for i := 0; i < 50; i++ {
		ua, ea := a.Sample(models.CategoryHVAC, 350, mod)
		ub, eb := b.Sample(models.CategoryHVAC, 350, mod)
		assert.Equal(t, ea, eb)
		assert.Equal(t, ua, ub)
	}
}

func TestDrawScenarioDistribution(t *testing.T) {
	s := NewSampler(NewSource(11))
	counts := map[models.Scenario]int{}
	const trials = 20000
	for i := 0; i < trials; i++ {
		counts[s.DrawScenario()]++
	}

	var total float64
	for _, w := range ScenarioWeights {
		total += w
	}
	for sc, w := range ScenarioWeights {
		got := float64(counts[sc]) / trials
		assert.InDelta(t, w/total, got, 0.02, string(sc))
	}
}

func TestDrawScenarioBoundaries(t *testing.T) {
	s := NewSampler(&seqSource{values: []float64{0}})
	assert.Equal(t, models.ScenarioLow, s.DrawScenario())

	s = NewSampler(&seqSource{values: []float64{0.999999}})
	assert.Equal(t, models.ScenarioAlarming, s.DrawScenario())
}
