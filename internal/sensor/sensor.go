// Package sensor produces synthetic per-category energy usage samples.
package sensor

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/shem-project/shem/internal/models"
)

// ErrSensorMalfunction is returned when a sensor fails to produce a sample.
// Callers skip the category for the cycle.
var ErrSensorMalfunction = errors.New("sensor malfunction")

// Defaults for the sampler.
const (
	DefaultMalfunctionRate = 0.05
	DefaultFluctuation     = 0.10
	DefaultSpikeChance     = 0.10
)

// Source is a random number source producing values in [0, 1).
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NewSource returns a deterministic source for the given seed.
// A zero seed uses the current time.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Range is a half-open multiplier interval [Min, Max).
type Range struct {
	Min float64
	Max float64
}

// ScenarioRanges maps each scenario to its usage multiplier interval.
var ScenarioRanges = map[models.Scenario]Range{
	models.ScenarioLow:          {0.70, 0.90},
	models.ScenarioModerate:     {0.90, 1.00},
	models.ScenarioAboveAverage: {1.00, 1.10},
	models.ScenarioHigh:         {1.10, 1.20},
	models.ScenarioVeryHigh:     {1.20, 1.30},
	models.ScenarioAlarming:     {1.30, 1.50},
}

// ScenarioWeights are the relative draw weights for DrawScenario.
var ScenarioWeights = map[models.Scenario]float64{
	models.ScenarioLow:          10,
	models.ScenarioModerate:     20,
	models.ScenarioAboveAverage: 25,
	models.ScenarioHigh:         25,
	models.ScenarioVeryHigh:     15,
	models.ScenarioAlarming:     5,
}

var (
	winterBoost = Range{1.10, 1.30}
	spikeBoost  = Range{1.20, 1.40}
)

// winterBoosted are the categories that always draw more in winter.
var winterBoosted = map[string]bool{
	models.CategoryHeating:  true,
	models.CategoryHVAC:     true,
	models.CategoryLighting: true,
}

// Modulation optionally shapes a sample. Zero values disable the mode.
type Modulation struct {
	Season   models.Season
	Scenario models.Scenario
}

// Sampler draws samples from a single random source. It is not safe for
// concurrent use unless the source is.
type Sampler struct {
	rng             Source
	malfunctionRate float64
	fluctuation     float64
	spikeChance     float64
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithMalfunctionRate sets the per-call failure probability.
func WithMalfunctionRate(rate float64) Option {
	return func(s *Sampler) {
		s.malfunctionRate = rate
	}
}

// WithFluctuation sets the symmetric base fluctuation (0.10 means ±10%).
func WithFluctuation(f float64) Option {
	return func(s *Sampler) {
		s.fluctuation = f
	}
}

// WithSpikeChance sets the probability of a non-winter spike.
func WithSpikeChance(p float64) Option {
	return func(s *Sampler) {
		s.spikeChance = p
	}
}

// NewSampler creates a sampler drawing from rng.
func NewSampler(rng Source, opts ...Option) *Sampler {
	if rng == nil {
		rng = NewSource(0)
	}
	s := &Sampler{
		rng:             rng,
		malfunctionRate: DefaultMalfunctionRate,
		fluctuation:     DefaultFluctuation,
		spikeChance:     DefaultSpikeChance,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample returns one usage value in kWh for category around base.
func (s *Sampler) Sample(category string, base float64, mod Modulation) (float64, error) {
	if s.rng.Float64() < s.malfunctionRate {
		return 0, ErrSensorMalfunction
	}

	usage := base * (1 + s.uniform(-s.fluctuation, s.fluctuation))

	if mod.Scenario != "" {
		if r, ok := ScenarioRanges[mod.Scenario]; ok {
			usage *= s.uniform(r.Min, r.Max)
		}
	}

	if mod.Season != "" {
		usage *= s.seasonalMultiplier(category, mod.Season)
	}

	return math.Max(usage, 0), nil
}

// seasonalMultiplier boosts heating-type loads in winter and adds a random
// spike in the other seasons.
func (s *Sampler) seasonalMultiplier(category string, season models.Season) float64 {
	if season == models.SeasonWinter {
		if winterBoosted[category] {
			return s.uniform(winterBoost.Min, winterBoost.Max)
		}
		return 1
	}
	if s.rng.Float64() < s.spikeChance {
		return s.uniform(spikeBoost.Min, spikeBoost.Max)
	}
	return 1
}

// DrawScenario picks a scenario by ScenarioWeights.
func (s *Sampler) DrawScenario() models.Scenario {
	var total float64
	for _, sc := range models.Scenarios {
		total += ScenarioWeights[sc]
	}
	target := s.rng.Float64() * total
	for _, sc := range models.Scenarios {
		target -= ScenarioWeights[sc]
		if target < 0 {
			return sc
		}
	}
	return models.Scenarios[len(models.Scenarios)-1]
}

func (s *Sampler) uniform(min, max float64) float64 {
	return min + s.rng.Float64()*(max-min)
}
