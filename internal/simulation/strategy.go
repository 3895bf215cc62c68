package simulation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrEmptyNormalization is returned when a cycle has no usable samples.
var ErrEmptyNormalization = errors.New("no samples to normalize")

// Strategy names.
const (
	StrategyRate   = "rate"
	StrategyTarget = "target"
)

// DefaultCostRate is the nominal price per kWh.
const DefaultCostRate = 0.12

// CostStrategy turns a cycle's raw samples into costed readings.
type CostStrategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// Cost prices samples. override, when non-nil, replaces the strategy's
	// configured household totals for this cycle.
	Cost(samples []Sample, override *Totals) ([]CostedSample, error)
}

// RateStrategy prices each sample independently at a fixed rate.
type RateStrategy struct {
	rate decimal.Decimal
}

// NewRateStrategy creates a RateStrategy charging rate per kWh.
func NewRateStrategy(rate float64) *RateStrategy {
	return &RateStrategy{rate: decimal.NewFromFloat(rate)}
}

// Name implements CostStrategy.
func (s *RateStrategy) Name() string { return StrategyRate }

// Cost implements CostStrategy. The override is ignored.
func (s *RateStrategy) Cost(samples []Sample, _ *Totals) ([]CostedSample, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyNormalization
	}
	out := make([]CostedSample, 0, len(samples))
	for _, sample := range samples {
		cost := decimal.NewFromFloat(sample.UsageKWh).Mul(s.rate)
		out = append(out, CostedSample{
			Category: sample.Category,
			UsageKWh: sample.UsageKWh,
			Cost:     cost.InexactFloat64(),
		})
	}
	return out, nil
}

// TargetStrategy normalizes samples to household totals.
type TargetStrategy struct {
	totals   Totals
	baseRate float64
}

// NewTargetStrategy creates a TargetStrategy scaling to totals, deriving
// intermediate costs at baseRate.
func NewTargetStrategy(totals Totals, baseRate float64) *TargetStrategy {
	return &TargetStrategy{totals: totals, baseRate: baseRate}
}

// Name implements CostStrategy.
func (s *TargetStrategy) Name() string { return StrategyTarget }

// Cost implements CostStrategy.
func (s *TargetStrategy) Cost(samples []Sample, override *Totals) ([]CostedSample, error) {
	totals := s.totals
	if override != nil {
		totals = *override
	}
	out := Normalize(samples, totals, s.baseRate)
	if len(out) == 0 {
		return nil, ErrEmptyNormalization
	}
	return out, nil
}

// NewStrategy builds the named strategy.
func NewStrategy(name string, rate float64, totals Totals) (CostStrategy, error) {
	switch name {
	case "", StrategyRate:
		return NewRateStrategy(rate), nil
	case StrategyTarget:
		if totals.UsageKWh <= 0 || totals.Cost <= 0 {
			return nil, fmt.Errorf("target strategy requires positive totals, got usage=%v cost=%v", totals.UsageKWh, totals.Cost)
		}
		return NewTargetStrategy(totals, rate), nil
	default:
		return nil, fmt.Errorf("unknown cost strategy %q", name)
	}
}
