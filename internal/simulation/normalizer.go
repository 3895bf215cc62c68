// Package simulation runs simulation cycles: it samples every category
// sensor, costs the samples and hands the readings to the store.
package simulation

// Sample is one raw sensor value for a category.
type Sample struct {
	Category string
	UsageKWh float64
}

// CostedSample is a sample with its cost attached.
type CostedSample struct {
	Category string
	UsageKWh float64
	Cost     float64
}

// Totals are household-level totals for one cycle.
type Totals struct {
	UsageKWh float64 `json:"total_usage_kwh" mapstructure:"usage_kwh"`
	Cost     float64 `json:"total_cost" mapstructure:"cost"`
}

// Normalize rescales samples so that their usage sums to target.UsageKWh and
// their cost, first derived at baseRate, sums to target.Cost.
//
// It returns nil when there is nothing to scale: no samples, a zero raw
// usage sum, or a zero derived cost sum.
func Normalize(samples []Sample, target Totals, baseRate float64) []CostedSample {
	if len(samples) == 0 {
		return nil
	}

	var rawUsage float64
	for _, s := range samples {
		rawUsage += s.UsageKWh
	}
	if rawUsage == 0 {
		return nil
	}

	usageScale := target.UsageKWh / rawUsage
	out := make([]CostedSample, len(samples))
	var rawCost float64
	for i, s := range samples {
		usage := s.UsageKWh * usageScale
		cost := usage * baseRate
		out[i] = CostedSample{Category: s.Category, UsageKWh: usage, Cost: cost}
		rawCost += cost
	}
	if rawCost == 0 {
		return nil
	}

	costScale := target.Cost / rawCost
	for i := range out {
		out[i].Cost *= costScale
	}
	return out
}
