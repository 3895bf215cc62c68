// Package models defines the domain types shared across SHEM packages.
package models

import (
	"strings"
	"time"
)

// Reading is a single category usage sample recorded for a period.
type Reading struct {
	// ID is the unique identifier for the reading.
	ID string `json:"id,omitempty"`

	// Category is the household category this reading belongs to.
	Category string `json:"category"`

	// UsageKWh is the energy used in kWh.
	UsageKWh float64 `json:"usage"`

	// Cost is the cost of the usage in USD.
	Cost float64 `json:"cost"`

	// PeriodKey is the simulation date (YYYY-MM-DD).
	PeriodKey string `json:"simulation_date"`

	// RecordedAt is when the reading was appended to the store.
	RecordedAt time.Time `json:"recorded_at,omitempty"`
}

// AggregatedPeriod is the sum of all readings sharing a period key.
type AggregatedPeriod struct {
	PeriodKey  string  `json:"simulation_date"`
	TotalUsage float64 `json:"total_usage"`
	TotalCost  float64 `json:"total_cost"`
}

// Validate checks if the reading is valid.
func (r *Reading) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(r.Category) == "" {
		validation.AddMessage("category", "category is required")
	}
	if r.UsageKWh < 0 {
		validation.AddMessage("usage", "usage must be non-negative")
	}
	if r.Cost < 0 {
		validation.AddMessage("cost", "cost must be non-negative")
	}
	if strings.TrimSpace(r.PeriodKey) == "" {
		validation.AddMessage("simulation_date", "simulation_date is required")
	} else if _, err := time.Parse(time.DateOnly, r.PeriodKey); err != nil {
		validation.AddMessage("simulation_date", "simulation_date must be YYYY-MM-DD")
	}
	return validation.Err()
}
