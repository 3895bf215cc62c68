// Package breakdown summarizes one period's readings by category, rates its
// efficiency and derives rule-based savings suggestions.
package breakdown

import (
	"sort"

	"github.com/shem-project/shem/internal/models"
	"github.com/shopspring/decimal"
)

// Rating is a letter efficiency grade.
type Rating string

const (
	RatingA Rating = "A"
	RatingB Rating = "B"
	RatingC Rating = "C"
	RatingD Rating = "D"
	RatingF Rating = "F"
)

// ratingBands are upper bounds (exclusive) on total usage, first match wins.
var ratingBands = []struct {
	below  float64
	rating Rating
}{
	{1000, RatingA},
	{1500, RatingB},
	{2000, RatingC},
	{2500, RatingD},
}

// RatingFor grades a period's total usage in kWh.
func RatingFor(totalUsage float64) Rating {
	for _, band := range ratingBands {
		if totalUsage < band.below {
			return band.rating
		}
	}
	return RatingF
}

// CategoryShare is one category's part of a period.
type CategoryShare struct {
	Usage           float64 `json:"usage"`
	Cost            float64 `json:"cost"`
	UsagePercentage float64 `json:"usage_percentage"`
}

// Report is the breakdown of one period.
type Report struct {
	PeriodKey   string                   `json:"simulation_date"`
	Season      models.Season            `json:"season,omitempty"`
	TotalUsage  float64                  `json:"total_usage"`
	TotalCost   float64                  `json:"total_cost"`
	ByCategory  map[string]CategoryShare `json:"breakdown_by_category"`
	Rating      Rating                   `json:"efficiency_rating"`
	Suggestions []string                 `json:"suggestions"`
}

// Categories returns the report's category names in sorted order.
func (r *Report) Categories() []string {
	names := make([]string, 0, len(r.ByCategory))
	for name := range r.ByCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compute builds the report for readings. It is a pure function of its
// inputs. PeriodKey is taken from the first reading.
func Compute(readings []models.Reading, season models.Season) Report {
	usageBy := map[string]decimal.Decimal{}
	costBy := map[string]decimal.Decimal{}
	totalUsage := decimal.Zero
	totalCost := decimal.Zero

	for _, r := range readings {
		u := decimal.NewFromFloat(r.UsageKWh)
		c := decimal.NewFromFloat(r.Cost)
		usageBy[r.Category] = usageBy[r.Category].Add(u)
		costBy[r.Category] = costBy[r.Category].Add(c)
		totalUsage = totalUsage.Add(u)
		totalCost = totalCost.Add(c)
	}

	report := Report{
		Season:     season,
		TotalUsage: totalUsage.InexactFloat64(),
		TotalCost:  totalCost.InexactFloat64(),
		ByCategory: make(map[string]CategoryShare, len(usageBy)),
	}
	if len(readings) > 0 {
		report.PeriodKey = readings[0].PeriodKey
	}

	hundred := decimal.NewFromInt(100)
	for name, usage := range usageBy {
		pct := 0.0
		if !totalUsage.IsZero() {
			pct = usage.Div(totalUsage).Mul(hundred).InexactFloat64()
		}
		report.ByCategory[name] = CategoryShare{
			Usage:           usage.InexactFloat64(),
			Cost:            costBy[name].InexactFloat64(),
			UsagePercentage: pct,
		}
	}

	report.Rating = RatingFor(report.TotalUsage)
	report.Suggestions = Suggest(report)
	return report
}
