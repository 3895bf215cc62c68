// Package forecast fits a linear usage trend over the aggregated history.
package forecast

import (
	"errors"
	"sort"

	"github.com/shem-project/shem/internal/models"
	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientHistory is returned by Predict on an unfitted model.
var ErrInsufficientHistory = errors.New("insufficient data to generate a prediction")

// MinPeriods is the number of distinct periods needed to fit a trend.
const MinPeriods = 2

// Model is an ordinary least-squares trend of total usage on the zero-based
// period index. The zero value is an unfitted model.
type Model struct {
	fitted    bool
	intercept float64
	slope     float64
	periods   int
	earliest  string
}

// Fit assigns each history row an index by ascending period key and
// regresses total usage on it.
func Fit(history []models.AggregatedPeriod) *Model {
	rows := make([]models.AggregatedPeriod, len(history))
	copy(rows, history)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].PeriodKey < rows[j].PeriodKey })

	m := &Model{periods: len(rows)}
	if len(rows) > 0 {
		m.earliest = rows[0].PeriodKey
	}
	if len(rows) < MinPeriods {
		return m
	}

	x := make([]float64, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		x[i] = float64(i)
		y[i] = r.TotalUsage
	}

	m.intercept, m.slope = stat.LinearRegression(x, y, nil, false)
	m.fitted = true
	return m
}

// Fitted reports whether Predict can be called.
func (m *Model) Fitted() bool {
	return m != nil && m.fitted
}

// Periods is the number of history rows the model saw.
func (m *Model) Periods() int {
	if m == nil {
		return 0
	}
	return m.periods
}

// Earliest is the first period key of the fitted history.
func (m *Model) Earliest() string {
	if m == nil {
		return ""
	}
	return m.earliest
}

// Coefficients returns the intercept and slope.
func (m *Model) Coefficients() (intercept, slope float64) {
	if m == nil {
		return 0, 0
	}
	return m.intercept, m.slope
}

// Predict extrapolates the trend to index. Any integer is accepted.
func (m *Model) Predict(index int) (float64, error) {
	if !m.Fitted() {
		return 0, ErrInsufficientHistory
	}
	return m.intercept + m.slope*float64(index), nil
}
