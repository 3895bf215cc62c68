package forecast

import (
	"testing"

	"github.com/shem-project/shem/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func history(usages ...float64) []models.AggregatedPeriod {
	keys := []string{"2025-01-15", "2025-02-15", "2025-03-15", "2025-04-15", "2025-05-15"}
	out := make([]models.AggregatedPeriod, len(usages))
	for i, u := range usages {
		out[i] = models.AggregatedPeriod{PeriodKey: keys[i], TotalUsage: u}
	}
	return out
}

func TestFitLinearContinuation(t *testing.T) {
	m := Fit(history(1000, 1100, 1200))
	require.True(t, m.Fitted())

	got, err := m.Predict(3)
	require.NoError(t, err)
	assert.InDelta(t, 1300, got, 1e-6)

	intercept, slope := m.Coefficients()
	assert.InDelta(t, 1000, intercept, 1e-6)
	assert.InDelta(t, 100, slope, 1e-6)
	assert.Equal(t, "2025-01-15", m.Earliest())
}

func TestFitSortsByPeriodKey(t *testing.T) {
	rows := history(1000, 1100, 1200)
	rows[0], rows[2] = rows[2], rows[0]

	m := Fit(rows)
	got, err := m.Predict(3)
	require.NoError(t, err)
	assert.InDelta(t, 1300, got, 1e-6)
}

func TestPredictExtrapolatesAnyIndex(t *testing.T) {
	m := Fit(history(1000, 1100, 1200))

	got, err := m.Predict(-2)
	require.NoError(t, err)
	assert.InDelta(t, 800, got, 1e-6)

	got, err = m.Predict(12)
	require.NoError(t, err)
	assert.InDelta(t, 2200, got, 1e-6)
}

func TestUnfittedModel(t *testing.T) {
	for _, rows := range [][]models.AggregatedPeriod{nil, history(1000)} {
		m := Fit(rows)
		assert.False(t, m.Fitted())
		_, err := m.Predict(1)
		assert.ErrorIs(t, err, ErrInsufficientHistory)
	}

	var zero Model
	_, err := zero.Predict(0)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestUsageSuggestionsTiers(t *testing.T) {
	high := UsageSuggestions(601)
	require.Len(t, high, 3)
	assert.Contains(t, high[0], "very high")

	moderate := UsageSuggestions(600)
	require.Len(t, moderate, 3)
	assert.Contains(t, moderate[0], "Moderate usage")

	low := UsageSuggestions(400)
	require.Len(t, low, 3)
	assert.Contains(t, low[0], "relatively low")
}

func TestBuilderCachesByFingerprint(t *testing.T) {
	b := NewBuilder()
	assert.False(t, b.Current().Fitted())

	rows := history(1000, 1100)
	first := b.Rebuild(rows)
	second := b.Rebuild(history(1000, 1100))
	assert.Same(t, first, second)
	assert.Equal(t, 1, b.Fits())

	third := b.Rebuild(history(1000, 1150))
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, b.Fits())

	b.Rebuild(history(1000, 1150, 1300))
	assert.Equal(t, 3, b.Fits())
	assert.Equal(t, 3, b.Current().Periods())
}
