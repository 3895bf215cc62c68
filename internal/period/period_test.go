package period

import (
	"errors"
	"testing"
	"time"

	"github.com/shem-project/shem/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		latest string
		want   string
	}{
		{"2025-01-31", "2025-02-01"}, // 28-day February
		{"2024-01-31", "2024-02-01"}, // 29-day February
		{"2024-01-29", "2024-02-29"},
		{"2025-01-29", "2025-02-01"},
		{"2025-03-31", "2025-04-01"}, // 30-day April
		{"2025-05-31", "2025-06-01"},
		{"2025-04-30", "2025-05-30"},
		{"2025-01-15", "2025-02-15"},
		{"2025-12-31", "2026-01-31"},
		{"2025-12-01", "2026-01-01"},
		{"2025-07-31", "2025-08-31"},
	}

	for _, tt := range tests {
		t.Run(tt.latest, func(t *testing.T) {
			got, err := Next(tt.latest)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextIsStrictlyLater(t *testing.T) {
	key := "2023-08-31"
	for i := 0; i < 40; i++ {
		next, err := Next(key)
		require.NoError(t, err)
		assert.Greater(t, next, key)
		key = next
	}
}

func TestNextInvalidKey(t *testing.T) {
	_, err := Next("2025-02")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestIsMonthKey(t *testing.T) {
	assert.True(t, IsMonthKey("2026-02"))
	assert.False(t, IsMonthKey("2026-2"))
	assert.False(t, IsMonthKey("2026-02-01"))
	assert.False(t, IsMonthKey("2026-13"))
}

func TestValidateQueryKey(t *testing.T) {
	assert.NoError(t, ValidateQueryKey("2026-02"))
	assert.NoError(t, ValidateQueryKey("2026-02-14"))
	assert.Error(t, ValidateQueryKey("february"))
}

func TestMonthIndex(t *testing.T) {
	earliest := time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, MonthIndex(earliest, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, MonthIndex(earliest, time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 13, MonthIndex(earliest, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, MonthIndex(earliest, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)))
}

func TestSeason(t *testing.T) {
	s, err := Season("2025-12-05")
	require.NoError(t, err)
	assert.Equal(t, models.SeasonWinter, s)

	s, err = Season("2025-07-05")
	require.NoError(t, err)
	assert.Equal(t, models.SeasonSummer, s)
}
