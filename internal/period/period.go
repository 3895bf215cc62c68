// Package period handles simulation date keys.
//
// A period key is a calendar date formatted as YYYY-MM-DD. Month filters use
// the YYYY-MM prefix of a key.
package period

import (
	"errors"
	"fmt"
	"time"

	"github.com/shem-project/shem/internal/models"
)

const (
	// DayLayout is the layout of a period key.
	DayLayout = time.DateOnly

	// MonthLayout is the layout of a month filter.
	MonthLayout = "2006-01"
)

// ErrInvalidKey is returned for keys that are neither a day nor a month.
var ErrInvalidKey = errors.New("invalid period key")

// Parse parses a YYYY-MM-DD period key.
func Parse(key string) (time.Time, error) {
	t, err := time.Parse(DayLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrInvalidKey, key)
	}
	return t, nil
}

// Format formats t as a period key.
func Format(t time.Time) string {
	return t.Format(DayLayout)
}

// IsMonthKey reports whether key is a YYYY-MM month filter.
func IsMonthKey(key string) bool {
	if len(key) != len(MonthLayout) {
		return false
	}
	_, err := time.Parse(MonthLayout, key)
	return err == nil
}

// ValidateQueryKey accepts either a day key or a month filter.
func ValidateQueryKey(key string) error {
	if IsMonthKey(key) {
		return nil
	}
	_, err := Parse(key)
	return err
}

// AddMonth advances t by one calendar month. The day of month is kept when
// it exists in the target month and clamped to the 1st otherwise.
func AddMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	if day > daysIn(year, month) {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Next returns the period key one calendar month after key.
func Next(key string) (string, error) {
	t, err := Parse(key)
	if err != nil {
		return "", err
	}
	return Format(AddMonth(t)), nil
}

// MonthIndex counts whole calendar months from earliest to target. The
// result is negative when target is before earliest.
func MonthIndex(earliest, target time.Time) int {
	return (target.Year()-earliest.Year())*12 + int(target.Month()-earliest.Month())
}

// Season returns the season of the period key's month.
func Season(key string) (models.Season, error) {
	t, err := Parse(key)
	if err != nil {
		return "", err
	}
	return models.SeasonForMonth(t.Month()), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
