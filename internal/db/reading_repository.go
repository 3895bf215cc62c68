package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shem-project/shem/internal/models"
	"github.com/shem-project/shem/internal/period"
)

// Reading repository errors.
var (
	ErrInvalidReading   = errors.New("invalid reading")
	ErrInvalidPeriodKey = errors.New("invalid period key")
)

// ReadingRepository is the append-only reading log.
type ReadingRepository struct {
	db *DB
}

// NewReadingRepository creates a new ReadingRepository.
func NewReadingRepository(db *DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Append inserts a reading. Duplicates are allowed.
func (r *ReadingRepository) Append(ctx context.Context, reading *models.Reading) error {
	if err := reading.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}

	if reading.ID == "" {
		reading.ID = uuid.New().String()
	}
	if reading.RecordedAt.IsZero() {
		reading.RecordedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO readings (
			id, category, usage_kwh, cost, period_key, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		reading.ID,
		reading.Category,
		reading.UsageKWh,
		reading.Cost,
		reading.PeriodKey,
		reading.RecordedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	return nil
}

// LatestPeriod returns the greatest stored period key.
func (r *ReadingRepository) LatestPeriod(ctx context.Context) (string, bool, error) {
	var latest sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(period_key) FROM readings`).Scan(&latest); err != nil {
		return "", false, fmt.Errorf("failed to query latest period: %w", err)
	}
	if !latest.Valid || latest.String == "" {
		return "", false, nil
	}
	return latest.String, true, nil
}

// ForPeriod returns readings for a YYYY-MM-DD day or a YYYY-MM month,
// ordered by period and category.
func (r *ReadingRepository) ForPeriod(ctx context.Context, key string) ([]*models.Reading, error) {
	query := `SELECT id, category, usage_kwh, cost, period_key, recorded_at FROM readings`
	var arg string
	switch {
	case period.IsMonthKey(key):
		query += ` WHERE period_key LIKE ?`
		arg = key + "-%"
	default:
		if _, err := period.Parse(key); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
		}
		query += ` WHERE period_key = ?`
		arg = key
	}
	query += ` ORDER BY period_key, category, recorded_at`

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []*models.Reading
	for rows.Next() {
		reading, err := r.scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating readings: %w", err)
	}

	return readings, nil
}

// AggregateByPeriod sums readings per period key in ascending key order.
func (r *ReadingRepository) AggregateByPeriod(ctx context.Context) ([]models.AggregatedPeriod, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			period_key,
			COALESCE(SUM(usage_kwh), 0) as total_usage,
			COALESCE(SUM(cost), 0) as total_cost
		FROM readings
		GROUP BY period_key
		ORDER BY period_key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate readings: %w", err)
	}
	defer rows.Close()

	history := []models.AggregatedPeriod{}
	for rows.Next() {
		var p models.AggregatedPeriod
		if err := rows.Scan(&p.PeriodKey, &p.TotalUsage, &p.TotalCost); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		history = append(history, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregates: %w", err)
	}

	return history, nil
}

// Count returns the number of stored readings.
func (r *ReadingRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return n, nil
}

// Clear deletes every reading and returns how many were removed.
func (r *ReadingRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM readings`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear readings: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

func (r *ReadingRepository) scanReading(rows *sql.Rows) (*models.Reading, error) {
	var reading models.Reading
	var recordedAt string

	if err := rows.Scan(
		&reading.ID,
		&reading.Category,
		&reading.UsageKWh,
		&reading.Cost,
		&reading.PeriodKey,
		&recordedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan reading: %w", err)
	}

	if t, err := time.Parse(timeLayout, recordedAt); err == nil {
		reading.RecordedAt = t
	} else {
		r.db.logger.Warn().Err(err).Str("reading_id", reading.ID).Msg("failed to parse recorded_at")
	}

	return &reading, nil
}
