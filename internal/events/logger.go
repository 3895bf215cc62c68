// Package events provides helper functions for logging SHEM events.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shem-project/shem/internal/models"
)

// Repository is the minimal interface needed to write events.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
}

// LogCycleCompleted records a finished simulation cycle for a period.
func LogCycleCompleted(ctx context.Context, repo Repository, periodKey string, payload models.CycleCompletedPayload) error {
	return logEvent(ctx, repo, models.EventTypeCycleCompleted, models.EntityTypePeriod, periodKey, payload)
}

// LogCycleEmpty records a cycle that produced no readings.
func LogCycleEmpty(ctx context.Context, repo Repository, periodKey string, payload models.CycleEmptyPayload) error {
	return logEvent(ctx, repo, models.EventTypeCycleEmpty, models.EntityTypePeriod, periodKey, payload)
}

// LogSensorMalfunction records a skipped category.
func LogSensorMalfunction(ctx context.Context, repo Repository, category, periodKey string) error {
	return logEvent(ctx, repo, models.EventTypeSensorMalfunction, models.EntityTypeCategory, category,
		models.SensorMalfunctionPayload{PeriodKey: periodKey})
}

// LogPersistFailed records a reading that could not be appended.
func LogPersistFailed(ctx context.Context, repo Repository, category, periodKey string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return logEvent(ctx, repo, models.EventTypePersistFailed, models.EntityTypeCategory, category,
		models.PersistFailedPayload{PeriodKey: periodKey, Error: msg})
}

// LogReadingsCleared records a bulk delete of the reading log.
func LogReadingsCleared(ctx context.Context, repo Repository, deleted int64) error {
	return logEvent(ctx, repo, models.EventTypeReadingsCleared, models.EntityTypeStore, "readings",
		models.ReadingsClearedPayload{Deleted: deleted})
}

func logEvent(ctx context.Context, repo Repository, eventType models.EventType, entityType models.EntityType, entityID string, payload any) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if entityID == "" {
		return fmt.Errorf("entity id is required")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	event := &models.Event{
		Type:       eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    data,
	}

	return repo.Create(ctx, event)
}
