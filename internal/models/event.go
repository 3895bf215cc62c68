package models

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType categorizes events in the system.
type EventType string

const (
	// Simulation events
	EventTypeCycleCompleted    EventType = "cycle.completed"
	EventTypeCycleEmpty        EventType = "cycle.empty"
	EventTypeSensorMalfunction EventType = "sensor.malfunction"

	// Storage events
	EventTypePersistFailed   EventType = "reading.persist_failed"
	EventTypeReadingsCleared EventType = "readings.cleared"
)

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	EntityTypePeriod   EntityType = "period"
	EntityTypeCategory EntityType = "category"
	EntityTypeStore    EntityType = "store"
)

// Event represents an append-only log entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity (period key, category name).
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate checks if the event is valid.
func (e *Event) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(string(e.Type)) == "" {
		validation.AddMessage("type", "event type is required")
	}
	if strings.TrimSpace(string(e.EntityType)) == "" {
		validation.AddMessage("entity_type", "entity_type is required")
	}
	if strings.TrimSpace(e.EntityID) == "" {
		validation.AddMessage("entity_id", "entity_id is required")
	}
	return validation.Err()
}

// CycleCompletedPayload is the payload for cycle.completed events.
type CycleCompletedPayload struct {
	Strategy        string   `json:"strategy"`
	Season          Season   `json:"season,omitempty"`
	Scenario        Scenario `json:"scenario,omitempty"`
	Readings        int      `json:"readings"`
	Skipped         []string `json:"skipped,omitempty"`
	PersistFailures int      `json:"persist_failures,omitempty"`
	TotalUsage      float64  `json:"total_usage"`
	TotalCost       float64  `json:"total_cost"`
}

// CycleEmptyPayload is the payload for cycle.empty events.
type CycleEmptyPayload struct {
	Strategy string   `json:"strategy"`
	Skipped  []string `json:"skipped,omitempty"`
	Reason   string   `json:"reason"`
}

// SensorMalfunctionPayload is the payload for sensor.malfunction events.
type SensorMalfunctionPayload struct {
	PeriodKey string `json:"simulation_date"`
}

// PersistFailedPayload is the payload for reading.persist_failed events.
type PersistFailedPayload struct {
	PeriodKey string `json:"simulation_date"`
	Error     string `json:"error"`
}

// ReadingsClearedPayload is the payload for readings.cleared events.
type ReadingsClearedPayload struct {
	Deleted int64 `json:"deleted"`
}
