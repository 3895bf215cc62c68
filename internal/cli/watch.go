package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shem-project/shem/internal/db"
	"github.com/shem-project/shem/internal/models"
)

// watchMode is set by --watch on commands that can follow the event log.
var watchMode bool

// StreamConfig controls how the event log is followed.
type StreamConfig struct {
	// PollInterval is the delay between polls.
	PollInterval time.Duration

	// BatchSize caps the events fetched per poll.
	BatchSize int

	// IncludeExisting replays events already in the log before following.
	IncludeExisting bool

	// Since bounds the replay. Nil replays everything.
	Since *time.Time

	// EntityTypes and Types restrict the stream. Empty means all.
	EntityTypes []models.EntityType
	Types       []models.EventType

	// Reconnect controls retries after a failed poll.
	Reconnect ReconnectConfig
}

// ConnectionStatus describes the streamer's link to the event log.
type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusReconnecting ConnectionStatus = "reconnecting"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
)

// ReconnectConfig controls retry with exponential backoff.
type ReconnectConfig struct {
	Enabled bool

	// MaxAttempts is the number of consecutive failures tolerated. 0 is unlimited.
	MaxAttempts int

	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64

	// OnStatusChange is called on every status transition.
	OnStatusChange func(status ConnectionStatus, attempt int, nextRetry time.Duration, err error)
}

// DefaultReconnectConfig retries forever, backing off from 1s to 30s.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		Enabled:           true,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// DefaultStreamConfig returns the default streaming settings.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		PollInterval: 500 * time.Millisecond,
		BatchSize:    100,
		Reconnect:    DefaultReconnectConfig(),
	}
}

// EventStreamer writes events from the log as JSON lines.
type EventStreamer struct {
	repo   *db.EventRepository
	out    io.Writer
	config StreamConfig
}

// NewEventStreamer creates an EventStreamer.
func NewEventStreamer(repo *db.EventRepository, out io.Writer, config StreamConfig) *EventStreamer {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultStreamConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultStreamConfig().BatchSize
	}
	return &EventStreamer{repo: repo, out: out, config: config}
}

// Stream follows the event log until ctx is done. Cancellation is not an
// error. Poll failures are retried with backoff when reconnection is enabled.
func (s *EventStreamer) Stream(ctx context.Context) error {
	var since *time.Time
	if s.config.IncludeExisting {
		since = s.config.Since
	} else {
		now := time.Now().UTC()
		since = &now
	}

	cursor := ""
	attempt := 0
	var backoff time.Duration
	s.notify(ConnectionStatusConnected, 0, 0, nil)
	defer s.notify(ConnectionStatusDisconnected, 0, 0, nil)

	for {
		next, err := s.drain(ctx, cursor, since)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !s.config.Reconnect.Enabled {
				return err
			}
			attempt++
			if limit := s.config.Reconnect.MaxAttempts; limit > 0 && attempt > limit {
				return fmt.Errorf("max reconnection attempts (%d) exceeded: %w", limit, err)
			}
			backoff = s.calculateBackoff(attempt, backoff)
			s.notify(ConnectionStatusReconnecting, attempt, backoff, err)
			if !sleepContext(ctx, backoff) {
				return nil
			}
			continue
		}
		if attempt > 0 {
			attempt = 0
			backoff = 0
			s.notify(ConnectionStatusConnected, 0, 0, nil)
		}
		cursor = next

		if !sleepContext(ctx, s.config.PollInterval) {
			return nil
		}
	}
}

// drain writes every available batch and returns the cursor to resume from.
func (s *EventStreamer) drain(ctx context.Context, cursor string, since *time.Time) (string, error) {
	for {
		events, next, err := s.poll(ctx, cursor, since)
		if err != nil {
			return cursor, err
		}
		for _, event := range events {
			if err := s.writeEvent(event); err != nil {
				return cursor, err
			}
		}
		if next == cursor {
			return cursor, nil
		}
		cursor = next
	}
}

// calculateBackoff returns the delay before retry attempt, growing from
// the current delay.
func (s *EventStreamer) calculateBackoff(attempt int, current time.Duration) time.Duration {
	cfg := s.config.Reconnect
	if attempt <= 1 || current <= 0 {
		return cfg.InitialBackoff
	}
	next := time.Duration(float64(current) * cfg.BackoffMultiplier)
	if cfg.MaxBackoff > 0 && next > cfg.MaxBackoff {
		next = cfg.MaxBackoff
	}
	return next
}

func (s *EventStreamer) notify(status ConnectionStatus, attempt int, nextRetry time.Duration, err error) {
	if s.config.Reconnect.OnStatusChange != nil {
		s.config.Reconnect.OnStatusChange(status, attempt, nextRetry, err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// poll fetches the next batch after cursor. It returns the matching events
// and the cursor to resume from.
func (s *EventStreamer) poll(ctx context.Context, cursor string, since *time.Time) ([]*models.Event, string, error) {
	query := db.EventQuery{
		Cursor: cursor,
		Limit:  s.config.BatchSize,
	}
	if cursor == "" {
		query.Since = since
	}
	if len(s.config.Types) == 1 {
		query.Type = &s.config.Types[0]
	}
	if len(s.config.EntityTypes) == 1 {
		query.EntityType = &s.config.EntityTypes[0]
	}

	page, err := s.repo.Query(ctx, query)
	if err != nil {
		return nil, cursor, fmt.Errorf("failed to poll events: %w", err)
	}
	if len(page.Events) == 0 {
		return nil, cursor, nil
	}

	next := page.Events[len(page.Events)-1].ID
	matched := make([]*models.Event, 0, len(page.Events))
	for _, event := range page.Events {
		if s.matches(event) {
			matched = append(matched, event)
		}
	}
	return matched, next, nil
}

func (s *EventStreamer) matches(event *models.Event) bool {
	if len(s.config.EntityTypes) > 0 {
		found := false
		for _, et := range s.config.EntityTypes {
			if event.EntityType == et {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(s.config.Types) > 0 {
		for _, t := range s.config.Types {
			if event.Type == t {
				return true
			}
		}
		return false
	}
	return true
}

func (s *EventStreamer) writeEvent(event *models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	data = append(data, '\n')
	_, err = s.out.Write(data)
	return err
}

// MustBeJSONLForWatch rejects --watch without --jsonl.
func MustBeJSONLForWatch() error {
	if watchMode && !IsJSONLOutput() {
		return errors.New("--watch requires --jsonl output")
	}
	return nil
}

// ParseSince parses a --since value: a duration ago ("1h", "7d"), an
// RFC3339 timestamp or a date. An empty string means no bound.
func ParseSince(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if d, err := parseDurationWithDays(value); err == nil {
		t := time.Now().UTC().Add(-d)
		return &t, nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return &t, nil
		}
	}

	return nil, fmt.Errorf("invalid --since value %q: use a duration (1h, 7d) or a timestamp", value)
}

// parseDurationWithDays extends time.ParseDuration with a "d" suffix.
func parseDurationWithDays(value string) (time.Duration, error) {
	if strings.HasSuffix(value, "d") {
		days, err := strconv.ParseFloat(strings.TrimSuffix(value, "d"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", value)
		}
		return time.Duration(days * float64(24*time.Hour)), nil
	}
	return time.ParseDuration(value)
}
