package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shem-project/shem/internal/models"
)

func TestEventRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(openTestDB(t))

	event := &models.Event{
		Type:       models.EventTypeCycleCompleted,
		EntityType: models.EntityTypePeriod,
		EntityID:   "2025-03-01",
		Payload:    []byte(`{"readings":9}`),
	}
	if err := repo.Create(ctx, event); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if event.ID == "" {
		t.Fatal("expected ID to be set")
	}

	got, err := repo.Get(ctx, event.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Type != models.EventTypeCycleCompleted || string(got.Payload) != `{"readings":9}` {
		t.Errorf("unexpected event: %+v", got)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestEventRepositoryCreateInvalid(t *testing.T) {
	repo := NewEventRepository(openTestDB(t))
	err := repo.Create(context.Background(), &models.Event{Type: models.EventTypeCycleEmpty})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestEventRepositoryQueryPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(openTestDB(t))

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		event := &models.Event{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			Type:       models.EventTypeSensorMalfunction,
			EntityType: models.EntityTypeCategory,
			EntityID:   models.CategoryHVAC,
		}
		if err := repo.Create(ctx, event); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}
	if err := repo.Create(ctx, &models.Event{
		Timestamp:  base,
		Type:       models.EventTypeReadingsCleared,
		EntityType: models.EntityTypeStore,
		EntityID:   "readings",
	}); err != nil {
		t.Fatalf("Create cleared: %v", err)
	}

	eventType := models.EventTypeSensorMalfunction
	page, err := repo.Query(ctx, EventQuery{Type: &eventType, Limit: 3})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Events) != 3 || page.NextCursor == "" {
		t.Fatalf("expected 3 events and a cursor, got %d cursor=%q", len(page.Events), page.NextCursor)
	}

	next, err := repo.Query(ctx, EventQuery{Type: &eventType, Limit: 3, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("Query next: %v", err)
	}
	if len(next.Events) != 2 || next.NextCursor != "" {
		t.Fatalf("expected final page of 2, got %d cursor=%q", len(next.Events), next.NextCursor)
	}
	if !next.Events[0].Timestamp.After(page.Events[2].Timestamp) {
		t.Errorf("expected pages in timestamp order")
	}

	since := base.Add(3 * time.Second)
	recent, err := repo.Query(ctx, EventQuery{Since: &since})
	if err != nil {
		t.Fatalf("Query since: %v", err)
	}
	if len(recent.Events) != 2 {
		t.Errorf("expected 2 recent events, got %d", len(recent.Events))
	}

	byEntity, err := repo.ListByEntity(ctx, models.EntityTypeStore, "readings", 10)
	if err != nil {
		t.Fatalf("ListByEntity: %v", err)
	}
	if len(byEntity) != 1 {
		t.Errorf("expected 1 store event, got %d", len(byEntity))
	}
}
