package memory

import (
	"context"
	"sync"
	"time"

	"github.com/reporthere/reporthere/internal/models"
)

// EventStore implements store.EventStore using an in-memory append-only
// slice.
type EventStore struct {
	mu sync.RWMutex

	events []*models.PlatformEvent
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Append records an event. Events are never mutated after the append.
func (s *EventStore) Append(ctx context.Context, event *models.PlatformEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneEvent(event)
	s.events = append(s.events, clone)
	return nil
}

// Recent returns events most-recent-first, optionally filtered by type.
func (s *EventStore) Recent(ctx context.Context, limit int, eventType *models.EventType) ([]*models.PlatformEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.PlatformEvent
	for i := len(s.events) - 1; i >= 0 && len(result) < limit; i-- {
		event := s.events[i]
		if eventType != nil && event.Type != *eventType {
			continue
		}
		result = append(result, cloneEvent(event))
	}
	return result, nil
}

// Since returns events created at or after the given instant,
// most-recent-first.
func (s *EventStore) Since(ctx context.Context, since time.Time) ([]*models.PlatformEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.PlatformEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		event := s.events[i]
		if event.CreatedAt.Before(since) {
			continue
		}
		result = append(result, cloneEvent(event))
	}
	return result, nil
}

func cloneEvent(e *models.PlatformEvent) *models.PlatformEvent {
	clone := *e
	clone.Data = append([]byte(nil), e.Data...)
	if e.UserID != nil {
		id := *e.UserID
		clone.UserID = &id
	}
	return &clone
}
