// Package events provides the append-only platform event log. Events
// are an audit side channel and the trigger source for notifications;
// a failed append never blocks the business action that produced it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
	"github.com/reporthere/reporthere/internal/telemetry"
)

// Service records and reads platform events.
type Service struct {
	events store.EventStore
}

// New creates an event log service over the given store.
func New(events store.EventStore) *Service {
	return &Service{events: events}
}

// Log appends an event. The payload is marshalled to JSON; a marshal or
// storage failure is reported to the caller but events are a side
// channel - callers log the error and continue.
func (s *Service) Log(ctx context.Context, eventType models.EventType, data any, userID *uuid.UUID) (*models.PlatformEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := &models.PlatformEvent{
		EventID:   models.NewID(),
		Type:      eventType,
		Data:      payload,
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	if err := s.events.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	telemetry.GetMetrics().EventsLoggedTotal.Add(ctx, 1)

	log.Debug().
		Str("event_id", event.EventID.String()).
		Str("event_type", string(eventType)).
		Msg("Logged platform event")

	return event, nil
}

// Recent returns up to limit events most-recent-first, optionally
// filtered by type.
func (s *Service) Recent(ctx context.Context, limit int, eventType *models.EventType) ([]*models.PlatformEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.events.Recent(ctx, limit, eventType)
}

// Stats returns a count-by-type mapping over a trailing window of days.
// Counts are grouped in the application after a window scan; there is no
// pre-aggregation.
func (s *Service) Stats(ctx context.Context, windowDays int) (map[models.EventType]int, error) {
	if windowDays <= 0 {
		windowDays = 7
	}

	since := time.Now().AddDate(0, 0, -windowDays)
	window, err := s.events.Since(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event window: %w", err)
	}

	stats := make(map[models.EventType]int)
	for _, event := range window {
		stats[event.Type]++
	}
	return stats, nil
}
