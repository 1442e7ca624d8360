package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reporthere/reporthere/internal/models"
)

// EventStore implements store.EventStore using PostgreSQL. The
// platform_events table is append-only; rows are never updated or
// deleted by the application.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new PostgreSQL-backed event store.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append records an event.
func (s *EventStore) Append(ctx context.Context, event *models.PlatformEvent) error {
	query := `
		INSERT INTO platform_events (
			event_id, event_type, event_data, user_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	_, err := s.pool.Exec(ctx, query,
		event.EventID,
		event.Type,
		event.Data,
		event.UserID,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", mapPostgresError(err))
	}

	return nil
}

// Recent returns events most-recent-first, optionally filtered by type.
func (s *EventStore) Recent(ctx context.Context, limit int, eventType *models.EventType) ([]*models.PlatformEvent, error) {
	query := `
		SELECT event_id, event_type, event_data, user_id, created_at
		FROM platform_events
	`
	args := []any{}
	if eventType != nil {
		query += ` WHERE event_type = $1`
		args = append(args, *eventType)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", mapPostgresError(err))
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Since returns events created at or after the given instant,
// most-recent-first.
func (s *EventStore) Since(ctx context.Context, since time.Time) ([]*models.PlatformEvent, error) {
	query := `
		SELECT event_id, event_type, event_data, user_id, created_at
		FROM platform_events
		WHERE created_at >= $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", mapPostgresError(err))
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]*models.PlatformEvent, error) {
	var events []*models.PlatformEvent
	for rows.Next() {
		var event models.PlatformEvent
		err := rows.Scan(
			&event.EventID,
			&event.Type,
			&event.Data,
			&event.UserID,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}
