package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
)

// OutboxStore implements store.OutboxStore using PostgreSQL.
type OutboxStore struct {
	pool *pgxpool.Pool
}

// NewOutboxStore creates a new PostgreSQL-backed outbox store.
func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{pool: pool}
}

// Enqueue adds a message in the pending state.
func (s *OutboxStore) Enqueue(ctx context.Context, msg *models.EmailMessage) error {
	query := `
		INSERT INTO email_outbox (
			message_id, recipient, subject, html, template, status, attempts,
			last_error, created_at, sent_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		msg.MessageID,
		msg.To,
		msg.Subject,
		msg.HTML,
		msg.Template,
		msg.Status,
		msg.Attempts,
		msg.LastError,
		msg.CreatedAt,
		msg.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue message: %w", mapPostgresError(err))
	}

	return nil
}

// Get retrieves a message by ID.
func (s *OutboxStore) Get(ctx context.Context, messageID uuid.UUID) (*models.EmailMessage, error) {
	query := outboxSelect + ` WHERE message_id = $1`

	row := s.pool.QueryRow(ctx, query, messageID)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", mapPostgresError(err))
	}
	return msg, nil
}

// NextPending returns up to limit pending messages, oldest first. Rows
// are not claimed here; concurrent pollers can select the same message,
// though only one of them will win the conditional MarkSent. Run a
// single worker per outbox table.
func (s *OutboxStore) NextPending(ctx context.Context, limit int) ([]*models.EmailMessage, error) {
	query := outboxSelect + `
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending messages: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var messages []*models.EmailMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// MarkSent transitions a message to the sent terminal state.
func (s *OutboxStore) MarkSent(ctx context.Context, messageID uuid.UUID, sentAt time.Time) error {
	query := `
		UPDATE email_outbox SET
			status = 'sent',
			sent_at = $2
		WHERE message_id = $1 AND status = 'pending'
	`

	result, err := s.pool.Exec(ctx, query, messageID, sentAt)
	if err != nil {
		return fmt.Errorf("failed to mark message sent: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrMessageNotFound
	}
	return nil
}

// MarkFailed records a failed attempt, optionally moving the message to
// the failed terminal state.
func (s *OutboxStore) MarkFailed(ctx context.Context, messageID uuid.UUID, lastError string, final bool) error {
	status := models.EmailStatusPending
	if final {
		status = models.EmailStatusFailed
	}

	query := `
		UPDATE email_outbox SET
			status = $2,
			attempts = attempts + 1,
			last_error = $3
		WHERE message_id = $1
	`

	result, err := s.pool.Exec(ctx, query, messageID, status, lastError)
	if err != nil {
		return fmt.Errorf("failed to mark message failed: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrMessageNotFound
	}
	return nil
}

const outboxSelect = `
	SELECT message_id, recipient, subject, html, template, status, attempts,
	       last_error, created_at, sent_at
	FROM email_outbox`

func scanMessage(row pgx.Row) (*models.EmailMessage, error) {
	var msg models.EmailMessage
	err := row.Scan(
		&msg.MessageID,
		&msg.To,
		&msg.Subject,
		&msg.HTML,
		&msg.Template,
		&msg.Status,
		&msg.Attempts,
		&msg.LastError,
		&msg.CreatedAt,
		&msg.SentAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
