package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
)

// SubscriptionStore implements store.SubscriptionStore using PostgreSQL.
type SubscriptionStore struct {
	pool *pgxpool.Pool
}

// NewSubscriptionStore creates a new PostgreSQL-backed subscription store.
func NewSubscriptionStore(pool *pgxpool.Pool) *SubscriptionStore {
	return &SubscriptionStore{pool: pool}
}

// Create stores a subscription for a company, replacing any existing one.
func (s *SubscriptionStore) Create(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			subscription_id, company_id, plan, status, seats, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (company_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			seats = EXCLUDED.seats,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		sub.SubscriptionID,
		sub.CompanyID,
		sub.Plan,
		sub.Status,
		sub.Seats,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", mapPostgresError(err))
	}

	return nil
}

// GetByCompany retrieves the subscription for a company.
func (s *SubscriptionStore) GetByCompany(ctx context.Context, companyID uuid.UUID) (*models.Subscription, error) {
	query := `
		SELECT subscription_id, company_id, plan, status, seats, created_at, updated_at
		FROM subscriptions
		WHERE company_id = $1
	`

	var sub models.Subscription
	err := s.pool.QueryRow(ctx, query, companyID).Scan(
		&sub.SubscriptionID,
		&sub.CompanyID,
		&sub.Plan,
		&sub.Status,
		&sub.Seats,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", mapPostgresError(err))
	}

	return &sub, nil
}
