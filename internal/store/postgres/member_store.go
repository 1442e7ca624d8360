package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
)

// MemberStore implements store.MemberStore using PostgreSQL.
type MemberStore struct {
	pool *pgxpool.Pool
}

// NewMemberStore creates a new PostgreSQL-backed member store.
func NewMemberStore(pool *pgxpool.Pool) *MemberStore {
	return &MemberStore{pool: pool}
}

// Create creates a new membership. The (company_id, user_id) primary key
// makes duplicate creation fail with ErrMemberAlreadyExists, which keeps
// claim approval idempotent.
func (s *MemberStore) Create(ctx context.Context, member *models.CompanyMember) error {
	query := `
		INSERT INTO company_members (
			company_id, user_id, user_email, role, invited_at, accepted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := s.pool.Exec(ctx, query,
		member.CompanyID,
		member.UserID,
		member.UserEmail,
		member.Role,
		member.InvitedAt,
		member.AcceptedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrMemberAlreadyExists
		}
		return fmt.Errorf("failed to create member: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("company_id", member.CompanyID.String()).
		Str("user_id", member.UserID.String()).
		Str("role", string(member.Role)).
		Msg("Created company member")

	return nil
}

// Get retrieves a membership by company and user.
func (s *MemberStore) Get(ctx context.Context, companyID, userID uuid.UUID) (*models.CompanyMember, error) {
	query := `
		SELECT company_id, user_id, user_email, role, invited_at, accepted_at
		FROM company_members
		WHERE company_id = $1 AND user_id = $2
	`

	var member models.CompanyMember
	err := s.pool.QueryRow(ctx, query, companyID, userID).Scan(
		&member.CompanyID,
		&member.UserID,
		&member.UserEmail,
		&member.Role,
		&member.InvitedAt,
		&member.AcceptedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", mapPostgresError(err))
	}

	return &member, nil
}

// ListByCompany returns all memberships for a company.
func (s *MemberStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.CompanyMember, error) {
	query := `
		SELECT company_id, user_id, user_email, role, invited_at, accepted_at
		FROM company_members
		WHERE company_id = $1
		ORDER BY accepted_at
	`

	rows, err := s.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var members []*models.CompanyMember
	for rows.Next() {
		var member models.CompanyMember
		err := rows.Scan(
			&member.CompanyID,
			&member.UserID,
			&member.UserEmail,
			&member.Role,
			&member.InvitedAt,
			&member.AcceptedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// CountByCompany returns the number of memberships for a company.
func (s *MemberStore) CountByCompany(ctx context.Context, companyID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM company_members WHERE company_id = $1`,
		companyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", mapPostgresError(err))
	}
	return count, nil
}
