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

// ClaimStore implements store.ClaimStore using PostgreSQL.
type ClaimStore struct {
	pool *pgxpool.Pool
}

// NewClaimStore creates a new PostgreSQL-backed claim store.
func NewClaimStore(pool *pgxpool.Pool) *ClaimStore {
	return &ClaimStore{pool: pool}
}

// Create creates a new claim in the database.
func (s *ClaimStore) Create(ctx context.Context, claim *models.CompanyClaim) error {
	query := `
		INSERT INTO company_claims (
			claim_id, company_id, requester_id, requester_email, verification_method,
			evidence_urls, status, notes, authorized_declaration, verification_code,
			code_expires_at, created_at, reviewed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err := s.pool.Exec(ctx, query,
		claim.ClaimID,
		claim.CompanyID,
		claim.RequesterID,
		claim.RequesterEmail,
		claim.Method,
		claim.EvidenceURLs,
		claim.Status,
		claim.Notes,
		claim.AuthorizedDeclaration,
		claim.VerificationCode,
		claim.CodeExpiresAt,
		claim.CreatedAt,
		claim.ReviewedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create claim: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("claim_id", claim.ClaimID.String()).
		Str("company_id", claim.CompanyID.String()).
		Str("method", string(claim.Method)).
		Msg("Created claim")

	return nil
}

// Get retrieves a claim by ID.
func (s *ClaimStore) Get(ctx context.Context, claimID uuid.UUID) (*models.CompanyClaim, error) {
	query := claimSelect + ` WHERE claim_id = $1`

	row := s.pool.QueryRow(ctx, query, claimID)
	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to get claim: %w", mapPostgresError(err))
	}
	return claim, nil
}

// Update updates an existing claim.
func (s *ClaimStore) Update(ctx context.Context, claim *models.CompanyClaim) error {
	query := `
		UPDATE company_claims SET
			verification_method = $2,
			evidence_urls = $3,
			status = $4,
			notes = $5,
			verification_code = $6,
			code_expires_at = $7,
			reviewed_at = $8
		WHERE claim_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		claim.ClaimID,
		claim.Method,
		claim.EvidenceURLs,
		claim.Status,
		claim.Notes,
		claim.VerificationCode,
		claim.CodeExpiresAt,
		claim.ReviewedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update claim: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrClaimNotFound
	}

	return nil
}

// ListByCompany returns all claims for a company, newest first.
func (s *ClaimStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.CompanyClaim, error) {
	query := claimSelect + ` WHERE company_id = $1 ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var claims []*models.CompanyClaim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claims: %w", err)
	}

	return claims, nil
}

const claimSelect = `
	SELECT claim_id, company_id, requester_id, requester_email, verification_method,
	       evidence_urls, status, notes, authorized_declaration, verification_code,
	       code_expires_at, created_at, reviewed_at
	FROM company_claims`

func scanClaim(row pgx.Row) (*models.CompanyClaim, error) {
	var claim models.CompanyClaim
	err := row.Scan(
		&claim.ClaimID,
		&claim.CompanyID,
		&claim.RequesterID,
		&claim.RequesterEmail,
		&claim.Method,
		&claim.EvidenceURLs,
		&claim.Status,
		&claim.Notes,
		&claim.AuthorizedDeclaration,
		&claim.VerificationCode,
		&claim.CodeExpiresAt,
		&claim.CreatedAt,
		&claim.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	return &claim, nil
}
