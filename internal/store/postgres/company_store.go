package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
)

// CompanyStore implements store.CompanyStore using PostgreSQL.
type CompanyStore struct {
	pool *pgxpool.Pool
}

// NewCompanyStore creates a new PostgreSQL-backed company store.
// It shares the connection pool with other stores.
func NewCompanyStore(pool *pgxpool.Pool) *CompanyStore {
	return &CompanyStore{pool: pool}
}

// Create creates a new company in the database.
func (s *CompanyStore) Create(ctx context.Context, company *models.Company) error {
	query := `
		INSERT INTO companies (
			company_id, name, slug, primary_domain, verified_status, claimed_by,
			total_complaints, industry, logo_url, description, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := s.pool.Exec(ctx, query,
		company.CompanyID,
		company.Name,
		company.Slug,
		company.PrimaryDomain,
		company.Verified,
		company.ClaimedBy,
		company.TotalComplaints,
		company.Industry,
		company.LogoURL,
		company.Description,
		company.CreatedAt,
		company.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrCompanyAlreadyExists
		}
		return fmt.Errorf("failed to create company: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("company_id", company.CompanyID.String()).
		Str("slug", company.Slug).
		Msg("Created company")

	return nil
}

// Get retrieves a company by ID.
func (s *CompanyStore) Get(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	return s.getWhere(ctx, "company_id = $1", companyID)
}

// GetBySlug retrieves a company by its URL slug.
func (s *CompanyStore) GetBySlug(ctx context.Context, slug string) (*models.Company, error) {
	return s.getWhere(ctx, "slug = $1", slug)
}

func (s *CompanyStore) getWhere(ctx context.Context, where string, arg any) (*models.Company, error) {
	query := `
		SELECT company_id, name, slug, primary_domain, verified_status, claimed_by,
		       total_complaints, industry, logo_url, description, created_at, updated_at
		FROM companies
		WHERE ` + where

	var company models.Company
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&company.CompanyID,
		&company.Name,
		&company.Slug,
		&company.PrimaryDomain,
		&company.Verified,
		&company.ClaimedBy,
		&company.TotalComplaints,
		&company.Industry,
		&company.LogoURL,
		&company.Description,
		&company.CreatedAt,
		&company.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", mapPostgresError(err))
	}

	return &company, nil
}

// Update updates an existing company.
func (s *CompanyStore) Update(ctx context.Context, company *models.Company) error {
	company.UpdatedAt = time.Now()

	query := `
		UPDATE companies SET
			name = $2,
			slug = $3,
			primary_domain = $4,
			verified_status = $5,
			claimed_by = $6,
			industry = $7,
			logo_url = $8,
			description = $9,
			updated_at = $10
		WHERE company_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		company.CompanyID,
		company.Name,
		company.Slug,
		company.PrimaryDomain,
		company.Verified,
		company.ClaimedBy,
		company.Industry,
		company.LogoURL,
		company.Description,
		company.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update company: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrCompanyNotFound
	}

	return nil
}

// IncrementComplaints bumps the complaint counter for a company.
func (s *CompanyStore) IncrementComplaints(ctx context.Context, companyID uuid.UUID) error {
	query := `
		UPDATE companies SET
			total_complaints = total_complaints + 1,
			updated_at = now()
		WHERE company_id = $1
	`

	result, err := s.pool.Exec(ctx, query, companyID)
	if err != nil {
		return fmt.Errorf("failed to increment complaints: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrCompanyNotFound
	}

	return nil
}
