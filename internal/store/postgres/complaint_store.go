package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
)

// ComplaintStore implements store.ComplaintStore using PostgreSQL.
// Internal notes are stored as a JSONB array on the complaint row.
type ComplaintStore struct {
	pool *pgxpool.Pool
}

// NewComplaintStore creates a new PostgreSQL-backed complaint store.
func NewComplaintStore(pool *pgxpool.Pool) *ComplaintStore {
	return &ComplaintStore{pool: pool}
}

// Create creates a new complaint in the database.
func (s *ComplaintStore) Create(ctx context.Context, complaint *models.Complaint) error {
	notes, err := json.Marshal(notesOrEmpty(complaint.Notes))
	if err != nil {
		return fmt.Errorf("failed to marshal notes: %w", err)
	}

	query := `
		INSERT INTO complaints (
			complaint_id, company_id, consumer_id, consumer_email, title,
			description, category, status, assigned_to, notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err = s.pool.Exec(ctx, query,
		complaint.ComplaintID,
		complaint.CompanyID,
		complaint.ConsumerID,
		complaint.ConsumerEmail,
		complaint.Title,
		complaint.Description,
		complaint.Category,
		complaint.Status,
		complaint.AssignedTo,
		notes,
		complaint.CreatedAt,
		complaint.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create complaint: %w", mapPostgresError(err))
	}

	return nil
}

// Get retrieves a complaint by ID.
func (s *ComplaintStore) Get(ctx context.Context, complaintID uuid.UUID) (*models.Complaint, error) {
	query := complaintSelect + ` WHERE complaint_id = $1`

	row := s.pool.QueryRow(ctx, query, complaintID)
	complaint, err := scanComplaint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrComplaintNotFound
		}
		return nil, fmt.Errorf("failed to get complaint: %w", mapPostgresError(err))
	}
	return complaint, nil
}

// Update updates an existing complaint.
func (s *ComplaintStore) Update(ctx context.Context, complaint *models.Complaint) error {
	complaint.UpdatedAt = time.Now()

	notes, err := json.Marshal(notesOrEmpty(complaint.Notes))
	if err != nil {
		return fmt.Errorf("failed to marshal notes: %w", err)
	}

	query := `
		UPDATE complaints SET
			title = $2,
			description = $3,
			category = $4,
			status = $5,
			assigned_to = $6,
			notes = $7,
			updated_at = $8
		WHERE complaint_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		complaint.ComplaintID,
		complaint.Title,
		complaint.Description,
		complaint.Category,
		complaint.Status,
		complaint.AssignedTo,
		notes,
		complaint.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update complaint: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrComplaintNotFound
	}

	return nil
}

// ListByCompany returns all complaints against a company, newest first.
func (s *ComplaintStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Complaint, error) {
	query := complaintSelect + ` WHERE company_id = $1 ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var complaints []*models.Complaint
	for rows.Next() {
		complaint, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan complaint: %w", err)
		}
		complaints = append(complaints, complaint)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating complaints: %w", err)
	}

	return complaints, nil
}

const complaintSelect = `
	SELECT complaint_id, company_id, consumer_id, consumer_email, title,
	       description, category, status, assigned_to, notes, created_at, updated_at
	FROM complaints`

func scanComplaint(row pgx.Row) (*models.Complaint, error) {
	var complaint models.Complaint
	var notes []byte
	err := row.Scan(
		&complaint.ComplaintID,
		&complaint.CompanyID,
		&complaint.ConsumerID,
		&complaint.ConsumerEmail,
		&complaint.Title,
		&complaint.Description,
		&complaint.Category,
		&complaint.Status,
		&complaint.AssignedTo,
		&notes,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(notes, &complaint.Notes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notes: %w", err)
	}
	return &complaint, nil
}

func notesOrEmpty(notes []models.ComplaintNote) []models.ComplaintNote {
	if notes == nil {
		return []models.ComplaintNote{}
	}
	return notes
}
