package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/reporthere/reporthere/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrCompanyNotFound      = errors.New("company not found")
	ErrCompanyAlreadyExists = errors.New("company already exists")
	ErrClaimNotFound        = errors.New("claim not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrMemberAlreadyExists  = errors.New("member already exists")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrComplaintNotFound    = errors.New("complaint not found")
	ErrMessageNotFound      = errors.New("message not found")
)

// CompanyStore defines storage operations for company profiles.
type CompanyStore interface {
	Create(ctx context.Context, company *models.Company) error
	Get(ctx context.Context, companyID uuid.UUID) (*models.Company, error)
	GetBySlug(ctx context.Context, slug string) (*models.Company, error)
	Update(ctx context.Context, company *models.Company) error

	// IncrementComplaints bumps the complaint counter without racing a
	// full read-modify-write of the row.
	IncrementComplaints(ctx context.Context, companyID uuid.UUID) error
}

// ClaimStore defines storage operations for company ownership claims.
type ClaimStore interface {
	Create(ctx context.Context, claim *models.CompanyClaim) error
	Get(ctx context.Context, claimID uuid.UUID) (*models.CompanyClaim, error)
	Update(ctx context.Context, claim *models.CompanyClaim) error
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.CompanyClaim, error)
}

// MemberStore defines storage operations for company memberships.
// (company_id, user_id) is the primary key; Create returns
// ErrMemberAlreadyExists on duplicates so claim approval stays idempotent.
type MemberStore interface {
	Create(ctx context.Context, member *models.CompanyMember) error
	Get(ctx context.Context, companyID, userID uuid.UUID) (*models.CompanyMember, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.CompanyMember, error)
	CountByCompany(ctx context.Context, companyID uuid.UUID) (int, error)
}

// SubscriptionStore defines storage operations for billing subscriptions.
// The claims workflow only reads; Create exists for provisioning and tests.
type SubscriptionStore interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByCompany(ctx context.Context, companyID uuid.UUID) (*models.Subscription, error)
}

// EventStore defines storage for the append-only platform event log.
type EventStore interface {
	Append(ctx context.Context, event *models.PlatformEvent) error

	// Recent returns events most-recent-first, optionally filtered by type.
	Recent(ctx context.Context, limit int, eventType *models.EventType) ([]*models.PlatformEvent, error)

	// Since returns all events created at or after the given instant,
	// most-recent-first. Used for trailing-window stats.
	Since(ctx context.Context, since time.Time) ([]*models.PlatformEvent, error)
}

// ComplaintStore defines storage operations for consumer complaints.
type ComplaintStore interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	Get(ctx context.Context, complaintID uuid.UUID) (*models.Complaint, error)
	Update(ctx context.Context, complaint *models.Complaint) error
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Complaint, error)
}

// OutboxStore defines the notification outbox queue. Delivery is
// at-most-once: a message transitions pending -> sent | failed and is
// never re-queued after a terminal transition.
type OutboxStore interface {
	Enqueue(ctx context.Context, msg *models.EmailMessage) error
	Get(ctx context.Context, messageID uuid.UUID) (*models.EmailMessage, error)

	// NextPending returns up to limit pending messages, oldest first.
	NextPending(ctx context.Context, limit int) ([]*models.EmailMessage, error)

	MarkSent(ctx context.Context, messageID uuid.UUID, sentAt time.Time) error

	// MarkFailed records a failed attempt. When final is true the message
	// moves to the failed terminal state and will not be retried.
	MarkFailed(ctx context.Context, messageID uuid.UUID, lastError string, final bool) error
}

// Stores bundles the storage interfaces a fully wired server needs.
type Stores struct {
	Companies     CompanyStore
	Claims        ClaimStore
	Members       MemberStore
	Subscriptions SubscriptionStore
	Events        EventStore
	Complaints    ComplaintStore
	Outbox        OutboxStore
}
