package models

import (
	"time"

	"github.com/google/uuid"
)

// ComplaintStatus is the lifecycle state of a consumer complaint.
type ComplaintStatus string

const (
	ComplaintStatusOpen     ComplaintStatus = "open"
	ComplaintStatusAnswered ComplaintStatus = "answered"
	ComplaintStatusResolved ComplaintStatus = "resolved"
)

// Complaint is a consumer complaint filed against a company.
type Complaint struct {
	ComplaintID   uuid.UUID `json:"complaint_id"` // UUIDv7
	CompanyID     uuid.UUID `json:"company_id"`
	ConsumerID    uuid.UUID `json:"consumer_id"`
	ConsumerEmail string    `json:"consumer_email"`

	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	Status      ComplaintStatus `json:"status"`

	// Inbox state
	AssignedTo *uuid.UUID      `json:"assigned_to,omitempty"` // member handling the complaint
	Notes      []ComplaintNote `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ComplaintNote is an internal annotation left by a company member.
type ComplaintNote struct {
	AuthorID  uuid.UUID `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
