package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a platform occurrence recorded in the event log.
type EventType string

const (
	EventComplaintCreated  EventType = "complaint_created"
	EventCompanyReplied    EventType = "company_replied"
	EventEvidenceFlagged   EventType = "evidence_flagged"
	EventComplaintShared   EventType = "complaint_shared"
	EventComplaintResolved EventType = "complaint_resolved"
	EventCompanyClaimed    EventType = "company_claimed"
)

// PlatformEvent is an immutable log record. Rows are append-only; the
// core never mutates or deletes them.
type PlatformEvent struct {
	EventID   uuid.UUID       `json:"event_id"` // UUIDv7
	Type      EventType       `json:"event_type"`
	Data      json.RawMessage `json:"event_data,omitempty"` // payload specific to the event type
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
