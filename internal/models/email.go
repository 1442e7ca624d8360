package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailStatus is the delivery state of an outbox message.
type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

// EmailMessage is a row in the notification outbox. Messages are queued
// by the trigger engine and delivered by the outbox worker with an
// at-most-once contract: once a message is marked sent it is never
// redelivered.
type EmailMessage struct {
	MessageID uuid.UUID // UUIDv7
	To        string
	Subject   string
	HTML      string
	Template  string

	Status    EmailStatus
	Attempts  int
	LastError string

	CreatedAt time.Time
	SentAt    *time.Time
}
