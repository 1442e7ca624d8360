package models

import "github.com/google/uuid"

// NewID returns a fresh UUIDv7 for model identifiers. V7 IDs sort by
// creation time, which keeps index pages warm in postgres.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
