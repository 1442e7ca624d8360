package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// VerifiedStatus indicates whether a company profile has been verified
// by an approved ownership claim.
type VerifiedStatus string

const (
	VerifiedStatusUnverified VerifiedStatus = "unverified"
	VerifiedStatusVerified   VerifiedStatus = "verified"
)

// Company represents a business profile that complaints are filed against.
// Profiles are created implicitly when a complaint references an unknown
// company, or explicitly during the claim flow.
type Company struct {
	CompanyID     uuid.UUID // UUIDv7
	Name          string
	Slug          string  // unique, derived deterministically from Name
	PrimaryDomain *string // lowercased hostname, nil until known
	Verified      VerifiedStatus
	ClaimedBy     []uuid.UUID // user IDs holding ownership

	TotalComplaints int

	// Display-only attributes
	Industry    string
	LogoURL     *string
	Description *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsVerified returns true if the company has an approved ownership claim.
func (c *Company) IsVerified() bool {
	return c.Verified == VerifiedStatusVerified
}

// HasOwner returns true if userID already appears in the claimed-by set.
func (c *Company) HasOwner(userID uuid.UUID) bool {
	for _, id := range c.ClaimedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Slugify derives the canonical URL-safe slug for a company name.
// The derivation is deterministic so the same name always maps to the
// same slug.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
