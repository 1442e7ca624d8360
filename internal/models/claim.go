package models

import (
	"time"

	"github.com/google/uuid"
)

// VerificationMethod describes how a claim requester proves ownership.
type VerificationMethod string

const (
	VerificationMethodDomainEmail    VerificationMethod = "domain_email"
	VerificationMethodDocumentUpload VerificationMethod = "document_upload"
	VerificationMethodEmailCode      VerificationMethod = "email_code"
)

// ClaimStatus is the lifecycle state of a company claim.
// Claims start as submitted and terminate as approved or rejected.
type ClaimStatus string

const (
	ClaimStatusSubmitted ClaimStatus = "submitted"
	ClaimStatusApproved  ClaimStatus = "approved"
	ClaimStatusRejected  ClaimStatus = "rejected"
)

// CompanyClaim is a request by a user to gain ownership of a company
// profile.
type CompanyClaim struct {
	ClaimID        uuid.UUID // UUIDv7
	CompanyID      uuid.UUID // FK to companies
	RequesterID    uuid.UUID
	RequesterEmail string

	Method       VerificationMethod
	EvidenceURLs []string
	Status       ClaimStatus
	Notes        string

	// AuthorizedDeclaration records the requester's attestation that they
	// are authorized to act for the company. Required for submission.
	AuthorizedDeclaration bool

	// One-time email verification code. Stored in dedicated columns with
	// an explicit expiry enforced at confirmation time.
	VerificationCode *string
	CodeExpiresAt    *time.Time

	CreatedAt  time.Time
	ReviewedAt *time.Time
}

// IsTerminal returns true once the claim has been approved or rejected.
func (c *CompanyClaim) IsTerminal() bool {
	return c.Status == ClaimStatusApproved || c.Status == ClaimStatusRejected
}

// CodeExpired reports whether the one-time code is past its validity
// window at the given instant. A claim without a code is treated as
// expired.
func (c *CompanyClaim) CodeExpired(now time.Time) bool {
	if c.VerificationCode == nil || c.CodeExpiresAt == nil {
		return true
	}
	return now.After(*c.CodeExpiresAt)
}
