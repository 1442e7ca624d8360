// Package claims implements the company ownership claim workflow:
// deciding whether a claim auto-approves, running the emailed one-time
// code flow, and performing the company/claim/membership mutations that
// follow an approval.
package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/reporthere/reporthere/internal/billing"
	"github.com/reporthere/reporthere/internal/mail"
	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
	"github.com/reporthere/reporthere/internal/telemetry"
)

// Sentinel errors surfaced to callers.
var (
	ErrValidation    = errors.New("validation failed")
	ErrCodeMismatch  = errors.New("verification code does not match")
	ErrCodeExpired   = errors.New("verification code expired")
	ErrClaimFinished = errors.New("claim already reviewed")
)

// codeValidity is the window during which an emailed one-time code can
// be redeemed. Enforced at confirmation time against the stored expiry.
const codeValidity = 15 * time.Minute

// Mailer queues a templated email for delivery. Implemented by the
// notification outbox.
type Mailer interface {
	Queue(ctx context.Context, to string, template mail.Template, data mail.Data) error
}

// Service runs the claim verification workflow.
type Service struct {
	companies     store.CompanyStore
	claims        store.ClaimStore
	members       store.MemberStore
	subscriptions store.SubscriptionStore
	mailer        Mailer
}

// New creates a claim verification service. All state lives behind the
// store interfaces; the service holds no authoritative copies.
func New(
	companies store.CompanyStore,
	claims store.ClaimStore,
	members store.MemberStore,
	subscriptions store.SubscriptionStore,
	mailer Mailer,
) *Service {
	return &Service{
		companies:     companies,
		claims:        claims,
		members:       members,
		subscriptions: subscriptions,
		mailer:        mailer,
	}
}

// SubmitClaimInput is a request to claim a company profile.
type SubmitClaimInput struct {
	CompanyID      uuid.UUID
	RequesterID    uuid.UUID
	RequesterEmail string

	// CompanyWebsite optionally supplies the company's website when the
	// profile has no primary domain recorded yet.
	CompanyWebsite string

	EvidenceURLs []string

	// AuthorizedDeclaration is the requester's attestation that they are
	// authorized to represent the company. Required.
	AuthorizedDeclaration bool
}

// SubmitClaimResult reports what the workflow decided.
type SubmitClaimResult struct {
	Claim *models.CompanyClaim

	// Approved is true when the domain-match rule auto-approved the
	// claim. False means the claim awaits manual review.
	Approved bool
}

// SubmitClaim creates a claim and auto-approves it when the requester's
// email domain matches the company's primary domain and the company is
// not already verified. Otherwise the claim is left submitted for
// manual review and no company or membership mutation occurs.
//
// The approval sequence is not transactional: a seat-limit denial after
// the claim is approved leaves the claim approved and the company
// verified, returns billing.ErrSeatLimitExceeded, and creates no
// membership. That partial-failure policy is deliberate.
func (s *Service) SubmitClaim(ctx context.Context, input SubmitClaimInput) (*SubmitClaimResult, error) {
	if !input.AuthorizedDeclaration {
		return nil, fmt.Errorf("%w: authorized declaration is required", ErrValidation)
	}
	if input.RequesterEmail == "" {
		return nil, fmt.Errorf("%w: requester email is required", ErrValidation)
	}

	company, err := s.companies.Get(ctx, input.CompanyID)
	if err != nil {
		return nil, err
	}

	// Record the primary domain when the profile lacks one and the
	// requester supplied a website.
	if company.PrimaryDomain == nil && input.CompanyWebsite != "" {
		if domain, ok := DomainFromWebsite(input.CompanyWebsite); ok {
			company.PrimaryDomain = &domain
			if err := s.companies.Update(ctx, company); err != nil {
				return nil, fmt.Errorf("failed to record primary domain: %w", err)
			}
		}
	}

	method := models.VerificationMethodDomainEmail
	if len(input.EvidenceURLs) > 0 {
		method = models.VerificationMethodDocumentUpload
	}

	now := time.Now()
	claim := &models.CompanyClaim{
		ClaimID:               models.NewID(),
		CompanyID:             company.CompanyID,
		RequesterID:           input.RequesterID,
		RequesterEmail:        input.RequesterEmail,
		Method:                method,
		EvidenceURLs:          input.EvidenceURLs,
		Status:                models.ClaimStatusSubmitted,
		AuthorizedDeclaration: true,
		CreatedAt:             now,
	}

	if err := s.claims.Create(ctx, claim); err != nil {
		// Storage failure aborts before any further mutation.
		return nil, err
	}

	telemetry.GetMetrics().ClaimsSubmittedTotal.Add(ctx, 1)

	if !domainsMatch(input.RequesterEmail, company.PrimaryDomain) || company.IsVerified() {
		log.Info().
			Str("claim_id", claim.ClaimID.String()).
			Str("company_id", company.CompanyID.String()).
			Msg("Claim submitted for manual review")
		return &SubmitClaimResult{Claim: claim, Approved: false}, nil
	}

	if err := s.approve(ctx, claim, company); err != nil {
		return &SubmitClaimResult{Claim: claim, Approved: true}, err
	}

	return &SubmitClaimResult{Claim: claim, Approved: true}, nil
}

// StartEmailVerification generates a one-time numeric code for the
// claim, stores it with its expiry, and queues the verification email.
func (s *Service) StartEmailVerification(ctx context.Context, claimID uuid.UUID) (*models.CompanyClaim, error) {
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.IsTerminal() {
		return nil, ErrClaimFinished
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	expires := time.Now().Add(codeValidity)
	claim.Method = models.VerificationMethodEmailCode
	claim.VerificationCode = &code
	claim.CodeExpiresAt = &expires

	if err := s.claims.Update(ctx, claim); err != nil {
		return nil, err
	}

	err = s.mailer.Queue(ctx, claim.RequesterEmail, mail.TemplateVerificationCode, mail.Data{
		"code":            code,
		"expires_minutes": int(codeValidity.Minutes()),
	})
	if err != nil {
		// Queueing is best-effort; the code can be re-requested.
		log.Warn().Err(err).
			Str("claim_id", claim.ClaimID.String()).
			Msg("Failed to queue verification code email")
	}

	return claim, nil
}

// ConfirmEmailCode redeems a one-time code. The code must match exactly
// and be inside its validity window. On success the claim is approved,
// the company verified, and ownership granted to the requester.
func (s *Service) ConfirmEmailCode(ctx context.Context, claimID uuid.UUID, code string) (*models.CompanyClaim, error) {
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.IsTerminal() {
		return nil, ErrClaimFinished
	}

	if claim.CodeExpired(time.Now()) {
		return nil, ErrCodeExpired
	}
	if code == "" || *claim.VerificationCode != code {
		return nil, ErrCodeMismatch
	}

	company, err := s.companies.Get(ctx, claim.CompanyID)
	if err != nil {
		return nil, err
	}

	if err := s.approve(ctx, claim, company); err != nil {
		return claim, err
	}

	return claim, nil
}

// approve transitions the claim to approved, marks the company
// verified with the requester in the claimed-by set, and creates the
// owner membership subject to the seat-limit guard. Each step is a
// separate store call; the existence check before membership creation
// is a best-effort race mitigation, not a guarantee.
func (s *Service) approve(ctx context.Context, claim *models.CompanyClaim, company *models.Company) error {
	now := time.Now()
	claim.Status = models.ClaimStatusApproved
	claim.ReviewedAt = &now

	if err := s.claims.Update(ctx, claim); err != nil {
		return err
	}

	company.Verified = models.VerifiedStatusVerified
	if !company.HasOwner(claim.RequesterID) {
		company.ClaimedBy = append(company.ClaimedBy, claim.RequesterID)
	}
	if err := s.companies.Update(ctx, company); err != nil {
		return err
	}

	telemetry.GetMetrics().ClaimsApprovedTotal.Add(ctx, 1)

	log.Info().
		Str("claim_id", claim.ClaimID.String()).
		Str("company_id", company.CompanyID.String()).
		Str("method", string(claim.Method)).
		Msg("Claim approved")

	// Seat-limit guard. Verification has already succeeded; a denial
	// here only blocks membership creation.
	sub, err := s.subscriptions.GetByCompany(ctx, company.CompanyID)
	if err != nil {
		if !errors.Is(err, store.ErrSubscriptionNotFound) {
			return err
		}
		sub = nil
	}

	count, err := s.members.CountByCompany(ctx, company.CompanyID)
	if err != nil {
		return err
	}

	if !billing.WithinSeatLimit(sub, count+1) {
		return fmt.Errorf("%w: company %s is at capacity", billing.ErrSeatLimitExceeded, company.CompanyID)
	}

	// Existence check keeps repeated approval from duplicating rows.
	_, err = s.members.Get(ctx, company.CompanyID, claim.RequesterID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrMemberNotFound) {
		return err
	}

	member := &models.CompanyMember{
		CompanyID:  company.CompanyID,
		UserID:     claim.RequesterID,
		UserEmail:  claim.RequesterEmail,
		Role:       models.RoleOwner,
		InvitedAt:  now,
		AcceptedAt: now,
	}
	if err := s.members.Create(ctx, member); err != nil {
		if errors.Is(err, store.ErrMemberAlreadyExists) {
			// Lost a race with a concurrent approval; the membership
			// exists, which is the outcome we wanted.
			return nil
		}
		return err
	}

	return nil
}
