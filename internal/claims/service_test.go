package claims

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reporthere/reporthere/internal/billing"
	"github.com/reporthere/reporthere/internal/mail"
	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
	memorystore "github.com/reporthere/reporthere/internal/store/memory"
)

type queuedEmail struct {
	to       string
	template mail.Template
	data     mail.Data
}

type fakeMailer struct {
	queued []queuedEmail
	err    error
}

func (f *fakeMailer) Queue(ctx context.Context, to string, template mail.Template, data mail.Data) error {
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, queuedEmail{to: to, template: template, data: data})
	return nil
}

type fixture struct {
	svc    *Service
	stores *store.Stores
	mailer *fakeMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	stores := &store.Stores{
		Companies:     memorystore.NewCompanyStore(),
		Claims:        memorystore.NewClaimStore(),
		Members:       memorystore.NewMemberStore(),
		Subscriptions: memorystore.NewSubscriptionStore(),
	}
	mailer := &fakeMailer{}

	return &fixture{
		svc:    New(stores.Companies, stores.Claims, stores.Members, stores.Subscriptions, mailer),
		stores: stores,
		mailer: mailer,
	}
}

func (f *fixture) createCompany(t *testing.T, name, domain string) *models.Company {
	t.Helper()

	company := &models.Company{
		CompanyID: models.NewID(),
		Name:      name,
		Slug:      models.Slugify(name),
		Verified:  models.VerifiedStatusUnverified,
		CreatedAt: time.Now(),
	}
	if domain != "" {
		company.PrimaryDomain = &domain
	}
	require.NoError(t, f.stores.Companies.Create(context.Background(), company))
	return company
}

func TestSubmitClaimAutoApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	company := f.createCompany(t, "Acme", "acme.com")
	requester := models.NewID()

	result, err := f.svc.SubmitClaim(ctx, SubmitClaimInput{
		CompanyID:             company.CompanyID,
		RequesterID:           requester,
		RequesterEmail:        "jane@acme.com",
		AuthorizedDeclaration: true,
	})
	require.NoError(t, err)
	require.True(t, result.Approved)
	assert.Equal(t, models.ClaimStatusApproved, result.Claim.Status)
	assert.NotNil(t, result.Claim.ReviewedAt)

	updated, err := f.stores.Companies.Get(ctx, company.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, models.VerifiedStatusVerified, updated.Verified)
	assert.Contains(t, updated.ClaimedBy, requester)

	member, err := f.stores.Members.Get(ctx, company.CompanyID, requester)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, member.Role)
	assert.Equal(t, "jane@acme.com", member.UserEmail)
}

func TestSubmitClaimDomainMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	company := f.createCompany(t, "Acme", "acme.com")
	requester := models.NewID()

	result, err := f.svc.SubmitClaim(ctx, SubmitClaimInput{
		CompanyID:             company.CompanyID,
		RequesterID:           requester,
		RequesterEmail:        "jane@gmail.com",
		AuthorizedDeclaration: true,
	})
	require.NoError(t, err)
	require.False(t, result.Approved)
	assert.Equal(t, models.ClaimStatusSubmitted, result.Claim.Status)

	unchanged, err := f.stores.Companies.Get(ctx, company.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, models.VerifiedStatusUnverified, unchanged.Verified)

	_, err = f.stores.Members.Get(ctx, company.CompanyID, requester)
	assert.ErrorIs(t, err, store.ErrMemberNotFound)
}

func TestSubmitClaimDomainMatchIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	company := f.createCompany(t, "Acme", "acme.com")

	result, err := f.svc.SubmitClaim(ctx, SubmitClaimInput{
		CompanyID:             company.CompanyID,
		RequesterID:           models.NewID(),
		RequesterEmail:        "Jane@ACME.com",
		AuthorizedDeclaration: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Approved)
}

func TestSubmitClaimAlreadyVerifiedCompany(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	company := f.createCompany(t, "Acme", "acme.com")
	company.Verified = models.VerifiedStatusVerified
	require.NoError(t, f.stores.Companies.Update(ctx, company))

	result, err := f.svc.SubmitClaim(ctx, SubmitClaimInput{
		CompanyID:             company.CompanyID,
		RequesterID:           models.NewID(),
		RequesterEmail:        "jane@acme.com",
		AuthorizedDeclaration: true,
	})
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Equal(t, models.ClaimStatusSubmitted, result.Claim.Status)
}

func TestSubmitClaimRequiresDeclaration(t *testing.T) {
	f := newFixture(t)
	company := f.createCompany(t, "Acme", "acme.com")

	_, err := f.svc.SubmitClaim(context.Background(), SubmitClaimInput{
		CompanyID:      company.CompanyID,
		RequesterID:    models.NewID(),
		RequesterEmail: "jane@acme.com",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmitClaimCompanyNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SubmitClaim(context.Background(), SubmitClaimInput{
		CompanyID:             models.NewID(),
		RequesterID:           models.NewID(),
		RequesterEmail:        "jane@acme.com",
		AuthorizedDeclaration: true,
	})
	assert.ErrorIs(t, err, store.ErrCompanyNotFound)
}

func TestSubmitClaimRecordsDomainFromWebsite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	company := f.createCompany(t, "Acme", "")

	result, err := f.svc.SubmitClaim(ctx, SubmitClaimInput{
		CompanyID:             company.CompanyID,
		RequesterID:           models.NewID(),
		RequesterEmail:        "jane@acme.com",
		CompanyWebsite:        "https://www.acme.com/contact",
		AuthorizedDeclaration: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Approved)

	updated, err := f.stores.Companies.Get(ctx, company.CompanyID)
	require.NoError(t, err)
	require.NotNil(t, updated.PrimaryDomain)
	assert.Equal(t, "acme.com", *updated.PrimaryDomain)
}

func TestSubmitClaimWithEvidenceUsesDocumentUpload(t *testing.T) {
	f := newFixture(t)
	company := f.createCompany(t, "Acme", "acme.com")

	result, err := f.svc.SubmitClaim(context.Background(), SubmitClaimInput{
		CompanyID:             company.CompanyID,
		RequesterID:           models.NewID(),
		RequesterEmail:        "jane@gmail.com",
		EvidenceURLs:          []string{"/uploads/abc123.pdf"},
		AuthorizedDeclaration: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationMethodDocumentUpload, result.Claim.Method)
}

func TestApprovalIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	company := f.createCompany(t, "Acme", "acme.com")
	requester := models.NewID()

	claim := &models.CompanyClaim{
		ClaimID:        models.NewID(),
		CompanyID:      company.CompanyID,
		RequesterID:    requester,
		RequesterEmail: "jane@acme.com",
		Status:         models.ClaimStatusSubmitted,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, f.stores.Claims.Create(ctx, claim))

	require.NoError(t, f.svc.approve(ctx, claim, company))

	// Second approval of the same claim must not duplicate the
	// membership.
	claim.Status = models.ClaimStatusSubmitted
	company, err := f.stores.Companies.Get(ctx, company.CompanyID)
	require.NoError(t, err)
	require.NoError(t, f.svc.approve(ctx, claim, company))

	count, err := f.stores.Members.CountByCompany(ctx, company.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	company, err = f.stores.Companies.Get(ctx, company.CompanyID)
	require.NoError(t, err)
	assert.Len(t, company.ClaimedBy, 1)
}

func TestApprovalSeatLimitExceeded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	company := f.createCompany(t, "Acme", "acme.com")
	requester := models.NewID()

	require.NoError(t, f.stores.Subscriptions.Create(ctx, &models.Subscription{
		CompanyID: company.CompanyID,
		Plan:      models.PlanPro,
		Status:    models.SubscriptionStatusActive,
		Seats:     1,
	}))
	require.NoError(t, f.stores.Members.Create(ctx, &models.CompanyMember{
		CompanyID: company.CompanyID,
		UserID:    models.NewID(),
		UserEmail: "existing@acme.com",
		Role:      models.RoleAdmin,
	}))

	result, err := f.svc.SubmitClaim(ctx, SubmitClaimInput{
		CompanyID:             company.CompanyID,
		RequesterID:           requester,
		RequesterEmail:        "jane@acme.com",
		AuthorizedDeclaration: true,
	})
	require.ErrorIs(t, err, billing.ErrSeatLimitExceeded)

	// The claim stays approved and the company verified; only the
	// membership creation is blocked.
	require.True(t, result.Approved)
	assert.Equal(t, models.ClaimStatusApproved, result.Claim.Status)

	verified, err := f.stores.Companies.Get(ctx, company.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, models.VerifiedStatusVerified, verified.Verified)

	_, err = f.stores.Members.Get(ctx, company.CompanyID, requester)
	assert.ErrorIs(t, err, store.ErrMemberNotFound)
}

func TestStartEmailVerification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	company := f.createCompany(t, "Acme", "acme.com")

	claim := &models.CompanyClaim{
		ClaimID:        models.NewID(),
		CompanyID:      company.CompanyID,
		RequesterID:    models.NewID(),
		RequesterEmail: "jane@gmail.com",
		Status:         models.ClaimStatusSubmitted,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, f.stores.Claims.Create(ctx, claim))

	updated, err := f.svc.StartEmailVerification(ctx, claim.ClaimID)
	require.NoError(t, err)

	require.NotNil(t, updated.VerificationCode)
	assert.Len(t, *updated.VerificationCode, 6)
	require.NotNil(t, updated.CodeExpiresAt)
	assert.WithinDuration(t, time.Now().Add(codeValidity), *updated.CodeExpiresAt, 5*time.Second)
	assert.Equal(t, models.VerificationMethodEmailCode, updated.Method)

	require.Len(t, f.mailer.queued, 1)
	assert.Equal(t, "jane@gmail.com", f.mailer.queued[0].to)
	assert.Equal(t, mail.TemplateVerificationCode, f.mailer.queued[0].template)
	assert.Equal(t, *updated.VerificationCode, f.mailer.queued[0].data["code"])
}

func TestConfirmEmailCode(t *testing.T) {
	newClaim := func(t *testing.T, f *fixture, companyID uuid.UUID, code string, expiresAt time.Time) *models.CompanyClaim {
		t.Helper()
		claim := &models.CompanyClaim{
			ClaimID:          models.NewID(),
			CompanyID:        companyID,
			RequesterID:      models.NewID(),
			RequesterEmail:   "jane@gmail.com",
			Method:           models.VerificationMethodEmailCode,
			Status:           models.ClaimStatusSubmitted,
			VerificationCode: &code,
			CodeExpiresAt:    &expiresAt,
			CreatedAt:        time.Now(),
		}
		require.NoError(t, f.stores.Claims.Create(context.Background(), claim))
		return claim
	}

	t.Run("correct code approves claim", func(t *testing.T) {
		ctx := context.Background()
		f := newFixture(t)
		company := f.createCompany(t, "Acme", "acme.com")
		claim := newClaim(t, f, company.CompanyID, "123456", time.Now().Add(codeValidity))

		confirmed, err := f.svc.ConfirmEmailCode(ctx, claim.ClaimID, "123456")
		require.NoError(t, err)
		assert.Equal(t, models.ClaimStatusApproved, confirmed.Status)

		updated, err := f.stores.Companies.Get(ctx, company.CompanyID)
		require.NoError(t, err)
		assert.Equal(t, models.VerifiedStatusVerified, updated.Verified)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		f := newFixture(t)
		company := f.createCompany(t, "Acme", "acme.com")
		claim := newClaim(t, f, company.CompanyID, "123456", time.Now().Add(codeValidity))

		_, err := f.svc.ConfirmEmailCode(context.Background(), claim.ClaimID, "654321")
		assert.ErrorIs(t, err, ErrCodeMismatch)
	})

	t.Run("expired code is rejected", func(t *testing.T) {
		f := newFixture(t)
		company := f.createCompany(t, "Acme", "acme.com")
		claim := newClaim(t, f, company.CompanyID, "123456", time.Now().Add(-time.Minute))

		_, err := f.svc.ConfirmEmailCode(context.Background(), claim.ClaimID, "123456")
		assert.ErrorIs(t, err, ErrCodeExpired)
	})

	t.Run("reviewed claim cannot be confirmed again", func(t *testing.T) {
		ctx := context.Background()
		f := newFixture(t)
		company := f.createCompany(t, "Acme", "acme.com")
		claim := newClaim(t, f, company.CompanyID, "123456", time.Now().Add(codeValidity))

		_, err := f.svc.ConfirmEmailCode(ctx, claim.ClaimID, "123456")
		require.NoError(t, err)

		_, err = f.svc.ConfirmEmailCode(ctx, claim.ClaimID, "123456")
		assert.ErrorIs(t, err, ErrClaimFinished)
	})
}
