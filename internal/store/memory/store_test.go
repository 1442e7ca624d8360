package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
)

func newCompany(name string) *models.Company {
	return &models.Company{
		CompanyID: models.NewID(),
		Name:      name,
		Slug:      models.Slugify(name),
		Verified:  models.VerifiedStatusUnverified,
		CreatedAt: time.Now(),
	}
}

func TestCompanyStoreSlugUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewCompanyStore()

	require.NoError(t, s.Create(ctx, newCompany("Acme")))

	err := s.Create(ctx, newCompany("Acme"))
	assert.ErrorIs(t, err, store.ErrCompanyAlreadyExists)
}

func TestCompanyStoreGetBySlug(t *testing.T) {
	ctx := context.Background()
	s := NewCompanyStore()
	company := newCompany("Acme Rockets")
	require.NoError(t, s.Create(ctx, company))

	got, err := s.GetBySlug(ctx, "acme-rockets")
	require.NoError(t, err)
	assert.Equal(t, company.CompanyID, got.CompanyID)

	_, err = s.GetBySlug(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrCompanyNotFound)
}

func TestCompanyStoreCloneSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewCompanyStore()
	company := newCompany("Acme")
	require.NoError(t, s.Create(ctx, company))

	// Mutating a read result must not leak into the store.
	got, err := s.Get(ctx, company.CompanyID)
	require.NoError(t, err)
	got.Name = "Mutated"
	got.ClaimedBy = append(got.ClaimedBy, models.NewID())

	again, err := s.Get(ctx, company.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.Name)
	assert.Empty(t, again.ClaimedBy)
}

func TestCompanyStoreIncrementComplaints(t *testing.T) {
	ctx := context.Background()
	s := NewCompanyStore()
	company := newCompany("Acme")
	require.NoError(t, s.Create(ctx, company))

	require.NoError(t, s.IncrementComplaints(ctx, company.CompanyID))
	require.NoError(t, s.IncrementComplaints(ctx, company.CompanyID))

	got, err := s.Get(ctx, company.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalComplaints)

	assert.ErrorIs(t, s.IncrementComplaints(ctx, models.NewID()), store.ErrCompanyNotFound)
}

func TestMemberStoreDuplicateCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemberStore()
	companyID := models.NewID()
	userID := models.NewID()

	member := &models.CompanyMember{
		CompanyID: companyID,
		UserID:    userID,
		UserEmail: "jane@acme.com",
		Role:      models.RoleOwner,
	}
	require.NoError(t, s.Create(ctx, member))
	assert.ErrorIs(t, s.Create(ctx, member), store.ErrMemberAlreadyExists)

	count, err := s.CountByCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClaimStoreListByCompany(t *testing.T) {
	ctx := context.Background()
	s := NewClaimStore()
	companyID := models.NewID()

	for range 2 {
		require.NoError(t, s.Create(ctx, &models.CompanyClaim{
			ClaimID:   models.NewID(),
			CompanyID: companyID,
			Status:    models.ClaimStatusSubmitted,
			CreatedAt: time.Now(),
		}))
	}
	require.NoError(t, s.Create(ctx, &models.CompanyClaim{
		ClaimID:   models.NewID(),
		CompanyID: models.NewID(),
		Status:    models.ClaimStatusSubmitted,
		CreatedAt: time.Now(),
	}))

	claims, err := s.ListByCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Len(t, claims, 2)
}

func TestOutboxStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewOutboxStore()

	msg := &models.EmailMessage{
		MessageID: models.NewID(),
		To:        "jane@gmail.com",
		Subject:   "hello",
		Status:    models.EmailStatusPending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.Enqueue(ctx, msg))

	pending, err := s.NextPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.MarkFailed(ctx, msg.MessageID, "timeout", false))

	// A non-final failure keeps the message pending.
	pending, err = s.NextPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "timeout", pending[0].LastError)

	require.NoError(t, s.MarkSent(ctx, msg.MessageID, time.Now()))

	pending, err = s.NextPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	got, err := s.Get(ctx, msg.MessageID)
	require.NoError(t, err)
	assert.Equal(t, models.EmailStatusSent, got.Status)
	assert.NotNil(t, got.SentAt)
}

func TestSubscriptionStoreGetByCompany(t *testing.T) {
	ctx := context.Background()
	s := NewSubscriptionStore()
	companyID := models.NewID()

	_, err := s.GetByCompany(ctx, companyID)
	assert.ErrorIs(t, err, store.ErrSubscriptionNotFound)

	require.NoError(t, s.Create(ctx, &models.Subscription{
		SubscriptionID: models.NewID(),
		CompanyID:      companyID,
		Plan:           models.PlanPro,
		Status:         models.SubscriptionStatusActive,
		Seats:          5,
	}))

	sub, err := s.GetByCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, 5, sub.Seats)
}
