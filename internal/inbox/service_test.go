package inbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reporthere/reporthere/internal/auth"
	"github.com/reporthere/reporthere/internal/events"
	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
	memorystore "github.com/reporthere/reporthere/internal/store/memory"
)

type recordedTrigger struct {
	eventType models.EventType
	data      map[string]any
}

type fakeTriggers struct {
	mu       sync.Mutex
	received []recordedTrigger
}

func (f *fakeTriggers) ProcessTriggers(ctx context.Context, eventType models.EventType, data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, recordedTrigger{eventType: eventType, data: data})
}

type fixture struct {
	svc      *Service
	stores   *store.Stores
	triggers *fakeTriggers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	stores := &store.Stores{
		Companies:  memorystore.NewCompanyStore(),
		Complaints: memorystore.NewComplaintStore(),
		Members:    memorystore.NewMemberStore(),
		Events:     memorystore.NewEventStore(),
	}
	triggers := &fakeTriggers{}

	return &fixture{
		svc:      New(stores.Companies, stores.Complaints, stores.Members, events.New(stores.Events), triggers),
		stores:   stores,
		triggers: triggers,
	}
}

func (f *fixture) addMember(t *testing.T, companyID uuid.UUID, role models.Role) uuid.UUID {
	t.Helper()

	userID := models.NewID()
	require.NoError(t, f.stores.Members.Create(context.Background(), &models.CompanyMember{
		CompanyID: companyID,
		UserID:    userID,
		UserEmail: string(role) + "@acme.com",
		Role:      role,
	}))
	return userID
}

func (f *fixture) fileComplaint(t *testing.T) *models.Complaint {
	t.Helper()

	complaint, err := f.svc.FileComplaint(context.Background(), FileComplaintRequest{
		CompanyName:   "Acme",
		ConsumerID:    models.NewID(),
		ConsumerEmail: "jane@gmail.com",
		Title:         "Broken widget",
		Description:   "The widget arrived broken.",
	})
	require.NoError(t, err)
	return complaint
}

func TestFileComplaintCreatesCompany(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	complaint := f.fileComplaint(t)
	assert.Equal(t, models.ComplaintStatusOpen, complaint.Status)

	company, err := f.stores.Companies.GetBySlug(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", company.Name)
	assert.Equal(t, models.VerifiedStatusUnverified, company.Verified)
	assert.Equal(t, 1, company.TotalComplaints)
	assert.Equal(t, company.CompanyID, complaint.CompanyID)

	require.Len(t, f.triggers.received, 1)
	assert.Equal(t, models.EventComplaintCreated, f.triggers.received[0].eventType)
	assert.Equal(t, "jane@gmail.com", f.triggers.received[0].data["consumer_email"])
}

func TestFileComplaintReusesCompany(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first := f.fileComplaint(t)
	second := f.fileComplaint(t)
	assert.Equal(t, first.CompanyID, second.CompanyID)

	company, err := f.stores.Companies.Get(ctx, first.CompanyID)
	require.NoError(t, err)
	assert.Equal(t, 2, company.TotalComplaints)
}

func TestFileComplaintValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FileComplaint(context.Background(), FileComplaintRequest{
		CompanyName: "Acme",
		ConsumerID:  models.NewID(),
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.FileComplaint(context.Background(), FileComplaintRequest{
		Title:      "Broken widget",
		ConsumerID: models.NewID(),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFileComplaintRejectsUnusableCompanyName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// All-symbol names slugify to nothing and must not share a profile.
	for _, name := range []string{"!!!", "@#$%", "---"} {
		_, err := f.svc.FileComplaint(ctx, FileComplaintRequest{
			CompanyName:   name,
			ConsumerID:    models.NewID(),
			ConsumerEmail: "jane@gmail.com",
			Title:         "Broken widget",
		})
		assert.ErrorIs(t, err, ErrValidation, name)
	}

	_, err := f.stores.Companies.GetBySlug(ctx, "")
	assert.ErrorIs(t, err, store.ErrCompanyNotFound)
}

func TestRespond(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	complaint := f.fileComplaint(t)
	agent := f.addMember(t, complaint.CompanyID, models.RoleAgent)

	updated, err := f.svc.Respond(ctx, agent, complaint.ComplaintID, "We are sorry, a replacement is on the way.")
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusAnswered, updated.Status)

	last := f.triggers.received[len(f.triggers.received)-1]
	assert.Equal(t, models.EventCompanyReplied, last.eventType)
	assert.Equal(t, "jane@gmail.com", last.data["consumer_email"])
}

func TestRespondRequiresAgentRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	complaint := f.fileComplaint(t)
	viewer := f.addMember(t, complaint.CompanyID, models.RoleViewer)

	_, err := f.svc.Respond(ctx, viewer, complaint.ComplaintID, "hi")
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)

	// A user with no membership at all is denied too.
	_, err = f.svc.Respond(ctx, models.NewID(), complaint.ComplaintID, "hi")
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)
}

func TestAssignRequiresAdminRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	complaint := f.fileComplaint(t)
	agent := f.addMember(t, complaint.CompanyID, models.RoleAgent)
	admin := f.addMember(t, complaint.CompanyID, models.RoleAdmin)

	_, err := f.svc.Assign(ctx, agent, complaint.ComplaintID, agent)
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)

	updated, err := f.svc.Assign(ctx, admin, complaint.ComplaintID, agent)
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, agent, *updated.AssignedTo)
}

func TestAssignRejectsNonMemberAssignee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	complaint := f.fileComplaint(t)
	admin := f.addMember(t, complaint.CompanyID, models.RoleAdmin)

	_, err := f.svc.Assign(ctx, admin, complaint.ComplaintID, models.NewID())
	assert.ErrorIs(t, err, store.ErrMemberNotFound)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	complaint := f.fileComplaint(t)
	agent := f.addMember(t, complaint.CompanyID, models.RoleAgent)

	updated, err := f.svc.Resolve(ctx, agent, complaint.ComplaintID)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusResolved, updated.Status)

	last := f.triggers.received[len(f.triggers.received)-1]
	assert.Equal(t, models.EventComplaintResolved, last.eventType)
}

func TestAnnotate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	complaint := f.fileComplaint(t)
	agent := f.addMember(t, complaint.CompanyID, models.RoleAgent)

	before := time.Now()
	updated, err := f.svc.Annotate(ctx, agent, complaint.ComplaintID, "called the consumer, awaiting photos")
	require.NoError(t, err)

	require.Len(t, updated.Notes, 1)
	assert.Equal(t, agent, updated.Notes[0].AuthorID)
	assert.Equal(t, "called the consumer, awaiting photos", updated.Notes[0].Body)
	assert.False(t, updated.Notes[0].CreatedAt.Before(before))
}

func TestFlagEvidence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	complaint := f.fileComplaint(t)
	agent := f.addMember(t, complaint.CompanyID, models.RoleAgent)

	require.NoError(t, f.svc.FlagEvidence(ctx, agent, complaint.ComplaintID, "looks doctored"))

	last := f.triggers.received[len(f.triggers.received)-1]
	assert.Equal(t, models.EventEvidenceFlagged, last.eventType)
	assert.Equal(t, "looks doctored", last.data["reason"])
}

func TestShareNeedsNoMembership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	complaint := f.fileComplaint(t)

	require.NoError(t, f.svc.Share(ctx, models.NewID(), complaint.ComplaintID, "twitter"))

	last := f.triggers.received[len(f.triggers.received)-1]
	assert.Equal(t, models.EventComplaintShared, last.eventType)
	assert.Equal(t, "twitter", last.data["channel"])
}

func TestEventsAreLoggedForMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	complaint := f.fileComplaint(t)
	agent := f.addMember(t, complaint.CompanyID, models.RoleAgent)

	_, err := f.svc.Respond(ctx, agent, complaint.ComplaintID, "sorry")
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, agent, complaint.ComplaintID)
	require.NoError(t, err)

	logged, err := f.stores.Events.Recent(ctx, 10, nil)
	require.NoError(t, err)
	require.Len(t, logged, 3)

	// Most-recent-first ordering.
	assert.Equal(t, models.EventComplaintResolved, logged[0].Type)
	assert.Equal(t, models.EventCompanyReplied, logged[1].Type)
	assert.Equal(t, models.EventComplaintCreated, logged[2].Type)
}
