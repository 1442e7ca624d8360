// Package inbox implements complaint filing and the company-side
// complaint inbox: assignment, responses, resolution, internal notes,
// evidence flags and share tracking.
//
// Mutations log a platform event and hand it to the trigger engine.
// Both are side channels: an event log or notification failure is
// logged and the business mutation still succeeds.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/reporthere/reporthere/internal/auth"
	"github.com/reporthere/reporthere/internal/events"
	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
	"github.com/reporthere/reporthere/internal/telemetry"
)

// ErrValidation wraps input validation failures.
var ErrValidation = errors.New("validation failed")

// Triggers is the notification hook consulted after each logged event.
type Triggers interface {
	ProcessTriggers(ctx context.Context, eventType models.EventType, data map[string]any)
}

// Service is the complaint inbox.
type Service struct {
	companies  store.CompanyStore
	complaints store.ComplaintStore
	members    store.MemberStore
	events     *events.Service
	triggers   Triggers
}

// New creates the inbox service.
func New(companies store.CompanyStore, complaints store.ComplaintStore, members store.MemberStore, ev *events.Service, triggers Triggers) *Service {
	return &Service{
		companies:  companies,
		complaints: complaints,
		members:    members,
		events:     ev,
		triggers:   triggers,
	}
}

// FileComplaintRequest carries the consumer's submission.
type FileComplaintRequest struct {
	CompanyName   string
	ConsumerID    uuid.UUID
	ConsumerEmail string
	Title         string
	Description   string
	Category      string
}

// FileComplaint records a consumer complaint. The target company is
// looked up by slug and created on the fly when unknown, so complaints
// can be filed against companies that have never registered.
func (s *Service) FileComplaint(ctx context.Context, req FileComplaintRequest) (*models.Complaint, error) {
	if strings.TrimSpace(req.CompanyName) == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrValidation)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	company, err := s.resolveCompany(ctx, req.CompanyName)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	complaint := &models.Complaint{
		ComplaintID:   models.NewID(),
		CompanyID:     company.CompanyID,
		ConsumerID:    req.ConsumerID,
		ConsumerEmail: req.ConsumerEmail,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Status:        models.ComplaintStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, fmt.Errorf("failed to store complaint: %w", err)
	}

	telemetry.GetMetrics().ComplaintsFiledTotal.Add(ctx, 1)

	if err := s.companies.IncrementComplaints(ctx, company.CompanyID); err != nil {
		log.Warn().Err(err).
			Str("company_id", company.CompanyID.String()).
			Msg("Failed to bump complaint counter")
	}

	s.emit(ctx, models.EventComplaintCreated, map[string]any{
		"complaint_id":   complaint.ComplaintID,
		"company_id":     company.CompanyID,
		"company_name":   company.Name,
		"title":          complaint.Title,
		"description":    complaint.Description,
		"consumer_email": complaint.ConsumerEmail,
	}, &req.ConsumerID)

	return complaint, nil
}

// Assign puts a complaint on a member's desk. Requires admin.
func (s *Service) Assign(ctx context.Context, actor uuid.UUID, complaintID, assigneeID uuid.UUID) (*models.Complaint, error) {
	complaint, err := s.authorize(ctx, actor, complaintID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if _, err := s.members.Get(ctx, complaint.CompanyID, assigneeID); err != nil {
		return nil, fmt.Errorf("assignee is not a member of the company: %w", err)
	}

	complaint.AssignedTo = &assigneeID
	complaint.UpdatedAt = time.Now()
	if err := s.complaints.Update(ctx, complaint); err != nil {
		return nil, fmt.Errorf("failed to update complaint: %w", err)
	}

	log.Info().
		Str("complaint_id", complaintID.String()).
		Str("assignee_id", assigneeID.String()).
		Msg("Complaint assigned")

	return complaint, nil
}

// Respond posts the company's public reply and marks the complaint
// answered. Requires agent.
func (s *Service) Respond(ctx context.Context, actor uuid.UUID, complaintID uuid.UUID, reply string) (*models.Complaint, error) {
	if strings.TrimSpace(reply) == "" {
		return nil, fmt.Errorf("%w: reply body is required", ErrValidation)
	}

	complaint, err := s.authorize(ctx, actor, complaintID, models.RoleAgent)
	if err != nil {
		return nil, err
	}

	company, err := s.companies.Get(ctx, complaint.CompanyID)
	if err != nil {
		return nil, err
	}

	complaint.Status = models.ComplaintStatusAnswered
	complaint.UpdatedAt = time.Now()
	if err := s.complaints.Update(ctx, complaint); err != nil {
		return nil, fmt.Errorf("failed to update complaint: %w", err)
	}

	s.emit(ctx, models.EventCompanyReplied, map[string]any{
		"complaint_id":   complaint.ComplaintID,
		"company_id":     company.CompanyID,
		"company_name":   company.Name,
		"title":          complaint.Title,
		"reply":          reply,
		"consumer_email": complaint.ConsumerEmail,
	}, &actor)

	return complaint, nil
}

// Resolve closes out a complaint. Requires agent.
func (s *Service) Resolve(ctx context.Context, actor uuid.UUID, complaintID uuid.UUID) (*models.Complaint, error) {
	complaint, err := s.authorize(ctx, actor, complaintID, models.RoleAgent)
	if err != nil {
		return nil, err
	}

	company, err := s.companies.Get(ctx, complaint.CompanyID)
	if err != nil {
		return nil, err
	}

	complaint.Status = models.ComplaintStatusResolved
	complaint.UpdatedAt = time.Now()
	if err := s.complaints.Update(ctx, complaint); err != nil {
		return nil, fmt.Errorf("failed to update complaint: %w", err)
	}

	s.emit(ctx, models.EventComplaintResolved, map[string]any{
		"complaint_id":   complaint.ComplaintID,
		"company_id":     company.CompanyID,
		"company_name":   company.Name,
		"title":          complaint.Title,
		"consumer_email": complaint.ConsumerEmail,
	}, &actor)

	return complaint, nil
}

// Annotate attaches an internal note visible only to company members.
// Requires agent.
func (s *Service) Annotate(ctx context.Context, actor uuid.UUID, complaintID uuid.UUID, body string) (*models.Complaint, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: note body is required", ErrValidation)
	}

	complaint, err := s.authorize(ctx, actor, complaintID, models.RoleAgent)
	if err != nil {
		return nil, err
	}

	complaint.Notes = append(complaint.Notes, models.ComplaintNote{
		AuthorID:  actor,
		Body:      body,
		CreatedAt: time.Now(),
	})
	complaint.UpdatedAt = time.Now()
	if err := s.complaints.Update(ctx, complaint); err != nil {
		return nil, fmt.Errorf("failed to update complaint: %w", err)
	}

	return complaint, nil
}

// FlagEvidence marks a complaint attachment for moderator review.
// Requires agent.
func (s *Service) FlagEvidence(ctx context.Context, actor uuid.UUID, complaintID uuid.UUID, reason string) error {
	complaint, err := s.authorize(ctx, actor, complaintID, models.RoleAgent)
	if err != nil {
		return err
	}

	s.emit(ctx, models.EventEvidenceFlagged, map[string]any{
		"complaint_id": complaint.ComplaintID,
		"company_id":   complaint.CompanyID,
		"title":        complaint.Title,
		"reason":       reason,
	}, &actor)

	return nil
}

// Share records that a complaint was shared publicly. Sharing is open
// to any authenticated user and produces no email.
func (s *Service) Share(ctx context.Context, actor uuid.UUID, complaintID uuid.UUID, channel string) error {
	complaint, err := s.complaints.Get(ctx, complaintID)
	if err != nil {
		return err
	}

	s.emit(ctx, models.EventComplaintShared, map[string]any{
		"complaint_id": complaint.ComplaintID,
		"company_id":   complaint.CompanyID,
		"title":        complaint.Title,
		"channel":      channel,
	}, &actor)

	return nil
}

// Get returns a complaint by ID.
func (s *Service) Get(ctx context.Context, complaintID uuid.UUID) (*models.Complaint, error) {
	return s.complaints.Get(ctx, complaintID)
}

// ListByCompany returns a company's complaints.
func (s *Service) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*models.Complaint, error) {
	return s.complaints.ListByCompany(ctx, companyID)
}

// authorize loads the complaint and checks that the actor's membership
// in its company meets the minimum role. A missing membership counts as
// viewer and is denied for any higher minimum.
func (s *Service) authorize(ctx context.Context, actor uuid.UUID, complaintID uuid.UUID, min models.Role) (*models.Complaint, error) {
	complaint, err := s.complaints.Get(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	var role models.Role
	member, err := s.members.Get(ctx, complaint.CompanyID, actor)
	switch {
	case err == nil:
		role = member.Role
	case errors.Is(err, store.ErrMemberNotFound):
		role = ""
	default:
		return nil, err
	}

	if err := auth.RequireCompanyRole(role, min); err != nil {
		return nil, err
	}
	return complaint, nil
}

// resolveCompany finds the named company by slug, creating an
// unverified profile when it does not exist yet. Names that slugify to
// nothing are rejected; otherwise every all-symbol name would collide
// on the empty slug.
func (s *Service) resolveCompany(ctx context.Context, name string) (*models.Company, error) {
	slug := models.Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("%w: company name %q has no usable characters", ErrValidation, name)
	}

	company, err := s.companies.GetBySlug(ctx, slug)
	if err == nil {
		return company, nil
	}
	if !errors.Is(err, store.ErrCompanyNotFound) {
		return nil, err
	}

	now := time.Now()
	company = &models.Company{
		CompanyID: models.NewID(),
		Name:      name,
		Slug:      slug,
		Verified:  models.VerifiedStatusUnverified,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.companies.Create(ctx, company); err != nil {
		// Lost a race with a concurrent filer; re-read the winner.
		if errors.Is(err, store.ErrCompanyAlreadyExists) {
			return s.companies.GetBySlug(ctx, slug)
		}
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	log.Info().
		Str("company_id", company.CompanyID.String()).
		Str("slug", slug).
		Msg("Created company profile from complaint")

	return company, nil
}

// emit logs the event and runs notification triggers. Both are
// best-effort.
func (s *Service) emit(ctx context.Context, eventType models.EventType, data map[string]any, userID *uuid.UUID) {
	if _, err := s.events.Log(ctx, eventType, data, userID); err != nil {
		log.Warn().Err(err).
			Str("event_type", string(eventType)).
			Msg("Failed to log platform event")
	}
	if s.triggers != nil {
		s.triggers.ProcessTriggers(ctx, eventType, data)
	}
}
