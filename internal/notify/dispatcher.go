package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/reporthere/reporthere/internal/mail"
	"github.com/reporthere/reporthere/internal/models"
	"github.com/reporthere/reporthere/internal/store"
)

// Queuer enqueues a rendered email for delivery.
type Queuer interface {
	Queue(ctx context.Context, to string, template mail.Template, data mail.Data) error
}

// Dispatcher routes platform events to templated emails. Dispatch is
// stateless and single-shot: each event selects exactly one handler,
// and failures are logged but never surfaced to the business action
// that emitted the event.
type Dispatcher struct {
	outbox     Queuer
	members    store.MemberStore
	adminEmail string
}

// NewDispatcher creates a trigger engine. adminEmail is the moderation
// address used for flagged-evidence alerts.
func NewDispatcher(outbox Queuer, members store.MemberStore, adminEmail string) *Dispatcher {
	return &Dispatcher{
		outbox:     outbox,
		members:    members,
		adminEmail: adminEmail,
	}
}

// ProcessTriggers consumes one event and queues the matching email, if
// any. Unknown event types are ignored.
func (d *Dispatcher) ProcessTriggers(ctx context.Context, eventType models.EventType, data map[string]any) {
	switch eventType {
	case models.EventComplaintCreated:
		d.notifyCompanyContact(ctx, mail.TemplateComplaintCreated, data)
	case models.EventCompanyReplied:
		d.notifyConsumer(ctx, mail.TemplateCompanyReplied, data)
	case models.EventEvidenceFlagged:
		d.queue(ctx, d.adminEmail, mail.TemplateEvidenceFlagged, data)
	case models.EventComplaintResolved:
		d.notifyConsumer(ctx, mail.TemplateComplaintResolved, data)
	case models.EventCompanyClaimed:
		d.notifyRequester(ctx, mail.TemplateClaimApproved, data)
	case models.EventComplaintShared:
		log.Info().
			Interface("data", data).
			Msg("Complaint shared")
	default:
		log.Debug().
			Str("event_type", string(eventType)).
			Msg("No notification trigger for event type")
	}
}

// notifyCompanyContact resolves the company's contact address from its
// membership roster, preferring the owner, then any admin.
func (d *Dispatcher) notifyCompanyContact(ctx context.Context, template mail.Template, data map[string]any) {
	companyID, ok := parseID(data["company_id"])
	if !ok {
		log.Warn().
			Str("template", string(template)).
			Msg("Skipping notification, event data has no company_id")
		return
	}

	to := d.companyContactEmail(ctx, companyID)
	if to == "" {
		log.Warn().
			Str("company_id", companyID.String()).
			Str("template", string(template)).
			Msg("Skipping notification, company has no contact email")
		return
	}

	d.queue(ctx, to, template, data)
}

func (d *Dispatcher) notifyConsumer(ctx context.Context, template mail.Template, data map[string]any) {
	to, _ := data["consumer_email"].(string)
	if to == "" {
		log.Warn().
			Str("template", string(template)).
			Msg("Skipping notification, event data has no consumer_email")
		return
	}
	d.queue(ctx, to, template, data)
}

func (d *Dispatcher) notifyRequester(ctx context.Context, template mail.Template, data map[string]any) {
	to, _ := data["requester_email"].(string)
	if to == "" {
		log.Warn().
			Str("template", string(template)).
			Msg("Skipping notification, event data has no requester_email")
		return
	}
	d.queue(ctx, to, template, data)
}

func (d *Dispatcher) queue(ctx context.Context, to string, template mail.Template, data map[string]any) {
	if to == "" {
		log.Warn().
			Str("template", string(template)).
			Msg("Skipping notification, no recipient configured")
		return
	}
	if err := d.outbox.Queue(ctx, to, template, mail.Data(data)); err != nil {
		log.Warn().
			Err(err).
			Str("to", to).
			Str("template", string(template)).
			Msg("Failed to queue notification")
	}
}

func (d *Dispatcher) companyContactEmail(ctx context.Context, companyID uuid.UUID) string {
	members, err := d.members.ListByCompany(ctx, companyID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("company_id", companyID.String()).
			Msg("Failed to list company members")
		return ""
	}

	var best *models.CompanyMember
	for _, m := range members {
		if m.UserEmail == "" {
			continue
		}
		if best == nil || m.Role.Order() > best.Role.Order() {
			best = m
		}
	}
	if best == nil {
		return ""
	}
	return best.UserEmail
}

func parseID(v any) (uuid.UUID, bool) {
	switch id := v.(type) {
	case uuid.UUID:
		return id, true
	case string:
		parsed, err := uuid.Parse(id)
		if err != nil {
			return uuid.Nil, false
		}
		return parsed, true
	}
	return uuid.Nil, false
}
