// Package mail is the email template registry: a pure mapping from a
// template name and its data to a rendered subject and HTML body.
package mail

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

// Template names known to the registry.
type Template string

const (
	TemplateComplaintCreated  Template = "complaint_created"
	TemplateCompanyReplied    Template = "company_replied"
	TemplateComplaintResolved Template = "complaint_resolved"
	TemplateEvidenceFlagged   Template = "evidence_flagged"
	TemplateVerificationCode  Template = "claim_verification_code"
	TemplateClaimApproved     Template = "claim_approved"
)

// ErrTemplateNotFound is returned for unknown template names. Callers
// must not attempt a send without a valid template.
var ErrTemplateNotFound = errors.New("email template not found")

// Data carries template parameters.
type Data map[string]any

// Rendered is the output of the registry: a subject line and an HTML
// body ready for the outbox.
type Rendered struct {
	Subject string
	HTML    string
}

// Every body carries the disclaimer that complaint content is
// user-generated and unverified by the platform. Wording is kept
// neutral and non-accusatory throughout.
const disclaimer = `<p style="color:#888;font-size:12px">` +
	`This message relates to content submitted by a user of ReportHere. ` +
	`ReportHere does not verify user-submitted content and takes no position on its accuracy.</p>`

type definition struct {
	subject *texttemplate.Template // subjects are plain text, no escaping
	body    *template.Template
}

var registry = map[Template]definition{
	TemplateComplaintCreated: def(
		`New complaint about {{.company_name}}`,
		`<h2>A consumer has filed a complaint about {{.company_name}}</h2>
<p><strong>{{.title}}</strong></p>
<p>{{.description}}</p>
<p>You can respond to this complaint from your company inbox. A timely,
courteous reply is visible alongside the complaint.</p>`,
	),
	TemplateCompanyReplied: def(
		`{{.company_name}} replied to your complaint`,
		`<h2>{{.company_name}} has responded</h2>
<p>The company posted a reply to your complaint "{{.title}}":</p>
<blockquote>{{.reply}}</blockquote>
<p>You can review the response and mark the complaint resolved if the
matter has been addressed.</p>`,
	),
	TemplateComplaintResolved: def(
		`Your complaint about {{.company_name}} was resolved`,
		`<h2>Complaint resolved</h2>
<p>Your complaint "{{.title}}" about {{.company_name}} has been marked
resolved.</p>
<p>If the matter is not settled to your satisfaction you can reopen the
conversation from your dashboard.</p>`,
	),
	TemplateEvidenceFlagged: def(
		`Evidence flagged for review`,
		`<h2>Evidence flagged</h2>
<p>An attachment on complaint "{{.title}}" was flagged and needs
moderator review.</p>
<p>Reason given: {{.reason}}</p>`,
	),
	TemplateVerificationCode: def(
		`Your ReportHere verification code`,
		`<h2>Verify your company claim</h2>
<p>Your one-time verification code is:</p>
<p style="font-size:24px;letter-spacing:4px"><strong>{{.code}}</strong></p>
<p>The code is valid for {{.expires_minutes}} minutes.</p>`,
	),
	TemplateClaimApproved: def(
		`Your company profile is verified`,
		`<h2>Claim approved</h2>
<p>Your claim for {{.company_name}} has been approved and the profile is
now verified. You can manage complaints from your company inbox.</p>`,
	),
}

func def(subject, body string) definition {
	return definition{
		subject: texttemplate.Must(texttemplate.New("subject").Parse(subject)),
		body:    template.Must(template.New("body").Parse(body)),
	}
}

// Render produces the subject and HTML body for a template. Unknown
// names fail with ErrTemplateNotFound and render nothing.
func Render(name Template, data Data) (Rendered, error) {
	d, ok := registry[name]
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}

	var subject bytes.Buffer
	if err := d.subject.Execute(&subject, data); err != nil {
		return Rendered{}, fmt.Errorf("failed to render subject for %q: %w", name, err)
	}

	var body bytes.Buffer
	if err := d.body.Execute(&body, data); err != nil {
		return Rendered{}, fmt.Errorf("failed to render body for %q: %w", name, err)
	}
	body.WriteString(disclaimer)

	return Rendered{Subject: subject.String(), HTML: body.String()}, nil
}
