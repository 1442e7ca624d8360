package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render(Template("no_such_template"), Data{})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestRenderComplaintCreated(t *testing.T) {
	rendered, err := Render(TemplateComplaintCreated, Data{
		"company_name": "Acme",
		"title":        "Broken widget",
		"description":  "The widget arrived broken.",
	})
	require.NoError(t, err)

	assert.Equal(t, "New complaint about Acme", rendered.Subject)
	assert.Contains(t, rendered.HTML, "Broken widget")
	assert.Contains(t, rendered.HTML, "The widget arrived broken.")
}

func TestRenderEscapesHTMLInBody(t *testing.T) {
	rendered, err := Render(TemplateCompanyReplied, Data{
		"company_name": "Acme",
		"title":        "Broken widget",
		"reply":        `<script>alert("x")</script>`,
	})
	require.NoError(t, err)

	assert.NotContains(t, rendered.HTML, "<script>")
}

func TestRenderVerificationCode(t *testing.T) {
	rendered, err := Render(TemplateVerificationCode, Data{
		"code":            "123456",
		"expires_minutes": 15,
	})
	require.NoError(t, err)

	assert.Contains(t, rendered.HTML, "123456")
	assert.Contains(t, rendered.HTML, "15 minutes")
}

func TestEveryTemplateCarriesDisclaimer(t *testing.T) {
	for name := range registry {
		t.Run(string(name), func(t *testing.T) {
			rendered, err := Render(name, Data{
				"company_name":    "Acme",
				"title":           "t",
				"description":     "d",
				"reply":           "r",
				"reason":          "x",
				"code":            "123456",
				"expires_minutes": 15,
			})
			require.NoError(t, err)
			assert.Contains(t, rendered.HTML, "does not verify user-submitted content")
		})
	}
}
