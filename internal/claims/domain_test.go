package claims

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainsMatch(t *testing.T) {
	acme := "acme.com"
	upper := "ACME.COM"
	empty := ""

	tests := []struct {
		name   string
		email  string
		domain *string
		want   bool
	}{
		{name: "exact match", email: "jane@acme.com", domain: &acme, want: true},
		{name: "case insensitive", email: "jane@AcMe.CoM", domain: &upper, want: true},
		{name: "different domain", email: "jane@gmail.com", domain: &acme, want: false},
		{name: "subdomain does not match", email: "jane@mail.acme.com", domain: &acme, want: false},
		{name: "no primary domain", email: "jane@acme.com", domain: nil, want: false},
		{name: "empty primary domain", email: "jane@acme.com", domain: &empty, want: false},
		{name: "no at sign", email: "janeacme.com", domain: &acme, want: false},
		{name: "trailing at sign", email: "jane@", domain: &acme, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domainsMatch(tt.email, tt.domain))
		})
	}
}

func TestDomainFromWebsite(t *testing.T) {
	tests := []struct {
		name    string
		website string
		want    string
		ok      bool
	}{
		{name: "bare domain", website: "acme.com", want: "acme.com", ok: true},
		{name: "with scheme", website: "https://acme.com", want: "acme.com", ok: true},
		{name: "strips www", website: "https://www.acme.com", want: "acme.com", ok: true},
		{name: "with path", website: "https://acme.com/contact/us", want: "acme.com", ok: true},
		{name: "uk registrable domain", website: "https://www.example.co.uk", want: "example.co.uk", ok: true},
		{name: "empty", website: "", want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DomainFromWebsite(tt.website)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9')
		}
		seen[code] = true
	}
	// 50 draws from a million values should not all collide.
	assert.Greater(t, len(seen), 1)
}
