package claims

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// emailDomain extracts the lowercased domain portion of an email
// address. Returns "" when the address has no domain.
func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// domainsMatch reports whether the requester email's domain exactly
// matches the company's primary domain, case-insensitively. A company
// without a primary domain never matches.
func domainsMatch(email string, primaryDomain *string) bool {
	if primaryDomain == nil || *primaryDomain == "" {
		return false
	}
	domain := emailDomain(email)
	return domain != "" && domain == strings.ToLower(*primaryDomain)
}

// DomainFromWebsite derives the registrable domain (eTLD+1) from a
// website URL. Falls back to the bare hostname when the public suffix
// list can't resolve it.
func DomainFromWebsite(website string) (string, bool) {
	raw := website
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}
	return registrable, true
}

// generateCode returns a 6-digit numeric one-time code from a
// cryptographic source.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
