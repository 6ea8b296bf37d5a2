package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// CanonEmail normalizes an email address for lookup and uniqueness checks.
func CanonEmail(email string) string {
	return fold.String(strings.TrimSpace(email))
}

// CanonDomain normalizes a tenant domain. Domains are case-insensitive.
func CanonDomain(domain string) string {
	return fold.String(strings.TrimSpace(strings.TrimSuffix(domain, ".")))
}
