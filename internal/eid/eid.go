// Package eid generates and validates membership credential identifiers.
// An E-ID is printed on the member card and encoded into a QR code by the
// front end.
package eid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// pattern matches SH-<year>-<TIER>-<8 hex>.
var pattern = regexp.MustCompile(`^SH-\d{4}-(BRONZE|SILVER|GOLD)-[0-9A-F]{8}$`)

// Generate produces a new credential for the given tier and membership
// start year, e.g. SH-2026-GOLD-9F2C41AB.
func Generate(tier string, year int) string {
	id := uuid.New()
	suffix := strings.ToUpper(id.String()[:8])
	return fmt.Sprintf("SH-%04d-%s-%s", year, strings.ToUpper(tier), suffix)
}

// Valid reports whether value has the credential format.
func Valid(value string) bool {
	return pattern.MatchString(value)
}
