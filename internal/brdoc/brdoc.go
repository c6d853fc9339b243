// Package brdoc holds pure formatting helpers for Brazilian tax documents:
// CPF/CNPJ masking and civil-date conversion in the tax authority's timezone.
package brdoc

import (
	"fmt"
	"regexp"
	"time"
)

// civilDateLayout is the authority's locale-specific date format.
const civilDateLayout = "02/01/2006"

var nonDigits = regexp.MustCompile(`\D`)

// authorityTZ is the fixed regional timezone the authority operates in. Falls
// back to a fixed UTC-3 zone when the host has no tzdata.
var authorityTZ = loadAuthorityTZ()

func loadAuthorityTZ() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
}

// FormatCPFCNPJ applies the standard punctuation mask: 11-digit ids become
// XXX.XXX.XXX-XX, 14-digit ids become XX.XXX.XXX/XXXX-XX. Any other length is
// returned untouched.
func FormatCPFCNPJ(v string) string {
	digits := nonDigits.ReplaceAllString(v, "")
	switch len(digits) {
	case 11:
		return fmt.Sprintf("%s.%s.%s-%s", digits[:3], digits[3:6], digits[6:9], digits[9:])
	case 14:
		return fmt.Sprintf("%s.%s.%s/%s-%s", digits[:2], digits[2:5], digits[5:8], digits[8:12], digits[12:])
	default:
		return v
	}
}

// CivilDate projects a UTC instant into the authority's timezone and returns
// the calendar date as dd/mm/yyyy.
func CivilDate(t time.Time) string {
	return t.In(authorityTZ).Format(civilDateLayout)
}

// ParseCivilDate parses a dd/mm/yyyy string into midnight of that date in the
// authority's timezone.
func ParseCivilDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(civilDateLayout, s, authorityTZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid civil date %q: %w", s, err)
	}
	return t, nil
}

// ParseCivilDateLenient parses a dd/mm/yyyy string, returning nil for
// unparsable input instead of an error. Reconciliation uses this so one bad
// remote date does not fail a whole pass.
func ParseCivilDateLenient(s string) *time.Time {
	t, err := ParseCivilDate(s)
	if err != nil {
		return nil
	}
	return &t
}
