// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Normalizer converts customer-entered phone numbers into gateway-ready
// digit strings for a single default region.
type Normalizer struct {
	region      string
	countryCode string
}

// NewNormalizer creates a Normalizer for the given ISO region ("ID") and
// country calling code ("62").
func NewNormalizer(region, countryCode string) *Normalizer {
	if region == "" {
		region = "ID"
	}
	if countryCode == "" {
		countryCode = "62"
	}
	return &Normalizer{region: region, countryCode: countryCode}
}

// Normalize returns the number as bare digits with the country calling code
// prefix. Valid numbers go through libphonenumber; anything it rejects falls
// back to stripping non-digits and swapping a leading trunk "0" for the
// country code. Empty input returns empty.
func (n *Normalizer) Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if number, err := phonenumbers.Parse(trimmed, n.region); err == nil && phonenumbers.IsValidNumber(number) {
		return strings.TrimPrefix(phonenumbers.Format(number, phonenumbers.E164), "+")
	}

	digits := stripNonDigits(trimmed)
	if strings.HasPrefix(digits, "0") {
		return n.countryCode + digits[1:]
	}
	return digits
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
