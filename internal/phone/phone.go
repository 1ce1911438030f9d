// Package phone normalizes customer phone numbers into the E.164 form the
// installment gateway requires. Normalization is a pure function configured
// per target market.
package phone

import (
	"errors"
	"strings"
)

var ErrInvalid = errors.New("phone number does not normalize to a valid format")

// Region describes one national numbering plan.
type Region struct {
	CountryCode    string // without the leading +
	NationalLength int    // digits after the country code
	TrunkPrefix    string // leading digit(s) dropped when dialing internationally
}

// UAE is the default market.
var UAE = Region{CountryCode: "971", NationalLength: 9, TrunkPrefix: "0"}

// Normalize returns the E.164 representation ("+971501234567") of raw, or
// ErrInvalid if it cannot be interpreted under the region's plan.
func Normalize(raw string, region Region) (string, error) {
	digits := strip(raw)
	if digits == "" {
		return "", ErrInvalid
	}

	switch {
	case strings.HasPrefix(digits, "00"+region.CountryCode):
		digits = strings.TrimPrefix(digits, "00")
	case strings.HasPrefix(digits, region.CountryCode) && len(digits) == len(region.CountryCode)+region.NationalLength:
		// already has country code
	case region.TrunkPrefix != "" && strings.HasPrefix(digits, region.TrunkPrefix) && len(digits) == len(region.TrunkPrefix)+region.NationalLength:
		digits = region.CountryCode + strings.TrimPrefix(digits, region.TrunkPrefix)
	case len(digits) == region.NationalLength:
		digits = region.CountryCode + digits
	default:
		return "", ErrInvalid
	}

	if len(digits) != len(region.CountryCode)+region.NationalLength {
		return "", ErrInvalid
	}
	return "+" + digits, nil
}

// FirstValid returns the first number in candidates that normalizes, or
// ErrInvalid if none does.
func FirstValid(candidates []string, region Region) (string, error) {
	for _, c := range candidates {
		if n, err := Normalize(c, region); err == nil {
			return n, nil
		}
	}
	return "", ErrInvalid
}

func strip(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteString("00")
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// separators are fine
		default:
			return ""
		}
	}
	return b.String()
}
