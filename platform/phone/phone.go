// Package phone canonicalizes phone numbers into the key used to correlate
// inbound messages with stored providers and pending orders.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"pedidos_backend/platform/apperr"
)

const (
	defaultRegion      = "AR"
	defaultCountryCode = "54"

	// minSignificantDigits is the floor below which input is rejected
	// rather than coerced into a key that would match garbage.
	minSignificantDigits = 6

	// matchKeyLength is the number of trailing digits used for fuzzy
	// equality between representations that differ only in prefixes.
	matchKeyLength = 10
)

// Normalized is the canonical representation of a phone number.
// Two numbers are the same party when their MatchKey values are equal.
type Normalized struct {
	// CountryCode is the numeric country calling code ("54"), or empty
	// when the input carried an international prefix we could not resolve.
	CountryCode string
	// National is the national significant number with trunk prefix and
	// mobile-insertion digits removed.
	National string
	// Canonical is "+<country code><national>" and is stored alongside
	// provider and pending-order records for exact matching.
	Canonical string
	// MatchKey is the trailing-digit key used for fuzzy matching when two
	// representations of the same number differ in country or trunk prefix.
	MatchKey string
}

// Equal reports exact canonical equality.
func (n Normalized) Equal(o Normalized) bool {
	return n.Canonical == o.Canonical
}

// SameParty reports whether two normalized numbers identify the same party,
// using the trailing-digit match key.
func (n Normalized) SameParty(o Normalized) bool {
	return n.MatchKey != "" && n.MatchKey == o.MatchKey
}

// Normalize canonicalizes a raw phone string. It is a total function: any
// input yields either a Normalized value or a validation error, never a panic.
// Normalization is idempotent: Normalize(n.Canonical) reproduces n.
func Normalize(raw string) (Normalized, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Normalized{}, apperr.Validation("phone number is empty")
	}

	digits, international := stripFormatting(trimmed)
	if len(digits) < minSignificantDigits {
		return Normalized{}, apperr.Validation("phone number has fewer than 6 significant digits")
	}

	if num, err := phonenumbers.Parse(trimmed, defaultRegion); err == nil && phonenumbers.IsValidNumber(num) {
		cc := strconv.Itoa(int(num.GetCountryCode()))
		national := stripMobileInsertion(cc, phonenumbers.GetNationalSignificantNumber(num))
		return build(cc, national), nil
	}

	return normalizeManually(digits, international)
}

// stripFormatting removes everything except digits and resolves the
// international prefix. It returns the remaining digits and whether the
// input was in international form ("+..." or "00...").
func stripFormatting(raw string) (string, bool) {
	international := strings.HasPrefix(raw, "+")

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if !international && strings.HasPrefix(digits, "00") {
		digits = digits[2:]
		international = true
	}
	return digits, international
}

// normalizeManually handles numbers libphonenumber rejects: bare digit runs
// without formatting, country-prefixed numbers missing the "+", and trunk
// forms of numbers the metadata considers invalid.
func normalizeManually(digits string, international bool) (Normalized, error) {
	cc := ""
	national := digits

	switch {
	case international:
		if rest, ok := strings.CutPrefix(digits, defaultCountryCode); ok && len(rest) >= minSignificantDigits {
			cc = defaultCountryCode
			national = rest
		}
	case strings.HasPrefix(digits, "0"):
		// Single national trunk prefix.
		cc = defaultCountryCode
		national = digits[1:]
	case strings.HasPrefix(digits, defaultCountryCode) && len(digits) >= len(defaultCountryCode)+matchKeyLength:
		// Country-prefixed number sent without "+": "541135562673".
		cc = defaultCountryCode
		national = digits[len(defaultCountryCode):]
	default:
		cc = defaultCountryCode
	}

	national = stripMobileInsertion(cc, national)
	if len(national) < minSignificantDigits {
		return Normalized{}, apperr.Validation("phone number has fewer than 6 significant digits")
	}
	return build(cc, national), nil
}

// stripMobileInsertion removes the Argentine mobile "9" inserted between the
// country code and the area code ("+54 9 11 ..."). The canonical national
// form carries no insertion digit, so mobile and fixed-line representations
// of the same line collapse to one key.
func stripMobileInsertion(cc, national string) string {
	if cc == defaultCountryCode && len(national) == matchKeyLength+1 && strings.HasPrefix(national, "9") {
		return national[1:]
	}
	return national
}

func build(cc, national string) Normalized {
	key := national
	if len(key) > matchKeyLength {
		key = key[len(key)-matchKeyLength:]
	}

	canonical := "+" + cc + national
	if cc == "" {
		canonical = "+" + national
	}

	return Normalized{
		CountryCode: cc,
		National:    national,
		Canonical:   canonical,
		MatchKey:    key,
	}
}
