// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"errors"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

const (
	defaultRegion      = "IN"
	defaultCountryCode = "+91"
	minDigits          = 10
	maxDigits          = 15
)

// ErrInvalidNumber is returned when a value does not hold 10–15 digits.
var ErrInvalidNumber = errors.New("phone number must contain 10 to 15 digits")

// Normalize strips separators and returns an E.164 number.
// A bare 10-digit number gets the default country code. Longer numbers are
// formatted through libphonenumber when it recognises them and kept as
// "+digits" otherwise.
func Normalize(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	digits := onlyDigits(trimmed)

	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", ErrInvalidNumber
	}

	if len(digits) == minDigits {
		return defaultCountryCode + digits, nil
	}

	candidate := digits
	if strings.HasPrefix(trimmed, "+") {
		candidate = "+" + digits
	}
	if number, err := phonenumbers.Parse(candidate, defaultRegion); err == nil && phonenumbers.IsValidNumber(number) {
		return phonenumbers.Format(number, phonenumbers.E164), nil
	}

	return "+" + digits, nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
