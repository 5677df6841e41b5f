// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers entered without an international prefix.
const DefaultRegion = "PK"

// ErrInvalidNumber is returned by ParseE164 for unparseable or invalid numbers.
var ErrInvalidNumber = errors.New("invalid phone number")

// ParseE164 parses input in DefaultRegion and formats it to E.164.
func ParseE164(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrInvalidNumber
	}

	number, err := phonenumbers.Parse(trimmed, DefaultRegion)
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", ErrInvalidNumber
	}

	return phonenumbers.Format(number, phonenumbers.E164), nil
}

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	formatted, err := ParseE164(input)
	if err != nil {
		return strings.TrimSpace(input)
	}
	return formatted
}
