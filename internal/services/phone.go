package services

import (
	"errors"
	"strings"
)

const (
	// PartitionKeyLength is the number of trailing digits that identify a chat partition.
	PartitionKeyLength = 10

	// DefaultCountryCode is prefixed to bare national numbers.
	DefaultCountryCode = "91"
)

// ErrInvalidPhoneNumber indicates a number that cannot be normalized for sending.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PartitionKey returns the last ten digits of a sender id or phone number.
// Shorter inputs are returned as their digits.
func PartitionKey(senderID string) string {
	digits := digitsOnly(senderID)
	if len(digits) > PartitionKeyLength {
		return digits[len(digits)-PartitionKeyLength:]
	}
	return digits
}

// NormalizePhone converts a phone number to the provider's international form.
// Ten digits get the country code prefixed; country code plus ten digits is kept as is.
func NormalizePhone(raw, countryCode string) (string, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	digits := digitsOnly(raw)
	switch {
	case len(digits) == PartitionKeyLength:
		return countryCode + digits, nil
	case len(digits) == len(countryCode)+PartitionKeyLength && strings.HasPrefix(digits, countryCode):
		return digits, nil
	default:
		return "", ErrInvalidPhoneNumber
	}
}
