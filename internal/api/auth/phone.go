package auth

import (
	"errors"

	"github.com/nyaruka/phonenumbers"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone parses a raw phone number and returns it in E.164 form.
// Numbers without a country code are interpreted in defaultRegion.
func NormalizePhone(raw, defaultRegion string) (string, error) {
	parsed, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
