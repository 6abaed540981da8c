package utils

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhoneNumber strips formatting and prefixes the Mauritanian
// country code (222) when none is present.
func NormalizePhoneNumber(phoneNumber string) string {
	digits := nonDigits.ReplaceAllString(phoneNumber, "")
	if len(digits) > 0 && !strings.HasPrefix(digits, "222") {
		digits = "222" + strings.TrimLeft(digits, "0")
	}
	return digits
}

// ValidatePhoneNumber checks for a valid 8-digit Mauritanian subscriber
// number (prefix 2, 3 or 4), ignoring formatting and the country code.
func ValidatePhoneNumber(phoneNumber string) bool {
	cleaned := nonDigits.ReplaceAllString(phoneNumber, "")
	cleaned = strings.TrimPrefix(cleaned, "222")

	if len(cleaned) != 8 {
		return false
	}
	switch cleaned[0] {
	case '2', '3', '4':
		return true
	}
	return false
}
