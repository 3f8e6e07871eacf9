package models

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Indian mobile numbers, optionally prefixed with +91 or 0
var phoneRegex = regexp.MustCompile(`^(\+91|0)?[6-9]\d{9}$`)

// IsValidEmail validates email format
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidPhone validates a customer phone number. Empty is allowed.
func IsValidPhone(phone string) bool {
	if phone == "" {
		return true
	}
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(phone)
	return phoneRegex.MatchString(cleaned)
}
