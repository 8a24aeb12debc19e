package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasNumber  = regexp.MustCompile(`[0-9]`)
)

// xssPatterns catches markup that should never reach a public payment page
var xssPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on(load|error|click|mouseover)\s*=`),
	regexp.MustCompile(`(?i)<\s*iframe`),
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateXSS checks for common XSS attack patterns
func ValidateXSS(input string) (bool, string) {
	for _, pattern := range xssPatterns {
		if pattern.MatchString(input) {
			return false, "Input contains forbidden markup"
		}
	}
	return true, ""
}

// ValidateEmail checks if the email is valid and safe
func ValidateEmail(email string) (bool, string) {
	if !emailRegex.MatchString(email) {
		return false, "Invalid email format. Please enter a valid email address"
	}
	return true, ""
}

// ValidatePassword checks if the password meets the requirements
func ValidatePassword(password string) (bool, string) {
	if len(password) < MinPasswordLength {
		return false, "Password must be at least 8 characters long"
	}
	if len(password) > MaxPasswordLength {
		return false, "Password must not exceed 72 characters"
	}
	if !hasLower.MatchString(password) {
		return false, "Password must contain at least one lowercase letter"
	}
	if !hasUpper.MatchString(password) {
		return false, "Password must contain at least one uppercase letter"
	}
	if !hasNumber.MatchString(password) {
		return false, "Password must contain at least one number"
	}
	return true, ""
}

// NormalizePhone strips spaces, dashes and parentheses from a phone number
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

// ValidatePhone checks an international mobile number (E.164 without formatting)
func ValidatePhone(phone string) (bool, string) {
	if !phoneRegex.MatchString(NormalizePhone(phone)) {
		return false, ErrInvalidPhone
	}
	return true, ""
}

// ValidateName checks if the name is valid and safe
func ValidateName(name string) (bool, string) {
	trimmed := strings.TrimSpace(name)
	if utf8.RuneCountInString(trimmed) < MinNameLength {
		return false, "Name must be at least 2 characters long"
	}
	if utf8.RuneCountInString(trimmed) > MaxNameLength {
		return false, "Name must not exceed 100 characters"
	}
	if valid, msg := ValidateXSS(trimmed); !valid {
		return false, "Name: " + msg
	}
	return true, ""
}

// ValidateTitle checks a product name or payment link title
func ValidateTitle(title string) (bool, string) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return false, "Title is required"
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLength {
		return false, "Title must not exceed 120 characters"
	}
	if valid, msg := ValidateXSS(trimmed); !valid {
		return false, "Title: " + msg
	}
	return true, ""
}

// ValidateCurrency checks an ISO 4217 style code
func ValidateCurrency(code string) (bool, string) {
	if len(code) != 3 || strings.ToUpper(code) != code {
		return false, "Currency must be a 3-letter uppercase code"
	}
	return true, ""
}
