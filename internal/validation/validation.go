package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	idRegex    = regexp.MustCompile(`^[A-Za-z0-9_.:\-]+$`)
	pinRegex   = regexp.MustCompile(`^[0-9]{4,6}$`)
	nameRegex  = regexp.MustCompile(`^[\p{L}\p{N} '\-]+$`)
)

// MaxIDLength bounds story, quiz, activity, item and achievement ids
const MaxIDLength = 64

// MaxNameLength bounds player display names
const MaxNameLength = 32

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateID checks a content or item identifier
func ValidateID(field, id string) error {
	if id == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if len(id) > MaxIDLength {
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, MaxIDLength)}
	}
	if !idRegex.MatchString(id) {
		return ValidationError{Field: field, Message: "only letters, digits, '.', ':', '_' and '-' are allowed"}
	}
	return nil
}

// ValidateEmail checks an optional parent email address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateName checks a player display name
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	length := utf8.RuneCountInString(name)
	if length < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	if length > MaxNameLength {
		return ValidationError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", MaxNameLength)}
	}
	if !nameRegex.MatchString(name) {
		return ValidationError{Field: "name", Message: "name contains invalid characters"}
	}
	return nil
}

// ValidatePIN checks a parent PIN: 4 to 6 digits
func ValidatePIN(pin string) error {
	if pin == "" {
		return ValidationError{Field: "pin", Message: "pin is required"}
	}
	if !pinRegex.MatchString(pin) {
		return ValidationError{Field: "pin", Message: "pin must be 4 to 6 digits"}
	}
	return nil
}

// ValidateScore checks a quiz score percentage
func ValidateScore(score int) error {
	if score < 0 || score > 100 {
		return ValidationError{Field: "score", Message: "score must be between 0 and 100"}
	}
	return nil
}
