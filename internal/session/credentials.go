// ABOUTME: Login credentials and their local validation
// ABOUTME: Rejects empty or syntactically invalid input before contacting the backend

package session

import (
	"fmt"
	"net/mail"
	"strings"
)

// Credentials are what the user types into the login form
type Credentials struct {
	Email      string
	Password   string
	RememberMe bool
}

// Validate checks credentials without any network I/O
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	return ValidateEmail(c.Email)
}

// ValidateEmail checks that s, once trimmed, is a bare email address
func ValidateEmail(s string) error {
	email := strings.TrimSpace(s)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address: %s", ErrValidation, sanitizeForLog(email))
	}
	return nil
}

// sanitizeForLog removes control characters from strings to prevent log injection
// when including user input in error messages
func sanitizeForLog(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
