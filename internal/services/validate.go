package services

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"github.com/openblog/apiserver/internal/store"
	"github.com/openblog/apiserver/types"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 30
	bioMaxLen      = 500
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidationError reports every constraint violated by a create request.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// validateUser checks the field constraints on a new user and returns a
// *ValidationError enumerating all violations, or nil if the user is valid.
// Uniqueness is not checked here; it is enforced by the database and folded
// into the same error kind by the service.
func validateUser(user types.User) error {
	var violations []string

	switch {
	case user.Username == "":
		violations = append(violations, "Username is required")
	case len(user.Username) < usernameMinLen:
		violations = append(violations, "Username must be at least 3 characters long")
	case len(user.Username) > usernameMaxLen:
		violations = append(violations, "Username cannot exceed 30 characters")
	case !usernamePattern.MatchString(user.Username):
		violations = append(violations, "Username can only contain letters, numbers, and underscores")
	}

	switch {
	case user.Email == "":
		violations = append(violations, "Email is required")
	case !isEmail(user.Email):
		violations = append(violations, "Please provide a valid email address")
	}

	if len(user.Profile.Bio) > bioMaxLen {
		violations = append(violations, "Bio cannot exceed 500 characters")
	}

	for _, link := range user.Profile.SocialLinks {
		if !isURL(link) {
			violations = append(violations, "Please provide a valid URL")
			break
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// conflictToValidation translates a unique-constraint violation from the
// store into the same structured error kind as field validation.
func conflictToValidation(conflict *store.ConflictError) *ValidationError {
	message := "Value already exists"
	switch conflict.Constraint {
	case "users_username_key":
		message = "Username already exists"
	case "users_email_key":
		message = "Email already exists"
	}
	return &ValidationError{Violations: []string{message}}
}

func isEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return false
	}
	// Reject display-name forms like `Alice <a@b.com>`; only the bare
	// address is a valid email field value.
	return addr.Address == value
}

func isURL(value string) bool {
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
