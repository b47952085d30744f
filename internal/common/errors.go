// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors.
	ErrorValidation  = errors.New("validation failed")
	ErrorInvalidRole = errors.New("invalid role")

	// Conflicts on unique account attributes.
	ErrAdminExists        = errors.New("admin already exists")
	ErrAdminAlreadyExists = errors.New("only one admin is allowed")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateEmail     = errors.New("email already exists")

	// Authentication errors.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")

	// Authorization errors.
	ErrForbidden      = errors.New("forbidden")
	ErrSelfRoleChange = errors.New("cannot change own role")
	ErrSelfDelete     = errors.New("cannot delete own account")
	ErrAdminProtected = errors.New("cannot delete admin user")

	// Password lifecycle errors.
	ErrCurrentPasswordMismatch = errors.New("current password is incorrect")
	ErrPasswordUnchanged       = errors.New("new password must be different from current password")
)

// ValidationError reports malformed or missing input fields. Errors holds one
// human-readable message per offending field.
type ValidationError struct {
	Errors []string
}

// NewValidationError builds a ValidationError from field messages.
func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return ErrorValidation.Error()
	}
	return ErrorValidation.Error() + ": " + strings.Join(e.Errors, "; ")
}

// Unwrap lets errors.Is(err, ErrorValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrorValidation
}
