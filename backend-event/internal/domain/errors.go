package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrRegistrationClosed    = errors.New("registration is closed")
	ErrDuplicateRegistration = errors.New("already registered for this event")
	ErrEventFull             = errors.New("event is full")
	ErrInvalidTransition     = errors.New("invalid registration transition")
	ErrRegistrationBanned    = errors.New("banned from this event")

	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrUserNotFound         = errors.New("user not found")

	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("authentication required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError names the offending field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
