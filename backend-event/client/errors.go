package client

import (
	"errors"
	"fmt"

	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/pkg/response"
)

// ErrNetwork means the server could not be reached or sent no usable response
var ErrNetwork = errors.New("cannot reach server")

// Errors the server reports, matched with errors.Is
var (
	ErrValidation            = domain.ErrValidation
	ErrRegistrationClosed    = domain.ErrRegistrationClosed
	ErrDuplicateRegistration = domain.ErrDuplicateRegistration
	ErrEventFull             = domain.ErrEventFull
	ErrInvalidTransition     = domain.ErrInvalidTransition
	ErrRegistrationBanned    = domain.ErrRegistrationBanned
	ErrForbidden             = domain.ErrForbidden
	ErrUnauthorized          = domain.ErrUnauthorized
	ErrEmailTaken            = domain.ErrEmailTaken
	ErrInvalidCredentials    = domain.ErrInvalidCredentials
	ErrNotFound              = errors.New("not found")
	ErrTokenExpired          = errors.New("token expired")
	ErrRateLimited           = errors.New("too many requests")
)

var codeErrors = map[string]error{
	response.ErrCodeValidationFailed:      ErrValidation,
	response.ErrCodeBadRequest:            ErrValidation,
	response.ErrCodeRegistrationClosed:    ErrRegistrationClosed,
	response.ErrCodeDuplicateRegistration: ErrDuplicateRegistration,
	response.ErrCodeEventFull:             ErrEventFull,
	response.ErrCodeInvalidTransition:     ErrInvalidTransition,
	response.ErrCodeRegistrationBanned:    ErrRegistrationBanned,
	response.ErrCodeForbidden:             ErrForbidden,
	response.ErrCodeUnauthorized:          ErrUnauthorized,
	response.ErrCodeTokenExpired:          ErrTokenExpired,
	response.ErrCodeEmailTaken:            ErrEmailTaken,
	response.ErrCodeInvalidCredentials:    ErrInvalidCredentials,
	response.ErrCodeNotFound:              ErrNotFound,
	response.ErrCodeTooManyRequests:       ErrRateLimited,
}

// APIError is an error envelope returned by the server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap maps the error code to its sentinel
func (e *APIError) Unwrap() error {
	return codeErrors[e.Code]
}
