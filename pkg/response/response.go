package response

import (
	"net/http"
)

// Response represents the standard API response structure
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents error details in the response
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// --- Error Code Constants ---

const (
	// Client errors (4xx)
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeValidationFailed = "VALIDATION_ERROR"

	// Server errors (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// Registration errors
	ErrCodeRegistrationClosed    = "REGISTRATION_CLOSED"
	ErrCodeDuplicateRegistration = "DUPLICATE_REGISTRATION"
	ErrCodeEventFull             = "EVENT_FULL"
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeRegistrationBanned    = "REGISTRATION_BANNED"
	ErrCodeEmailTaken            = "EMAIL_TAKEN"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
)

// ErrorCodeToHTTPStatus maps error codes to HTTP status codes
var ErrorCodeToHTTPStatus = map[string]int{
	ErrCodeBadRequest:            http.StatusBadRequest,
	ErrCodeUnauthorized:          http.StatusUnauthorized,
	ErrCodeTokenExpired:          http.StatusUnauthorized,
	ErrCodeForbidden:             http.StatusForbidden,
	ErrCodeNotFound:              http.StatusNotFound,
	ErrCodeConflict:              http.StatusConflict,
	ErrCodeTooManyRequests:       http.StatusTooManyRequests,
	ErrCodeValidationFailed:      http.StatusBadRequest,
	ErrCodeInternalError:         http.StatusInternalServerError,
	ErrCodeServiceUnavailable:    http.StatusServiceUnavailable,
	ErrCodeRegistrationClosed:    http.StatusConflict,
	ErrCodeDuplicateRegistration: http.StatusConflict,
	ErrCodeEventFull:             http.StatusConflict,
	ErrCodeInvalidTransition:     http.StatusConflict,
	ErrCodeRegistrationBanned:    http.StatusForbidden,
	ErrCodeEmailTaken:            http.StatusConflict,
	ErrCodeInvalidCredentials:    http.StatusUnauthorized,
}

// GetHTTPStatus returns the HTTP status code for an error code
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeToHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// --- Response Builders ---

// Success creates a success response with data
func Success(data interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// Error creates an error response
func Error(code string, message string) *Response {
	return &Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// ErrorWithDetails creates an error response with additional details
func ErrorWithDetails(code string, message string, details map[string]string) *Response {
	return &Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// --- Common Error Responses ---

// BadRequest creates a bad request error response
func BadRequest(message string) *Response {
	return Error(ErrCodeBadRequest, message)
}

// Unauthorized creates an unauthorized error response
func Unauthorized(message string) *Response {
	if message == "" {
		message = "Authentication required"
	}
	return Error(ErrCodeUnauthorized, message)
}

// Forbidden creates a forbidden error response
func Forbidden(message string) *Response {
	if message == "" {
		message = "Access denied"
	}
	return Error(ErrCodeForbidden, message)
}

// NotFound creates a not found error response
func NotFound(message string) *Response {
	if message == "" {
		message = "Resource not found"
	}
	return Error(ErrCodeNotFound, message)
}

// Conflict creates a conflict response with a specific business code
func Conflict(code, message string) *Response {
	if code == "" {
		code = ErrCodeConflict
	}
	return Error(code, message)
}

// InternalError creates an internal server error response
func InternalError(message string) *Response {
	if message == "" {
		message = "An internal error occurred"
	}
	return Error(ErrCodeInternalError, message)
}

// ValidationFailed creates a validation error response with field details
func ValidationFailed(message string, details map[string]string) *Response {
	if message == "" {
		message = "Validation failed"
	}
	return ErrorWithDetails(ErrCodeValidationFailed, message, details)
}

// TooManyRequests creates a rate limit error response
func TooManyRequests(message string) *Response {
	if message == "" {
		message = "Too many requests, please try again later"
	}
	return Error(ErrCodeTooManyRequests, message)
}

// ServiceUnavailable creates a service unavailable error response
func ServiceUnavailable(message string) *Response {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return Error(ErrCodeServiceUnavailable, message)
}
