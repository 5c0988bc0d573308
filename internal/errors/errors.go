package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Category errors. Every domain code below is bound to exactly one of these so
// transport adapters can map a failure without knowing each individual code.
var (
	ErrNotFound          = new(ErrCodeNotFound, "resource not found", nil)
	ErrAlreadyExists     = new(ErrCodeAlreadyExists, "resource already exists", nil)
	ErrValidation        = new(ErrCodeValidation, "validation error", nil)
	ErrInvalidTransition = new(ErrCodeInvalidTransition, "invalid state transition", nil)
	ErrBusinessRule      = new(ErrCodeBusinessRule, "business rule violation", nil)
	ErrExternal          = new(ErrCodeExternal, "external integration failure", nil)
	ErrUnauthorized      = new(ErrCodeUnauthorized, "unauthorized", nil)
	ErrHTTPClient        = new(ErrCodeHTTPClient, "http client error", nil)
	ErrDatabase          = new(ErrCodeDatabase, "database error", nil)
	ErrSystem            = new(ErrCodeSystemError, "system error", nil)

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:          http.StatusNotFound,
		ErrAlreadyExists:     http.StatusConflict,
		ErrValidation:        http.StatusBadRequest,
		ErrInvalidTransition: http.StatusConflict,
		ErrBusinessRule:      http.StatusUnprocessableEntity,
		ErrExternal:          http.StatusBadGateway,
		ErrUnauthorized:      http.StatusUnauthorized,
		ErrHTTPClient:        http.StatusBadGateway,
		ErrDatabase:          http.StatusInternalServerError,
		ErrSystem:            http.StatusInternalServerError,
	}
)

const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeBusinessRule      = "BUSINESS_RULE_VIOLATION"
	ErrCodeExternal          = "EXTERNAL_INTEGRATION_ERROR"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeHTTPClient        = "HTTP_CLIENT_ERROR"
	ErrCodeDatabase          = "DATABASE_ERROR"
	ErrCodeSystemError       = "SYSTEM_ERROR"
)

// InternalError represents a domain error
type InternalError struct {
	Code     string         // Machine-readable error code
	Message  string         // Human-readable error message
	Category *InternalError // Category the code belongs to, nil for categories themselves
	Err      error          // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string, category *InternalError) *InternalError {
	return &InternalError{
		Code:     code,
		Message:  message,
		Category: category,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidTransition checks if an error is a rejected state machine transition
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsBusinessRule checks if an error is a business rule violation
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrBusinessRule)
}

// IsExternal checks if an error came from a payment gateway or fiscal provider
func IsExternal(err error) bool {
	return errors.Is(err, ErrExternal)
}

// IsUnauthorized checks if an error is an authentication/signature rejection
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
