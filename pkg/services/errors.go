// Package services implements the catalog and partner publishing use cases on top of the
// workflow engine and storage.
package services

import (
	"errors"
	"fmt"

	"github.com/edulab/orchestrator/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInvalidStatus          = errors.New("invalid workflow status")
	ErrInvalidPublicationType = errors.New("invalid publication type")
	ErrTargetsRequired        = errors.New("publication targets required")
	ErrNotPublished           = errors.New("theme is not published")
	ErrNotCompliant           = errors.New("theme is not Ergo-Mate compliant")
	ErrInvalidAcknowledgement = errors.New("invalid acknowledgement")

	// Permission Errors (403 Forbidden).
	ErrForbidden = errors.New("insufficient permissions")

	// Not Found Errors (404 Not Found).
	ErrCatalogEntryNotFound = persistence.ErrCatalogEntryNotFound
	ErrPublicationNotFound  = persistence.ErrPublicationNotFound
	ErrUserNotFound         = persistence.ErrUserNotFound

	// Partner Errors (502 Bad Gateway).
	ErrPublicationFailed = errors.New("publication to Ergo-Mate failed")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string   // Operation name
	Code    string   // Error code for API responses
	Message string   // Human-readable message
	Details []string // Individual problems, e.g. validation errors
	Err     error    // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidPublicationType) ||
		errors.Is(err, ErrTargetsRequired) ||
		errors.Is(err, ErrNotPublished) ||
		errors.Is(err, ErrNotCompliant) ||
		errors.Is(err, ErrInvalidAcknowledgement)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrCatalogEntryNotFound) ||
		errors.Is(err, ErrPublicationNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsForbiddenError checks if an error should return HTTP 403.
func IsForbiddenError(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsPartnerError checks if an error comes from the partner platform.
func IsPartnerError(err error) bool {
	return errors.Is(err, ErrPublicationFailed)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrorDetails returns the individual problems carried by err, if any.
func ErrorDetails(err error) []string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Details
	}

	return nil
}
