package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrCatalogEntryNotFound indicates no entry exists with the given id in the given tenant.
	ErrCatalogEntryNotFound = errors.New("catalog entry not found")

	// ErrStatusConflict indicates the stored workflow status no longer matches the expected one.
	ErrStatusConflict = errors.New("workflow status conflict")

	// ErrAlreadyExists indicates a record with the same identifier already exists.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrUserNotFound is also returned when saving a user id that belongs to another tenant.
	ErrUserNotFound        = errors.New("user not found")
	ErrPublicationNotFound = errors.New("publication not found")
)

// CatalogError wraps catalog-related errors with additional context.
type CatalogError struct {
	Op      string // Operation being performed (e.g., "GetByID", "UpdateStatus")
	EntryID string
	Err     error
	Message string
}

func (e *CatalogError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for catalog entry %s: %s (%v)", e.Op, e.EntryID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for catalog entry %s: %v", e.Op, e.EntryID, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

func (e *CatalogError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCatalogError creates a new catalog error with context.
func NewCatalogError(op, entryID string, err error) *CatalogError {
	return &CatalogError{Op: op, EntryID: entryID, Err: err}
}

// PublicationError wraps publication-related errors with additional context.
type PublicationError struct {
	Op            string
	PublicationID string
	Err           error
}

func (e *PublicationError) Error() string {
	return fmt.Sprintf("%s operation failed for publication %s: %v", e.Op, e.PublicationID, e.Err)
}

func (e *PublicationError) Unwrap() error {
	return e.Err
}

func (e *PublicationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsCatalogEntryNotFound checks if an error indicates a catalog entry was not found.
func IsCatalogEntryNotFound(err error) bool {
	return errors.Is(err, ErrCatalogEntryNotFound)
}

// IsStatusConflict checks if an error indicates a lost optimistic status update.
func IsStatusConflict(err error) bool {
	return errors.Is(err, ErrStatusConflict)
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsPublicationNotFound(err error) bool {
	return errors.Is(err, ErrPublicationNotFound)
}
