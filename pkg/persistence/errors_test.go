package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/edulab/orchestrator/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		notFound := persistence.NewCatalogError("GetByID", "entry-123", persistence.ErrCatalogEntryNotFound)
		conflict := persistence.NewCatalogError("UpdateStatus", "entry-123", persistence.ErrStatusConflict)

		assert.True(t, persistence.IsCatalogEntryNotFound(notFound))
		assert.False(t, persistence.IsCatalogEntryNotFound(conflict))
		assert.True(t, persistence.IsStatusConflict(conflict))
		assert.True(t, persistence.IsStatusConflict(fmt.Errorf("wrapped: %w", conflict)))

		pubErr := &persistence.PublicationError{Op: "GetByID", PublicationID: "pub-1", Err: persistence.ErrPublicationNotFound}
		assert.True(t, persistence.IsPublicationNotFound(pubErr))
		assert.True(t, errors.Is(pubErr, persistence.ErrPublicationNotFound))
	})

	t.Run("catalog error contains context", func(t *testing.T) {
		err := persistence.NewCatalogError("UpdateStatus", "entry-123", persistence.ErrStatusConflict)

		assert.Contains(t, err.Error(), "UpdateStatus")
		assert.Contains(t, err.Error(), "entry-123")
		assert.Contains(t, err.Error(), "workflow status conflict")
	})

	t.Run("catalog error message is included", func(t *testing.T) {
		err := &persistence.CatalogError{
			Op:      "UpdateStatus",
			EntryID: "entry-9",
			Err:     persistence.ErrStatusConflict,
			Message: "expected proposed",
		}

		assert.Equal(t, "UpdateStatus operation failed for catalog entry entry-9: expected proposed (workflow status conflict)", err.Error())
	})
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 50, persistence.ClampLimit(0, 50, 100))
	assert.Equal(t, 50, persistence.ClampLimit(-3, 50, 100))
	assert.Equal(t, 100, persistence.ClampLimit(500, 50, 100))
	assert.Equal(t, 7, persistence.ClampLimit(7, 50, 100))
}
