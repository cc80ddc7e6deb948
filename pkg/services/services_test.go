package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/edulab/orchestrator/pkg/mocks"
	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/persistence/file"
	"github.com/edulab/orchestrator/pkg/services"
	"github.com/edulab/orchestrator/pkg/workflow"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	author   = models.Actor{UserID: "teacher-1", TenantID: "tenant-a", Role: models.RoleTeacher}
	peer     = models.Actor{UserID: "teacher-2", TenantID: "tenant-a", Role: models.RoleTeacher}
	referent = models.Actor{UserID: "referent-1", TenantID: "tenant-a", Role: models.RoleReferent}
	admin    = models.Actor{UserID: "admin-1", TenantID: "tenant-a", Role: models.RoleAdmin}
	student  = models.Actor{UserID: "student-1", TenantID: "tenant-a", Role: models.RoleStudent}
	outsider = models.Actor{UserID: "admin-9", TenantID: "tenant-b", Role: models.RoleAdmin}
)

type fixture struct {
	store      *file.Persistence
	notifier   *mocks.MockNotifier
	pusher     *mocks.MockPusher
	catalog    *services.Catalog
	publishing *services.Publishing
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	notifier := &mocks.MockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Maybe()

	pusher := &mocks.MockPusher{}
	engine := workflow.NewEngine(store, notifier, logger)

	return &fixture{
		store:      store,
		notifier:   notifier,
		pusher:     pusher,
		catalog:    services.NewCatalog(store, engine, logger),
		publishing: services.NewPublishing(store, pusher, notifier, logger),
	}
}

func compliantContent() map[string]any {
	return map[string]any{
		"questions": []any{
			map[string]any{
				"id":            "q1",
				"text":          "Quelle est la capitale de la France ?",
				"choices":       []any{"Paris", "Lyon", "Marseille"},
				"correctAnswer": 0,
			},
		},
	}
}

// create stores a draft authored by author and walks it to status.
func (f *fixture) create(t *testing.T, status models.WorkflowStatus, content map[string]any) *models.CatalogEntry {
	t.Helper()

	ctx := context.Background()

	entry, err := f.catalog.CreateEntry(ctx, author, services.CreateEntryRequest{
		Title:       "Géographie de la France",
		Description: "Les grandes villes et les fleuves",
		Subject:     "geographie",
		Level:       "6e",
		Tags:        []string{"villes"},
		Content:     content,
	})
	require.NoError(t, err)

	steps := map[models.WorkflowStatus][]func() error{
		models.WorkflowStatusDraft: nil,
		models.WorkflowStatusProposed: {
			func() error { _, err := f.catalog.Submit(ctx, author, entry.ID, ""); return err },
		},
		models.WorkflowStatusPublished: {
			func() error { _, err := f.catalog.Submit(ctx, author, entry.ID, ""); return err },
			func() error { _, err := f.catalog.Validate(ctx, referent, entry.ID, ""); return err },
			func() error { _, err := f.catalog.Publish(ctx, admin, entry.ID, ""); return err },
		},
		models.WorkflowStatusArchived: {
			func() error { _, err := f.catalog.Archive(ctx, admin, entry.ID, ""); return err },
		},
	}

	walk, ok := steps[status]
	require.True(t, ok, "unsupported seed status %s", status)

	for _, step := range walk {
		require.NoError(t, step())
	}

	entry.WorkflowStatus = status

	return entry
}
