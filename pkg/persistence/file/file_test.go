package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(id, tenantID string, status models.WorkflowStatus) *models.CatalogEntry {
	return &models.CatalogEntry{
		ID:             id,
		TenantID:       tenantID,
		Title:          "Theme " + id,
		Description:    "Description of " + id,
		Difficulty:     models.DifficultyBeginner,
		Tags:           []string{"math"},
		WorkflowStatus: status,
		CreatedBy:      "author-1",
	}
}

func TestNewPersistence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/tmp/test", NewPersistence("/tmp/test").root)
	assert.Equal(t, "/tmp/test", NewPersistence("file:///tmp/test").root)
}

func TestPersistence_HealthCheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.Error(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()))
}

func TestCatalogRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	testDir := t.TempDir()
	p := NewPersistence(testDir)
	repo := p.CatalogRepository()

	entry := newEntry("entry-1", "tenant-a", models.WorkflowStatusDraft)
	require.NoError(t, repo.Create(t.Context(), entry))
	assert.FileExists(t, filepath.Join(testDir, "catalog", "entry-1.json"))
	assert.False(t, entry.CreatedAt.IsZero())

	got, err := repo.GetByID(t.Context(), "entry-1", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "Theme entry-1", got.Title)
	assert.Equal(t, models.WorkflowStatusDraft, got.WorkflowStatus)

	_, err = repo.GetByID(t.Context(), "entry-1", "tenant-b")
	assert.True(t, persistence.IsCatalogEntryNotFound(err))

	_, err = repo.GetByID(t.Context(), "../entry-1", "tenant-a")
	assert.True(t, persistence.IsCatalogEntryNotFound(err))

	err = repo.Create(t.Context(), newEntry("entry-1", "tenant-a", models.WorkflowStatusDraft))
	assert.ErrorIs(t, err, persistence.ErrAlreadyExists)
}

func TestCatalogRepository_UpdateStatus(t *testing.T) {
	t.Parallel()

	p := NewPersistence(t.TempDir())
	repo := p.CatalogRepository()
	require.NoError(t, repo.Create(t.Context(), newEntry("entry-1", "tenant-a", models.WorkflowStatusValidated)))

	publishedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	err := repo.UpdateStatus(t.Context(), persistence.StatusUpdate{
		EntryID:     "entry-1",
		TenantID:    "tenant-a",
		From:        models.WorkflowStatusValidated,
		To:          models.WorkflowStatusPublished,
		UpdatedBy:   "director-1",
		UpdatedAt:   publishedAt,
		PublishedAt: &publishedAt,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(t.Context(), "entry-1", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPublished, got.WorkflowStatus)
	assert.Equal(t, "director-1", got.UpdatedBy)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, got.PublishedAt.Equal(publishedAt))

	err = repo.UpdateStatus(t.Context(), persistence.StatusUpdate{
		EntryID:  "entry-1",
		TenantID: "tenant-a",
		From:     models.WorkflowStatusValidated,
		To:       models.WorkflowStatusPublished,
	})
	assert.True(t, persistence.IsStatusConflict(err))
}

func TestCatalogRepository_ListAndCount(t *testing.T) {
	t.Parallel()

	p := NewPersistence(t.TempDir())
	repo := p.CatalogRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	fixtures := []*models.CatalogEntry{
		newEntry("a", "tenant-a", models.WorkflowStatusPublished),
		newEntry("b", "tenant-a", models.WorkflowStatusPublished),
		newEntry("c", "tenant-a", models.WorkflowStatusDraft),
		newEntry("d", "tenant-b", models.WorkflowStatusPublished),
	}
	fixtures[1].Subject = "physics"
	fixtures[1].Tags = []string{"optics"}
	fixtures[2].Title = "Les volcans"

	for i, entry := range fixtures {
		entry.UpdatedAt = base.Add(time.Duration(i) * time.Hour)
		entry.CreatedAt = entry.UpdatedAt
		require.NoError(t, repo.Create(t.Context(), entry))
	}

	published := models.WorkflowStatusPublished

	tests := []struct {
		name   string
		filter models.CatalogFilter
		want   []string
	}{
		{name: "tenant scoped, most recent first", filter: models.CatalogFilter{TenantID: "tenant-a"}, want: []string{"c", "b", "a"}},
		{name: "status", filter: models.CatalogFilter{TenantID: "tenant-a", Status: &published}, want: []string{"b", "a"}},
		{name: "subject", filter: models.CatalogFilter{TenantID: "tenant-a", Subject: "physics"}, want: []string{"b"}},
		{name: "tag", filter: models.CatalogFilter{TenantID: "tenant-a", Tag: "math"}, want: []string{"c", "a"}},
		{name: "search is case insensitive", filter: models.CatalogFilter{TenantID: "tenant-a", Search: "VOLCAN"}, want: []string{"c"}},
		{name: "search matches tags", filter: models.CatalogFilter{TenantID: "tenant-a", Search: "opt"}, want: []string{"b"}},
		{name: "limit and offset", filter: models.CatalogFilter{TenantID: "tenant-a", Limit: 1, Offset: 1}, want: []string{"b"}},
		{name: "offset past end", filter: models.CatalogFilter{TenantID: "tenant-a", Offset: 10}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := repo.List(t.Context(), tt.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(entries))
			for _, e := range entries {
				ids = append(ids, e.ID)
			}

			assert.Equal(t, tt.want, ids)
		})
	}

	stats, err := repo.CountByStatus(t.Context(), "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStats{models.WorkflowStatusPublished: 2, models.WorkflowStatusDraft: 1}, stats)
}

func TestPersistence_RunInTx(t *testing.T) {
	t.Parallel()

	p := NewPersistence(t.TempDir())
	catalog := p.CatalogRepository()
	history := p.HistoryRepository()
	require.NoError(t, catalog.Create(t.Context(), newEntry("entry-1", "tenant-a", models.WorkflowStatusDraft)))

	transition := func(ctx context.Context) error {
		if err := catalog.UpdateStatus(ctx, persistence.StatusUpdate{
			EntryID:   "entry-1",
			TenantID:  "tenant-a",
			From:      models.WorkflowStatusDraft,
			To:        models.WorkflowStatusProposed,
			UpdatedBy: "author-1",
			UpdatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		return history.Append(ctx, &models.WorkflowTransition{
			ID:             "t-1",
			CatalogEntryID: "entry-1",
			UserID:         "author-1",
			FromStatus:     models.WorkflowStatusDraft,
			ToStatus:       models.WorkflowStatusProposed,
			CreatedAt:      time.Now().UTC(),
		})
	}

	t.Run("rollback discards every write", func(t *testing.T) {
		boom := errors.New("boom")

		err := p.RunInTx(t.Context(), func(ctx context.Context) error {
			if err := transition(ctx); err != nil {
				return err
			}

			staged, err := catalog.GetForUpdate(ctx, "entry-1", "tenant-a")
			require.NoError(t, err)
			assert.Equal(t, models.WorkflowStatusProposed, staged.WorkflowStatus)

			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := catalog.GetByID(t.Context(), "entry-1", "tenant-a")
		require.NoError(t, err)
		assert.Equal(t, models.WorkflowStatusDraft, got.WorkflowStatus)

		transitions, err := history.ListByEntry(t.Context(), "entry-1", "tenant-a")
		require.NoError(t, err)
		assert.Empty(t, transitions)
	})

	t.Run("commit persists every write", func(t *testing.T) {
		require.NoError(t, p.RunInTx(t.Context(), transition))

		got, err := catalog.GetByID(t.Context(), "entry-1", "tenant-a")
		require.NoError(t, err)
		assert.Equal(t, models.WorkflowStatusProposed, got.WorkflowStatus)

		transitions, err := history.ListByEntry(t.Context(), "entry-1", "tenant-a")
		require.NoError(t, err)
		require.Len(t, transitions, 1)
		assert.Equal(t, models.WorkflowStatusProposed, transitions[0].ToStatus)
	})

	t.Run("panic discards writes", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = p.RunInTx(t.Context(), func(ctx context.Context) error {
				require.NoError(t, history.Append(ctx, &models.WorkflowTransition{
					ID: "t-panic", CatalogEntryID: "entry-1", UserID: "author-1", CreatedAt: time.Now().UTC(),
				}))
				panic("unexpected")
			})
		})

		transitions, err := history.ListByEntry(t.Context(), "entry-1", "tenant-a")
		require.NoError(t, err)
		assert.Len(t, transitions, 1)
	})
}

func TestPersistence_RunInTxFailedCommit(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	p := NewPersistence(root)
	catalog := p.CatalogRepository()
	require.NoError(t, catalog.Create(t.Context(), newEntry("entry-1", "tenant-a", models.WorkflowStatusDraft)))

	// a directory in place of the history temp file makes the second staged write fail
	require.NoError(t, os.MkdirAll(filepath.Join(root, "history", "entry-1.json.tmp"), 0750))

	err := p.RunInTx(t.Context(), func(ctx context.Context) error {
		if err := catalog.UpdateStatus(ctx, persistence.StatusUpdate{
			EntryID:   "entry-1",
			TenantID:  "tenant-a",
			From:      models.WorkflowStatusDraft,
			To:        models.WorkflowStatusProposed,
			UpdatedBy: "author-1",
			UpdatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		return p.HistoryRepository().Append(ctx, &models.WorkflowTransition{
			ID:             "t-1",
			CatalogEntryID: "entry-1",
			UserID:         "author-1",
			FromStatus:     models.WorkflowStatusDraft,
			ToStatus:       models.WorkflowStatusProposed,
			CreatedAt:      time.Now().UTC(),
		})
	})
	require.Error(t, err)

	got, err := catalog.GetByID(t.Context(), "entry-1", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusDraft, got.WorkflowStatus)
	assert.NoFileExists(t, filepath.Join(root, "catalog", "entry-1.json.tmp"))
}

func TestHistoryRepository_ListByEntry(t *testing.T) {
	t.Parallel()

	p := NewPersistence(t.TempDir())
	history := p.HistoryRepository()
	require.NoError(t, p.CatalogRepository().Create(t.Context(), newEntry("e", "tenant-a", models.WorkflowStatusPublished)))
	require.NoError(t, p.UserRepository().Save(t.Context(), &models.User{
		ID: "u-1", TenantID: "tenant-a", Name: "Alice Martin", Email: "alice@example.org", Role: models.RoleTeacher,
	}))
	// same id as the last actor, owned by another tenant
	require.NoError(t, p.UserRepository().Save(t.Context(), &models.User{
		ID: "ghost", TenantID: "tenant-b", Name: "Mallory", Role: models.RoleAdmin,
	}))

	same := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	records := []*models.WorkflowTransition{
		{ID: "t-1", CatalogEntryID: "e", UserID: "u-1", FromStatus: "draft", ToStatus: "proposed", CreatedAt: same.Add(-time.Hour)},
		{ID: "t-2", CatalogEntryID: "e", UserID: "u-1", FromStatus: "proposed", ToStatus: "validated", CreatedAt: same},
		{ID: "t-3", CatalogEntryID: "e", UserID: "ghost", FromStatus: "validated", ToStatus: "published", CreatedAt: same},
	}

	for _, r := range records {
		require.NoError(t, history.Append(t.Context(), r))
	}

	transitions, err := history.ListByEntry(t.Context(), "e", "tenant-a")
	require.NoError(t, err)
	require.Len(t, transitions, 3)

	assert.Equal(t, "t-3", transitions[0].ID)
	assert.Equal(t, "t-2", transitions[1].ID)
	assert.Equal(t, "t-1", transitions[2].ID)
	assert.Equal(t, "Alice Martin", transitions[1].UserName)
	assert.Equal(t, "alice@example.org", transitions[1].UserEmail)
	assert.Empty(t, transitions[0].UserName)

	again, err := history.ListByEntry(t.Context(), "e", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, transitions, again)

	foreign, err := history.ListByEntry(t.Context(), "e", "tenant-b")
	require.NoError(t, err)
	assert.Empty(t, foreign)
}

func TestUserRepository(t *testing.T) {
	t.Parallel()

	p := NewPersistence(t.TempDir())
	users := p.UserRepository()

	for _, u := range []*models.User{
		{ID: "r-2", TenantID: "tenant-a", Role: models.RoleReferent},
		{ID: "r-1", TenantID: "tenant-a", Role: models.RoleReferent},
		{ID: "t-1", TenantID: "tenant-a", Role: models.RoleTeacher},
		{ID: "r-3", TenantID: "tenant-b", Role: models.RoleReferent},
	} {
		require.NoError(t, users.Save(t.Context(), u))
	}

	referent, err := users.GetByID(t.Context(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleReferent, referent.Role)
	assert.Equal(t, "tenant-a", referent.TenantID)

	_, err = users.GetByID(t.Context(), "nobody")
	assert.True(t, persistence.IsUserNotFound(err))

	err = users.Save(t.Context(), &models.User{ID: "r-1", TenantID: "tenant-b", Name: "Mallory", Role: models.RoleReferent})
	assert.True(t, persistence.IsUserNotFound(err))

	referent, err = users.GetByID(t.Context(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", referent.TenantID)
	assert.Empty(t, referent.Name)
}

func TestNotificationRepository_ListForUser(t *testing.T) {
	t.Parallel()

	p := NewPersistence(t.TempDir())
	repo := p.NotificationRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, n := range []*models.Notification{
		{ID: "n-1", TenantID: "tenant-a", UserRole: models.RoleReferent, Type: models.NotificationThemeSubmitted},
		{ID: "n-2", TenantID: "tenant-a", UserID: "r-1", Type: models.NotificationThemeValidated},
		{ID: "n-3", TenantID: "tenant-a", UserID: "other", Type: models.NotificationThemeRejected},
		{ID: "n-4", TenantID: "tenant-b", UserRole: models.RoleReferent, Type: models.NotificationThemeSubmitted},
	} {
		n.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Save(t.Context(), n))
	}

	user := &models.User{ID: "r-1", TenantID: "tenant-a", Role: models.RoleReferent}

	notifications, err := repo.ListForUser(t.Context(), user, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	assert.Equal(t, "n-2", notifications[0].ID)
	assert.Equal(t, "n-1", notifications[1].ID)

	limited, err := repo.ListForUser(t.Context(), user, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPublicationRepository(t *testing.T) {
	t.Parallel()

	p := NewPersistence(t.TempDir())
	repo := p.PublicationRepository()

	pub := &models.Publication{
		ID:              "pub-1",
		TenantID:        "tenant-a",
		UserID:          "t-1",
		CatalogEntryID:  "entry-1",
		PublicationType: models.PublicationTypeCatalog,
		Status:          models.PublicationStatusPending,
	}
	require.NoError(t, repo.Save(t.Context(), pub))

	got, err := repo.GetByID(t.Context(), "pub-1")
	require.NoError(t, err)
	assert.Equal(t, models.PublicationStatusPending, got.Status)

	got.Status = models.PublicationStatusFailed
	got.ErrorMessage = "partner unavailable"
	require.NoError(t, repo.Save(t.Context(), got))

	require.NoError(t, repo.Save(t.Context(), &models.Publication{
		ID: "pub-2", TenantID: "tenant-a", UserID: "t-2", Status: models.PublicationStatusPublished,
	}))

	failed, err := repo.ListFailed(t.Context(), 0, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "partner unavailable", failed[0].ErrorMessage)

	got.Attempts = 3
	require.NoError(t, repo.Save(t.Context(), got))

	failed, err = repo.ListFailed(t.Context(), 3, 10)
	require.NoError(t, err)
	assert.Empty(t, failed)

	failed, err = repo.ListFailed(t.Context(), 4, 10)
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	own, err := repo.List(t.Context(), models.PublicationFilter{TenantID: "tenant-a", UserID: "t-2"})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "pub-2", own[0].ID)

	_, err = repo.GetByID(t.Context(), "missing")
	assert.True(t, persistence.IsPublicationNotFound(err))
}
