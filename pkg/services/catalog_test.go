package services_test

import (
	"context"
	"testing"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/services"
	"github.com/edulab/orchestrator/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_CreateEntry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		actor      models.Actor
		req        services.CreateEntryRequest
		check      func(t *testing.T, err error)
		difficulty models.Difficulty
	}{
		{
			name:       "teacher creates a draft with default difficulty",
			actor:      author,
			req:        services.CreateEntryRequest{Title: "  Les fractions  ", Description: "Additionner des fractions"},
			difficulty: models.DifficultyIntermediate,
		},
		{
			name:       "explicit difficulty is kept",
			actor:      referent,
			req:        services.CreateEntryRequest{Title: "Les volcans", Difficulty: models.DifficultyAdvanced},
			difficulty: models.DifficultyAdvanced,
		},
		{
			name:  "students cannot create themes",
			actor: student,
			req:   services.CreateEntryRequest{Title: "Mon thème"},
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.True(t, services.IsForbiddenError(err))
			},
		},
		{
			name:  "blank title",
			actor: author,
			req:   services.CreateEntryRequest{Title: "   "},
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.True(t, services.IsValidationError(err))
				assert.Contains(t, err.Error(), "Missing required field: title")
			},
		},
		{
			name:  "unknown difficulty",
			actor: author,
			req:   services.CreateEntryRequest{Title: "Les volcans", Difficulty: "expert"},
			check: func(t *testing.T, err error) {
				t.Helper()
				assert.True(t, services.IsValidationError(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)

			entry, err := f.catalog.CreateEntry(context.Background(), tt.actor, tt.req)
			if tt.check != nil {
				require.Error(t, err)
				assert.Nil(t, entry)
				tt.check(t, err)

				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, entry.ID)
			assert.Equal(t, models.WorkflowStatusDraft, entry.WorkflowStatus)
			assert.Equal(t, tt.actor.UserID, entry.CreatedBy)
			assert.Equal(t, tt.actor.TenantID, entry.TenantID)
			assert.Equal(t, tt.difficulty, entry.Difficulty)
			assert.NotNil(t, entry.Tags)

			stored, err := f.store.CatalogRepository().GetByID(context.Background(), entry.ID, tt.actor.TenantID)
			require.NoError(t, err)
			assert.Equal(t, entry.Title, stored.Title)
		})
	}
}

func TestCatalog_GetEntry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	entry := f.create(t, models.WorkflowStatusProposed, nil)

	details, err := f.catalog.GetEntry(ctx, referent, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusProposed, details.WorkflowStatus)
	require.Len(t, details.WorkflowHistory, 1)
	assert.Equal(t, models.WorkflowStatusDraft, details.WorkflowHistory[0].FromStatus)
	assert.ElementsMatch(t,
		[]models.WorkflowStatus{models.WorkflowStatusValidated, models.WorkflowStatusRejected},
		details.AvailableTransitions)

	details, err = f.catalog.GetEntry(ctx, author, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.WorkflowStatus{models.WorkflowStatusDraft}, details.AvailableTransitions)

	_, err = f.catalog.GetEntry(ctx, outsider, entry.ID)
	require.Error(t, err)
	assert.True(t, services.IsNotFoundError(err))
}

func TestCatalog_ListEntries(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	published := f.create(t, models.WorkflowStatusPublished, nil)
	draft := f.create(t, models.WorkflowStatusDraft, nil)
	_, err := f.catalog.CreateEntry(ctx, outsider, services.CreateEntryRequest{Title: "Ailleurs"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     services.ListEntriesRequest
		want    []string
		wantErr error
		limit   int
	}{
		{name: "published by default", want: []string{published.ID}, limit: 50},
		{name: "all statuses", req: services.ListEntriesRequest{Status: services.StatusAll}, want: []string{draft.ID, published.ID}, limit: 50},
		{name: "explicit status", req: services.ListEntriesRequest{Status: "draft"}, want: []string{draft.ID}, limit: 50},
		{name: "limit is clamped", req: services.ListEntriesRequest{Status: services.StatusAll, Limit: 500}, want: []string{draft.ID, published.ID}, limit: 100},
		{name: "tag filter", req: services.ListEntriesRequest{Status: services.StatusAll, Tag: "absent"}, want: []string{}, limit: 50},
		{name: "invalid status", req: services.ListEntriesRequest{Status: "lost"}, wantErr: services.ErrInvalidStatus},
		{name: "invalid difficulty", req: services.ListEntriesRequest{Difficulty: "expert"}, wantErr: services.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, err := f.catalog.ListEntries(ctx, author, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)

			ids := make([]string, 0, len(resp.Entries))
			for _, entry := range resp.Entries {
				ids = append(ids, entry.ID)
			}

			assert.ElementsMatch(t, tt.want, ids)
			assert.Equal(t, len(ids), resp.Count)
			assert.Equal(t, tt.limit, resp.Limit)
		})
	}
}

func TestCatalog_Stats(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.create(t, models.WorkflowStatusPublished, nil)
	f.create(t, models.WorkflowStatusDraft, nil)
	f.create(t, models.WorkflowStatusDraft, nil)

	stats, err := f.catalog.Stats(context.Background(), author)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", stats.TenantID)
	assert.Equal(t, 3, stats.TotalEntries)
	assert.Equal(t, 2, stats.ByStatus[models.WorkflowStatusDraft])
	assert.Equal(t, 1, stats.ByStatus[models.WorkflowStatusPublished])
	assert.Equal(t, 0, stats.ByStatus[models.WorkflowStatusArchived])
}

func TestCatalog_WorkflowActions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	entry := f.create(t, models.WorkflowStatusProposed, nil)

	_, err := f.catalog.Reject(ctx, referent, entry.ID, " ")
	require.Error(t, err)
	assert.True(t, workflow.IsKind(err, workflow.KindValidationFailed))

	result, err := f.catalog.Reject(ctx, referent, entry.ID, "Ajouter des exemples")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusRejected, result.NewStatus)

	result, err = f.catalog.ReturnToDraft(ctx, author, entry.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusDraft, result.NewStatus)

	_, err = f.catalog.Submit(ctx, peer, entry.ID, "")
	require.Error(t, err)
	assert.True(t, workflow.IsKind(err, workflow.KindValidationFailed))

	history, err := f.catalog.History(ctx, author, entry.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.WorkflowStatusDraft, history[0].ToStatus)
}

func TestCatalog_ValidateContent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	doc := compliantContent()
	doc["title"] = "Les capitales"
	doc["description"] = "Connaître les capitales européennes"
	doc["difficulty"] = "beginner"

	report := f.catalog.ValidateContent(doc, true)
	assert.True(t, report.Valid)
	assert.True(t, report.Compliant)
	assert.Equal(t, models.ContentTypeQuiz, report.ContentType)
	assert.Contains(t, report.Suggestions.Questions, "q1")
	assert.NotContains(t, doc, "content_type")

	report = f.catalog.ValidateContent(map[string]any{"title": "AB"}, false)
	assert.False(t, report.Valid)
	assert.False(t, report.Compliant)
	assert.Contains(t, report.Errors, "Title must be between 3 and 255 characters")
}

func TestCatalog_SyncUserAndNotifications(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	err := f.catalog.SyncUser(ctx, author, &models.User{ID: "teacher-1", Name: "Paul"})
	require.ErrorIs(t, err, services.ErrForbidden)

	err = f.catalog.SyncUser(ctx, admin, &models.User{ID: " "})
	require.ErrorIs(t, err, services.ErrInvalidRequest)

	user := &models.User{ID: "teacher-1", TenantID: "tenant-b", Name: "Paul Martin", Email: "paul@example.org", Role: models.RoleTeacher}
	require.NoError(t, f.catalog.SyncUser(ctx, admin, user))
	assert.Equal(t, "tenant-a", user.TenantID)

	stored, err := f.store.UserRepository().GetByID(ctx, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "Paul Martin", stored.Name)

	require.NoError(t, f.store.NotificationRepository().Save(ctx, &models.Notification{
		ID:       "n-1",
		TenantID: "tenant-a",
		UserRole: models.RoleTeacher,
		Type:     models.NotificationNewCatalogTheme,
	}))

	notifications, err := f.catalog.Notifications(ctx, author, 0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationNewCatalogTheme, notifications[0].Type)

	notifications, err = f.catalog.Notifications(ctx, referent, 0)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestCatalog_SyncUserCannotTakeOverOtherTenant(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.catalog.SyncUser(ctx, admin, &models.User{ID: "teacher-1", Name: "Alice", Role: models.RoleTeacher}))

	entry := f.create(t, models.WorkflowStatusProposed, nil)

	err := f.catalog.SyncUser(ctx, outsider, &models.User{ID: "teacher-1", Name: "Mallory", Role: models.RoleAdmin})
	require.ErrorIs(t, err, services.ErrUserNotFound)
	assert.True(t, services.IsNotFoundError(err))

	stored, err := f.store.UserRepository().GetByID(ctx, "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", stored.TenantID)
	assert.Equal(t, "Alice", stored.Name)

	history, err := f.catalog.History(ctx, author, entry.ID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, "Alice", history[0].UserName)
}

func TestCatalog_HealthCheck(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	message, ok := f.catalog.HealthCheck(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)
}
