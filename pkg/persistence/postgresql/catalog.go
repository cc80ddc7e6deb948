package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/persistence"
	"github.com/lib/pq"
)

const catalogColumns = `
	id
  , tenant_id
  , title
  , description
  , subject
  , level
  , difficulty
  , tags
  , content
  , workflow_status
  , current_version_id
  , created_by
  , updated_by
  , created_at
  , updated_at
  , published_at
`

// CatalogRepository handles catalog entry database operations.
type CatalogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *CatalogRepository) Create(ctx context.Context, entry *models.CatalogEntry) error {
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}

	tags := entry.Tags
	if tags == nil {
		tags = []string{}
	}

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	var contentJSON any
	if entry.Content != nil {
		body, err := json.Marshal(entry.Content)
		if err != nil {
			return fmt.Errorf("failed to marshal content: %w", err)
		}

		contentJSON = body
	}

	query := `
		INSERT INTO catalog_entries (` + catalogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = querierFromCtx(ctx, r.db).ExecContext(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.Title,
		entry.Description,
		nullString(entry.Subject),
		nullString(entry.Level),
		entry.Difficulty,
		tagsJSON,
		contentJSON,
		entry.WorkflowStatus,
		nullString(entry.CurrentVersionID),
		entry.CreatedBy,
		nullString(entry.UpdatedBy),
		entry.CreatedAt,
		entry.UpdatedAt,
		entry.PublishedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return persistence.NewCatalogError("Create", entry.ID, persistence.ErrAlreadyExists)
		}

		return persistence.NewCatalogError("Create", entry.ID, err)
	}

	return nil
}

func (r *CatalogRepository) GetByID(ctx context.Context, id, tenantID string) (*models.CatalogEntry, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_entries WHERE id = $1 AND tenant_id = $2`

	return r.getOne(ctx, "GetByID", id, query, id, tenantID)
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (r *CatalogRepository) GetForUpdate(ctx context.Context, id, tenantID string) (*models.CatalogEntry, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_entries WHERE id = $1 AND tenant_id = $2 FOR UPDATE`

	return r.getOne(ctx, "GetForUpdate", id, query, id, tenantID)
}

func (r *CatalogRepository) UpdateStatus(ctx context.Context, update persistence.StatusUpdate) error {
	query := `
		UPDATE catalog_entries
		SET workflow_status = $1
		  , updated_by = $2
		  , updated_at = $3
		  , published_at = COALESCE($4, published_at)
		WHERE id = $5 AND tenant_id = $6 AND workflow_status = $7
	`

	q := querierFromCtx(ctx, r.db)

	result, err := q.ExecContext(ctx, query,
		update.To,
		nullString(update.UpdatedBy),
		update.UpdatedAt,
		update.PublishedAt,
		update.EntryID,
		update.TenantID,
		update.From,
	)
	if err != nil {
		return persistence.NewCatalogError("UpdateStatus", update.EntryID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewCatalogError("UpdateStatus", update.EntryID, err)
	}

	if affected == 1 {
		return nil
	}

	var current models.WorkflowStatus

	err = q.QueryRowContext(ctx,
		`SELECT workflow_status FROM catalog_entries WHERE id = $1 AND tenant_id = $2`,
		update.EntryID, update.TenantID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.NewCatalogError("UpdateStatus", update.EntryID, persistence.ErrCatalogEntryNotFound)
	}

	if err != nil {
		return persistence.NewCatalogError("UpdateStatus", update.EntryID, err)
	}

	return &persistence.CatalogError{
		Op:      "UpdateStatus",
		EntryID: update.EntryID,
		Err:     persistence.ErrStatusConflict,
		Message: fmt.Sprintf("expected %s, found %s", update.From, current),
	}
}

// List orders by last update, most recent first.
func (r *CatalogRepository) List(ctx context.Context, filter models.CatalogFilter) ([]*models.CatalogEntry, error) {
	where := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}

	arg := func(v any) string {
		args = append(args, v)

		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != nil {
		where = append(where, "workflow_status = "+arg(*filter.Status))
	}

	if filter.Subject != "" {
		where = append(where, "subject = "+arg(filter.Subject))
	}

	if filter.Level != "" {
		where = append(where, "level = "+arg(filter.Level))
	}

	if filter.Difficulty != "" {
		where = append(where, "difficulty = "+arg(filter.Difficulty))
	}

	if filter.Tag != "" {
		where = append(where, "tags ? "+arg(filter.Tag))
	}

	if filter.Search != "" {
		p := arg("%" + escapeLike(filter.Search) + "%")
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+" OR tags::text ILIKE "+p+")")
	}

	query := `SELECT ` + catalogColumns + ` FROM catalog_entries WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY updated_at DESC, id ASC`

	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := querierFromCtx(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog entries: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	entries := make([]*models.CatalogEntry, 0)

	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog entries: %w", err)
	}

	return entries, nil
}

func (r *CatalogRepository) CountByStatus(ctx context.Context, tenantID string) (models.WorkflowStats, error) {
	rows, err := querierFromCtx(ctx, r.db).QueryContext(ctx,
		`SELECT workflow_status, COUNT(*) FROM catalog_entries WHERE tenant_id = $1 GROUP BY workflow_status`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count catalog entries: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	stats := make(models.WorkflowStats)

	for rows.Next() {
		var (
			status models.WorkflowStatus
			count  int
		)

		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan workflow stats: %w", err)
		}

		stats[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow stats: %w", err)
	}

	return stats, nil
}

func (r *CatalogRepository) getOne(ctx context.Context, op, id, query string, args ...any) (*models.CatalogEntry, error) {
	entry, err := scanCatalogEntry(querierFromCtx(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewCatalogError(op, id, persistence.ErrCatalogEntryNotFound)
		}

		return nil, persistence.NewCatalogError(op, id, err)
	}

	return entry, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCatalogEntry(row scanner) (*models.CatalogEntry, error) {
	var (
		entry                                     models.CatalogEntry
		subject, level, currentVersion, updatedBy sql.NullString
		tagsJSON, contentJSON                     []byte
		publishedAt                               sql.NullTime
	)

	err := row.Scan(
		&entry.ID,
		&entry.TenantID,
		&entry.Title,
		&entry.Description,
		&subject,
		&level,
		&entry.Difficulty,
		&tagsJSON,
		&contentJSON,
		&entry.WorkflowStatus,
		&currentVersion,
		&entry.CreatedBy,
		&updatedBy,
		&entry.CreatedAt,
		&entry.UpdatedAt,
		&publishedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Subject = subject.String
	entry.Level = level.String
	entry.CurrentVersionID = currentVersion.String
	entry.UpdatedBy = updatedBy.String

	if publishedAt.Valid {
		t := publishedAt.Time
		entry.PublishedAt = &t
	}

	entry.Tags = []string{}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &entry.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	if len(contentJSON) > 0 {
		if err := json.Unmarshal(contentJSON, &entry.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal content: %w", err)
		}
	}

	return &entry, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
