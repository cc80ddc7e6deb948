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
)

const publicationColumns = `
	id
  , tenant_id
  , user_id
  , catalog_entry_id
  , publication_type
  , target_classes
  , target_students
  , status
  , ergomate_theme_id
  , ergomate_assignment_id
  , error_message
  , attempts
  , ack_data
  , ack_received_at
  , created_at
  , updated_at
`

type PublicationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *PublicationRepository) Save(ctx context.Context, publication *models.Publication) error {
	now := time.Now().UTC()
	if publication.CreatedAt.IsZero() {
		publication.CreatedAt = now
	}

	if publication.UpdatedAt.IsZero() {
		publication.UpdatedAt = now
	}

	classes, err := jsonOrNull(publication.TargetClasses)
	if err != nil {
		return fmt.Errorf("failed to marshal target classes: %w", err)
	}

	students, err := jsonOrNull(publication.TargetStudents)
	if err != nil {
		return fmt.Errorf("failed to marshal target students: %w", err)
	}

	ackData, err := jsonOrNull(publication.AckData)
	if err != nil {
		return fmt.Errorf("failed to marshal acknowledgement: %w", err)
	}

	query := `
		INSERT INTO publications (` + publicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			target_classes = EXCLUDED.target_classes,
			target_students = EXCLUDED.target_students,
			ergomate_theme_id = EXCLUDED.ergomate_theme_id,
			ergomate_assignment_id = EXCLUDED.ergomate_assignment_id,
			error_message = EXCLUDED.error_message,
			attempts = EXCLUDED.attempts,
			ack_data = EXCLUDED.ack_data,
			ack_received_at = EXCLUDED.ack_received_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = querierFromCtx(ctx, r.db).ExecContext(ctx, query,
		publication.ID,
		publication.TenantID,
		publication.UserID,
		publication.CatalogEntryID,
		publication.PublicationType,
		classes,
		students,
		publication.Status,
		nullString(publication.ErgomateThemeID),
		nullString(publication.ErgomateAssignmentID),
		nullString(publication.ErrorMessage),
		publication.Attempts,
		ackData,
		publication.AckReceivedAt,
		publication.CreatedAt,
		publication.UpdatedAt,
	)
	if err != nil {
		return &persistence.PublicationError{Op: "Save", PublicationID: publication.ID, Err: err}
	}

	return nil
}

func (r *PublicationRepository) GetByID(ctx context.Context, id string) (*models.Publication, error) {
	row := querierFromCtx(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+publicationColumns+` FROM publications WHERE id = $1`, id)

	publication, err := scanPublication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrPublicationNotFound
		}

		return nil, &persistence.PublicationError{Op: "GetByID", PublicationID: id, Err: err}
	}

	return publication, nil
}

func (r *PublicationRepository) List(ctx context.Context, filter models.PublicationFilter) ([]*models.Publication, error) {
	where := []string{"tenant_id = $1"}
	args := []any{filter.TenantID}

	arg := func(v any) string {
		args = append(args, v)

		return "$" + strconv.Itoa(len(args))
	}

	if filter.UserID != "" {
		where = append(where, "user_id = "+arg(filter.UserID))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}

	if filter.PublicationType != "" {
		where = append(where, "publication_type = "+arg(filter.PublicationType))
	}

	query := `SELECT ` + publicationColumns + ` FROM publications WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	return r.query(ctx, query, args...)
}

func (r *PublicationRepository) ListFailed(ctx context.Context, maxAttempts, limit int) ([]*models.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE status = $1`
	args := []any{models.PublicationStatusFailed}

	if maxAttempts > 0 {
		args = append(args, maxAttempts)
		query += fmt.Sprintf(" AND attempts < $%d", len(args))
	}

	query += " ORDER BY updated_at ASC"

	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return r.query(ctx, query, args...)
}

func (r *PublicationRepository) query(ctx context.Context, query string, args ...any) ([]*models.Publication, error) {
	rows, err := querierFromCtx(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query publications: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	publications := make([]*models.Publication, 0)

	for rows.Next() {
		publication, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publication: %w", err)
		}

		publications = append(publications, publication)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating publications: %w", err)
	}

	return publications, nil
}

func scanPublication(row scanner) (*models.Publication, error) {
	var (
		p                                   models.Publication
		themeID, assignmentID, errorMessage sql.NullString
		classes, students, ackData          []byte
		ackReceivedAt                       sql.NullTime
	)

	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.UserID,
		&p.CatalogEntryID,
		&p.PublicationType,
		&classes,
		&students,
		&p.Status,
		&themeID,
		&assignmentID,
		&errorMessage,
		&p.Attempts,
		&ackData,
		&ackReceivedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ErgomateThemeID = themeID.String
	p.ErgomateAssignmentID = assignmentID.String
	p.ErrorMessage = errorMessage.String

	if ackReceivedAt.Valid {
		t := ackReceivedAt.Time
		p.AckReceivedAt = &t
	}

	for _, field := range []struct {
		raw  []byte
		dest any
	}{
		{classes, &p.TargetClasses},
		{students, &p.TargetStudents},
		{ackData, &p.AckData},
	} {
		if len(field.raw) == 0 {
			continue
		}

		if err := json.Unmarshal(field.raw, field.dest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal publication field: %w", err)
		}
	}

	return &p, nil
}
