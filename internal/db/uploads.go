package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/course-ingest/internal/store"
	"github.com/jonathan/course-ingest/internal/types"
)

// -----------------------------------------------------------------------------
// Upload Methods
// -----------------------------------------------------------------------------

const uploadColumns = `id, raw_text, filename, status, structured_result, error_message, created_at, updated_at`

// InsertUpload stores a new upload attempt and its first audit event
func (db *DB) InsertUpload(ctx context.Context, upload *types.UploadAttempt) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return translate("begin transaction", err)
	}
	defer rollback(ctx, tx)

	err = tx.QueryRow(ctx,
		`INSERT INTO course_uploads (id, raw_text, filename, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		upload.ID, upload.RawText, upload.Filename, string(upload.Status),
	).Scan(&upload.CreatedAt, &upload.UpdatedAt)
	if err != nil {
		return translate("insert upload", err)
	}

	if err := insertEvent(ctx, tx, upload.ID, upload.Status, "submitted "+upload.Filename); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return translate("commit upload", err)
	}
	return nil
}

// UpdateUpload moves an upload forward and appends an audit event in one transaction
func (db *DB) UpdateUpload(ctx context.Context, id uuid.UUID, update store.UploadUpdate) error {
	var resultJSON []byte
	if update.StructuredResult != nil {
		var err error
		resultJSON, err = json.Marshal(update.StructuredResult)
		if err != nil {
			return store.Wrap("update upload", fmt.Errorf("failed to marshal structured result: %w", err))
		}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return translate("begin transaction", err)
	}
	defer rollback(ctx, tx)

	tag, err := tx.Exec(ctx,
		`UPDATE course_uploads
		 SET status = $2,
		     structured_result = COALESCE($3, structured_result),
		     error_message = COALESCE($4, error_message),
		     updated_at = NOW()
		 WHERE id = $1 AND status = ANY($5)`,
		id, string(update.Status), resultJSON, update.ErrorMessage,
		statusStrings(update.Status.AllowedFrom()),
	)
	if err != nil {
		return translate("update upload", err)
	}

	if tag.RowsAffected() == 0 {
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM course_uploads WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return &store.PersistenceError{Op: "update upload", Err: fmt.Errorf("%w: upload %s", store.ErrNotFound, id)}
		}
		if err != nil {
			return translate("update upload", err)
		}
		return &store.PersistenceError{
			Op:  "update upload",
			Err: fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, current, update.Status),
		}
	}

	if err := insertEvent(ctx, tx, id, update.Status, update.Detail); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return translate("commit upload update", err)
	}
	return nil
}

// GetUpload retrieves an upload by ID, returning nil when it does not exist
func (db *DB) GetUpload(ctx context.Context, id uuid.UUID) (*types.UploadAttempt, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+uploadColumns+` FROM course_uploads WHERE id = $1`, id)

	upload, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("get upload", err)
	}
	return upload, nil
}

// ListUploads retrieves recent uploads, newest first
func (db *DB) ListUploads(ctx context.Context, filter store.UploadFilter) ([]types.UploadAttempt, error) {
	if filter.Limit <= 0 {
		filter.Limit = store.DefaultListLimit
	}

	query := `SELECT ` + uploadColumns + ` FROM course_uploads WHERE 1=1`
	args := []any{}
	argNum := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(filter.Status))
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filter.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list uploads", err)
	}
	defer rows.Close()

	var uploads []types.UploadAttempt
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, translate("scan upload", err)
		}
		uploads = append(uploads, *upload)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list uploads", err)
	}
	return uploads, nil
}

// ListUploadEvents returns the audit trail of an upload in write order
func (db *DB) ListUploadEvents(ctx context.Context, id uuid.UUID) ([]types.UploadEvent, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, upload_id, status, detail, created_at
		 FROM course_upload_events WHERE upload_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, translate("list upload events", err)
	}
	defer rows.Close()

	var events []types.UploadEvent
	for rows.Next() {
		var e types.UploadEvent
		var status string
		if err := rows.Scan(&e.ID, &e.UploadID, &status, &e.Detail, &e.CreatedAt); err != nil {
			return nil, translate("scan upload event", err)
		}
		e.Status = types.UploadStatus(status)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list upload events", err)
	}
	return events, nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, id uuid.UUID, status types.UploadStatus, detail string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO course_upload_events (upload_id, status, detail) VALUES ($1, $2, $3)`,
		id, string(status), detail,
	)
	if err != nil {
		return translate("insert upload event", err)
	}
	return nil
}

func scanUpload(row pgx.Row) (*types.UploadAttempt, error) {
	var u types.UploadAttempt
	var status string
	var resultJSON []byte
	if err := row.Scan(&u.ID, &u.RawText, &u.Filename, &status, &resultJSON,
		&u.ErrorMessage, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Status = types.UploadStatus(status)
	if len(resultJSON) > 0 {
		var data types.StructuredCourseData
		if err := json.Unmarshal(resultJSON, &data); err != nil {
			return nil, fmt.Errorf("failed to decode structured result: %w", err)
		}
		u.StructuredResult = &data
	}
	return &u, nil
}
