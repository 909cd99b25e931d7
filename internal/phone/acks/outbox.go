package acks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/dbx"
	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/google/uuid"
)

// Outbox stores acknowledgments that could not be delivered yet. At most one
// ack per note is kept; a newer one replaces the older.
type Outbox interface {
	Put(ctx context.Context, ack models.Ack) error
	List(ctx context.Context) ([]models.Ack, error)
	Delete(ctx context.Context, noteID uuid.UUID) error
}

type SQLiteOutbox struct {
	db dbx.DBTX
}

func NewSQLiteOutbox(db dbx.DBTX) *SQLiteOutbox {
	return &SQLiteOutbox{db: db}
}

func (r *SQLiteOutbox) Put(ctx context.Context, ack models.Ack) error {
	var uploadedAt sql.NullInt64
	if ack.UploadedAt != nil {
		uploadedAt = sql.NullInt64{Int64: ack.UploadedAt.Unix(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ack_outbox (note_id, status, uploaded_at, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(note_id) DO UPDATE SET
			status = excluded.status,
			uploaded_at = excluded.uploaded_at,
			attempts = ack_outbox.attempts + 1
	`, ack.NoteID.String(), string(ack.Status), uploadedAt, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to park ack[%s]: %w", ack.NoteID, err)
	}
	return nil
}

func (r *SQLiteOutbox) List(ctx context.Context) ([]models.Ack, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT note_id, status, uploaded_at FROM ack_outbox ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list acks: %w", err)
	}
	defer rows.Close()

	var result []models.Ack
	for rows.Next() {
		var (
			id         string
			status     string
			uploadedAt sql.NullInt64
		)
		if err := rows.Scan(&id, &status, &uploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ack row: %w", err)
		}

		noteID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("bad note id in outbox %q: %w", id, err)
		}

		a := models.Ack{NoteID: noteID, Status: models.AckStatus(status)}
		if uploadedAt.Valid {
			at := time.Unix(uploadedAt.Int64, 0).UTC()
			a.UploadedAt = &at
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ack rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteOutbox) Delete(ctx context.Context, noteID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ack_outbox WHERE note_id = ?`, noteID.String())
	if err != nil {
		return fmt.Errorf("failed to delete ack[%s]: %w", noteID, err)
	}
	return nil
}
