package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/common"
	"github.com/dmitrijs2005/wristnote/internal/dbx"
	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/google/uuid"
)

// PostgresRepository implements record storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert writes rec, replacing an earlier record for the same user and note.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *Record) error {
	source, err := json.Marshal(rec.SourceDevice)
	if err != nil {
		return fmt.Errorf("encode source device: %w", err)
	}
	sink, err := json.Marshal(rec.SinkDevice)
	if err != nil {
		return fmt.Errorf("encode sink device: %w", err)
	}

	query := `
		INSERT INTO notes (user_id, note_id, storage_key, created_at, duration_ms,
			transcription, transcription_status, transcription_language,
			source_device, sink_device, size_bytes, digest, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, note_id)
		DO UPDATE SET
			storage_key = EXCLUDED.storage_key,
			duration_ms = EXCLUDED.duration_ms,
			transcription = EXCLUDED.transcription,
			transcription_status = EXCLUDED.transcription_status,
			transcription_language = EXCLUDED.transcription_language,
			source_device = EXCLUDED.source_device,
			sink_device = EXCLUDED.sink_device,
			size_bytes = EXCLUDED.size_bytes,
			digest = EXCLUDED.digest,
			uploaded_at = EXCLUDED.uploaded_at;
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.UserID, rec.NoteID.String(), rec.StorageKey, rec.CreatedAt, rec.DurationMs,
		rec.Transcription, string(rec.TranscriptionStatus), rec.TranscriptionLanguage,
		source, sink, rec.SizeBytes, rec.Digest, rec.UploadedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

// LogUpload appends an entry to the upload history of a note.
func (r *PostgresRepository) LogUpload(ctx context.Context, userID string, noteID uuid.UUID, digest string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO note_uploads (user_id, note_id, digest, uploaded_at) VALUES ($1, $2, $3, $4)`,
		userID, noteID.String(), digest, at)
	if err != nil {
		return fmt.Errorf("failed to log upload: %w", err)
	}
	return nil
}

// Get returns the record of one note or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, userID string, noteID uuid.UUID) (*Record, error) {
	query := `
		SELECT user_id, note_id, storage_key, created_at, duration_ms,
			transcription, transcription_status, transcription_language,
			source_device, sink_device, size_bytes, digest, uploaded_at
		FROM notes WHERE user_id=$1 AND note_id=$2
	`

	var (
		rec          Record
		id           string
		status       string
		source, sink []byte
	)
	err := r.db.QueryRowContext(ctx, query, userID, noteID.String()).Scan(
		&rec.UserID, &id, &rec.StorageKey, &rec.CreatedAt, &rec.DurationMs,
		&rec.Transcription, &status, &rec.TranscriptionLanguage,
		&source, &sink, &rec.SizeBytes, &rec.Digest, &rec.UploadedAt)
	if err = dbx.NotFound(err); errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select note: %w", err)
	}

	if rec.NoteID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("bad note id %q: %w", id, err)
	}
	rec.TranscriptionStatus = models.TranscriptionStatus(status)
	if err := json.Unmarshal(source, &rec.SourceDevice); err != nil {
		return nil, fmt.Errorf("decode source device: %w", err)
	}
	if err := json.Unmarshal(sink, &rec.SinkDevice); err != nil {
		return nil, fmt.Errorf("decode sink device: %w", err)
	}
	return &rec, nil
}

// Delete removes the record and returns its storage key.
func (r *PostgresRepository) Delete(ctx context.Context, userID string, noteID uuid.UUID) (string, error) {
	var key string
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM notes WHERE user_id=$1 AND note_id=$2 RETURNING storage_key`,
		userID, noteID.String()).Scan(&key)
	if err = dbx.NotFound(err); errors.Is(err, common.ErrorNotFound) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("failed to delete note: %w", err)
	}
	return key, nil
}
