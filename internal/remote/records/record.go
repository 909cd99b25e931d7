// Package records keeps the structured part of uploaded notes in Postgres.
package records

import (
	"time"

	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/google/uuid"
)

// Record is one uploaded note, keyed by (UserID, NoteID).
type Record struct {
	UserID     string
	NoteID     uuid.UUID
	StorageKey string

	CreatedAt  time.Time
	DurationMs int64

	Transcription         string
	TranscriptionStatus   models.TranscriptionStatus
	TranscriptionLanguage string

	SourceDevice models.DeviceInfo
	SinkDevice   models.DeviceInfo

	SizeBytes  int64
	Digest     string
	UploadedAt time.Time
}

// FromNote builds the record for a note stored under key.
func FromNote(userID string, n models.Note, key string, size int64, digest string, at time.Time) *Record {
	return &Record{
		UserID:                userID,
		NoteID:                n.ID,
		StorageKey:            key,
		CreatedAt:             n.CreatedAt.UTC(),
		DurationMs:            n.DurationMs,
		Transcription:         n.Transcription,
		TranscriptionStatus:   n.TranscriptionStatus,
		TranscriptionLanguage: n.TranscriptionLanguage,
		SourceDevice:          n.SourceDevice,
		SinkDevice:            n.SinkDevice,
		SizeBytes:             size,
		Digest:                digest,
		UploadedAt:            at.UTC(),
	}
}
