// Package remote is the phone's view of cloud storage: the audio goes to an
// object store and the note metadata to a record database.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/common"
	"github.com/dmitrijs2005/wristnote/internal/cryptox"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/dmitrijs2005/wristnote/internal/remote/records"
	"github.com/google/uuid"
)

// ErrNotFound is returned for notes the remote store does not know.
var ErrNotFound = common.ErrorNotFound

// Store is what the phone needs from the cloud.
type Store interface {
	Upload(ctx context.Context, userID string, note models.Note, path string, progress func(sent, total int64)) error
	Delete(ctx context.Context, userID string, noteID uuid.UUID) error
	ReadURL(ctx context.Context, userID string, noteID uuid.UUID) (string, error)
}

type Blobs interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, digest string, progress func(sent, total int64)) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Records interface {
	Save(ctx context.Context, rec *records.Record) error
	Get(ctx context.Context, userID string, noteID uuid.UUID) (*records.Record, error)
	Delete(ctx context.Context, userID string, noteID uuid.UUID) (string, error)
}

// ObjectKey is the deterministic location of a note's audio, so repeating an
// upload overwrites instead of duplicating.
func ObjectKey(userID string, noteID uuid.UUID) string {
	return fmt.Sprintf("users/%s/notes/%s.m4a", userID, noteID)
}

type Service struct {
	blobs   Blobs
	records Records
	urlTTL  time.Duration
	logger  logging.Logger
	now     func() time.Time
}

var _ Store = (*Service)(nil)

func NewService(b Blobs, r Records, urlTTL time.Duration, l logging.Logger) *Service {
	return &Service{
		blobs:   b,
		records: r,
		urlTTL:  urlTTL,
		logger:  l.With("module", "remote"),
		now:     time.Now,
	}
}

// Upload writes the audio then the record. Both writes are idempotent.
func (s *Service) Upload(ctx context.Context, userID string, note models.Note, path string, progress func(sent, total int64)) error {
	digest, size, err := cryptox.FileDigest(path)
	if err != nil {
		return fmt.Errorf("digest audio: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	key := ObjectKey(userID, note.ID)
	if err := s.blobs.Put(ctx, key, f, size, digest, progress); err != nil {
		return err
	}

	rec := records.FromNote(userID, note, key, size, digest, s.now())
	if err := s.records.Save(ctx, rec); err != nil {
		return fmt.Errorf("save record: %w", err)
	}

	s.logger.Info(ctx, "note stored", "note_id", note.ID, "key", key, "bytes", size)
	return nil
}

// Delete removes a note's record and audio.
func (s *Service) Delete(ctx context.Context, userID string, noteID uuid.UUID) error {
	key, err := s.records.Delete(ctx, userID, noteID)
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("note %s: %w", noteID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return s.blobs.Delete(ctx, key)
}

// ReadURL returns a time-limited link to a note's audio.
func (s *Service) ReadURL(ctx context.Context, userID string, noteID uuid.UUID) (string, error) {
	rec, err := s.records.Get(ctx, userID, noteID)
	if errors.Is(err, common.ErrorNotFound) {
		return "", fmt.Errorf("note %s: %w", noteID, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return s.blobs.PresignGet(ctx, rec.StorageKey, s.urlTTL)
}
