// Package capture turns a finished recording into a queued note.
package capture

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/wristnote/internal/artifacts"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/dmitrijs2005/wristnote/internal/transcribe"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, n models.Note) error
}

type Service struct {
	audio       *artifacts.Store
	transcriber transcribe.Transcriber
	queue       Enqueuer
	device      models.DeviceInfo
	logger      logging.Logger
}

func NewService(audio *artifacts.Store, t transcribe.Transcriber, q Enqueuer, device models.DeviceInfo, l logging.Logger) *Service {
	return &Service{
		audio:       audio,
		transcriber: t,
		queue:       q,
		device:      device,
		logger:      l.With("module", "capture"),
	}
}

// Record imports the audio at src as a new note, transcribes it and hands it
// to the queue. A failed transcription is recorded on the note and does not
// stop it from being queued.
func (s *Service) Record(ctx context.Context, src string, durationMs int64) (models.Note, error) {
	n := models.NewNote(s.device)
	n.DurationMs = durationMs
	if err := n.Validate(); err != nil {
		return models.Note{}, err
	}

	path, err := s.audio.Import(n.ID, src)
	if err != nil {
		return models.Note{}, fmt.Errorf("capture: %w", err)
	}

	if err := transcribe.Apply(ctx, s.transcriber, &n, path); err != nil {
		s.logger.Warn(ctx, "transcription failed", "note_id", n.ID, "error", err)
	}

	if err := s.queue.Enqueue(ctx, n); err != nil {
		if rmErr := s.audio.Remove(n.ID); rmErr != nil {
			s.logger.Error(ctx, "cleanup after enqueue failure", "note_id", n.ID, "error", rmErr)
		}
		return models.Note{}, fmt.Errorf("enqueue: %w", err)
	}

	s.logger.Info(ctx, "note recorded", "note_id", n.ID, "transcription", n.TranscriptionStatus)
	return n, nil
}
