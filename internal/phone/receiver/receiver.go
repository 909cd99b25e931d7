// Package receiver accepts notes arriving over the link on the phone and
// hands them to the upload queue.
package receiver

import (
	"context"

	"github.com/dmitrijs2005/wristnote/internal/artifacts"
	"github.com/dmitrijs2005/wristnote/internal/link"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/dmitrijs2005/wristnote/internal/models"
)

// Enqueuer takes ownership of a received note and its audio file.
type Enqueuer interface {
	Enqueue(ctx context.Context, note models.Note, path string)
}

type Receiver struct {
	audio  *artifacts.Store
	queue  Enqueuer
	device models.DeviceInfo
	logger logging.Logger
}

var (
	_ link.FileHandler    = (*Receiver)(nil)
	_ link.MessageHandler = (*Receiver)(nil)
)

func New(audio *artifacts.Store, queue Enqueuer, device models.DeviceInfo, l logging.Logger) *Receiver {
	return &Receiver{
		audio:  audio,
		queue:  queue,
		device: device,
		logger: l.With("module", "receiver"),
	}
}

// HandleFile moves a delivered file to the note's canonical location and
// queues it. Files with unusable tags are deleted and not retried; the watch
// keeps its copy until the user retries or discards the note.
func (r *Receiver) HandleFile(ctx context.Context, f link.InboundFile) {
	note, err := link.DecodeTags(f.Tags)
	if err != nil {
		r.discard(ctx, f.Path)
		r.logger.Warn(ctx, "dropping transfer with bad tags", "error", err)
		return
	}

	path, err := r.audio.Place(note.ID, f.Path)
	if err != nil {
		r.discard(ctx, f.Path)
		r.logger.Error(ctx, "store received audio", "note_id", note.ID, "error", err)
		return
	}

	note.Status = models.StatusReceived
	note.SinkDevice = r.device

	r.logger.Info(ctx, "note received", "note_id", note.ID, "duration_ms", note.DurationMs)
	r.queue.Enqueue(ctx, note, path)
}

// HandleMessage drops inbound messages; the phone expects none.
func (r *Receiver) HandleMessage(ctx context.Context, payload map[string]any) {
	r.logger.Warn(ctx, "unexpected message from watch", "type", payload[link.KeyType])
}

func (r *Receiver) discard(ctx context.Context, path string) {
	if err := artifacts.RemovePath(path); err != nil {
		r.logger.Error(ctx, "delete inbound file", "path", path, "error", err)
	}
}
