// Package sourcequeue is the watch-side queue of recorded notes.
//
// A note enters as queued, is handed to the link as transferring and leaves
// the queue only when the phone acknowledges a successful upload. Every
// mutation rewrites the state file before the lock is released.
package sourcequeue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/wristnote/internal/artifacts"
	"github.com/dmitrijs2005/wristnote/internal/common"
	"github.com/dmitrijs2005/wristnote/internal/link"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/google/uuid"
)

// Transport is the outbound part of the link the queue needs.
type Transport interface {
	TransferFile(ctx context.Context, path string, tags map[string]string) error
	Reachable() bool
}

// StateStore persists queue snapshots.
type StateStore interface {
	Load(v any) (bool, error)
	Save(v any) error
}

type snapshot struct {
	Notes []models.Note `json:"notes"`
}

type Queue struct {
	mu    sync.Mutex
	notes []models.Note

	state     StateStore
	audio     *artifacts.Store
	transport Transport
	logger    logging.Logger
}

// New rehydrates the queue from state. Notes that were transferring when the
// previous process stopped go back to queued since the link's outbox did not
// survive.
func New(ctx context.Context, state StateStore, audio *artifacts.Store, transport Transport, l logging.Logger) (*Queue, error) {
	q := &Queue{
		state:     state,
		audio:     audio,
		transport: transport,
		logger:    l.With("module", "source_queue"),
	}

	var snap snapshot
	if _, err := state.Load(&snap); err != nil {
		return nil, fmt.Errorf("load source queue: %w", err)
	}

	reset := 0
	for i := range snap.Notes {
		if snap.Notes[i].Status == models.StatusTransferring {
			snap.Notes[i].Status = models.StatusQueued
			reset++
		}
	}
	q.notes = snap.Notes

	if reset > 0 {
		q.persistLocked(ctx)
	}
	q.logger.Info(ctx, "source queue loaded", "notes", len(q.notes), "reset", reset)
	return q, nil
}

// Enqueue adds a freshly recorded note and tries to send it right away.
func (q *Queue) Enqueue(ctx context.Context, n models.Note) error {
	if err := n.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	if q.indexLocked(n.ID) >= 0 {
		q.mu.Unlock()
		q.logger.Warn(ctx, "note already queued", "note_id", n.ID)
		return nil
	}
	n.Status = models.StatusQueued
	q.notes = append(q.notes, n)
	q.persistLocked(ctx)
	q.mu.Unlock()

	q.logger.Info(ctx, "note enqueued", "note_id", n.ID, "duration_ms", n.DurationMs)
	q.transferNote(ctx, n.ID)
	return nil
}

// HandleMessage decodes an inbound link message. Anything that is not a
// well-formed ack is dropped.
func (q *Queue) HandleMessage(ctx context.Context, payload map[string]any) {
	ack, err := link.DecodeAck(payload)
	if err != nil {
		q.logger.Warn(ctx, "dropping undecodable message", "error", err)
		return
	}
	q.HandleAck(ctx, ack)
}

// HandleAck applies a terminal outcome reported by the phone. Unknown ids are
// ignored so the same ack may arrive any number of times.
func (q *Queue) HandleAck(ctx context.Context, ack models.Ack) {
	q.mu.Lock()
	i := q.indexLocked(ack.NoteID)
	if i < 0 {
		q.mu.Unlock()
		q.logger.Debug(ctx, "ack for unknown note", "note_id", ack.NoteID, "status", ack.Status)
		return
	}

	switch ack.Status {
	case models.AckUploaded:
		q.notes = slices.Delete(q.notes, i, i+1)
		q.persistLocked(ctx)
		q.mu.Unlock()

		if err := q.audio.Remove(ack.NoteID); err != nil {
			q.logger.Error(ctx, "delete audio", "note_id", ack.NoteID, "error", err)
		}
		q.logger.Info(ctx, "note uploaded", "note_id", ack.NoteID)

	case models.AckFailed:
		q.notes[i].Status = models.StatusFailed
		q.notes[i].LastError = "upload failed on phone"
		q.persistLocked(ctx)
		q.mu.Unlock()
		q.logger.Warn(ctx, "note failed on phone", "note_id", ack.NoteID)

	default:
		q.mu.Unlock()
		q.logger.Warn(ctx, "ignoring ack with unknown status", "note_id", ack.NoteID, "status", ack.Status)
	}
}

// RetryFailed moves failed notes back to queued and sends them again.
func (q *Queue) RetryFailed(ctx context.Context) {
	q.requeue(ctx, func(s models.Status) bool { return s == models.StatusFailed })
}

// RetryPending sends every queued or failed note again.
func (q *Queue) RetryPending(ctx context.Context) {
	q.requeue(ctx, func(s models.Status) bool {
		return s == models.StatusQueued || s == models.StatusFailed
	})
}

// Resume attempts transfer of queued notes, typically after startup.
func (q *Queue) Resume(ctx context.Context) {
	q.requeue(ctx, func(s models.Status) bool { return s == models.StatusQueued })
}

// Retry re-sends a single note whatever its current state.
func (q *Queue) Retry(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	i := q.indexLocked(id)
	if i < 0 {
		q.mu.Unlock()
		return fmt.Errorf("note %s: %w", id, common.ErrorNotFound)
	}
	q.notes[i].Status = models.StatusQueued
	q.notes[i].LastError = ""
	q.persistLocked(ctx)
	q.mu.Unlock()

	q.transferNote(ctx, id)
	return nil
}

// Discard abandons a note and deletes its audio.
func (q *Queue) Discard(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	i := q.indexLocked(id)
	if i < 0 {
		q.mu.Unlock()
		return fmt.Errorf("note %s: %w", id, common.ErrorNotFound)
	}
	q.notes = slices.Delete(q.notes, i, i+1)
	q.persistLocked(ctx)
	q.mu.Unlock()

	q.logger.Info(ctx, "note discarded", "note_id", id)
	return q.audio.Remove(id)
}

// HandleTransferFailure marks a transferring note failed once the link has
// given up on it, so the next reachability retry or a manual retry sends it
// again.
func (q *Queue) HandleTransferFailure(ctx context.Context, tags map[string]string, err error) {
	id, perr := uuid.Parse(tags[link.TagNoteID])
	if perr != nil {
		q.logger.Warn(ctx, "transfer failure without note id", "error", err)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.indexLocked(id)
	if i < 0 || q.notes[i].Status != models.StatusTransferring {
		return
	}
	q.notes[i].Status = models.StatusFailed
	q.notes[i].LastError = err.Error()
	q.persistLocked(ctx)
	q.logger.Error(ctx, "transfer failed", "note_id", id, "error", err)
}

// WatchReachability retries pending notes each time the peer comes back.
// It returns when ctx is cancelled.
func (q *Queue) WatchReachability(ctx context.Context, w link.Watcher) {
	ch, cancel := w.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case reachable, ok := <-ch:
			if !ok {
				return
			}
			if reachable {
				q.logger.Info(ctx, "peer reachable, retrying pending notes")
				q.RetryPending(ctx)
			}
		}
	}
}

// Notes returns a copy of the queue in insertion order.
func (q *Queue) Notes() []models.Note {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.notes)
}

// Get returns one note.
func (q *Queue) Get(id uuid.UUID) (models.Note, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i := q.indexLocked(id); i >= 0 {
		return q.notes[i], true
	}
	return models.Note{}, false
}

func (q *Queue) Counts() models.Counts {
	q.mu.Lock()
	defer q.mu.Unlock()
	var c models.Counts
	for _, n := range q.notes {
		c.Add(n.Status)
	}
	return c
}

func (q *Queue) requeue(ctx context.Context, match func(models.Status) bool) {
	q.mu.Lock()
	var ids []uuid.UUID
	for i := range q.notes {
		if match(q.notes[i].Status) {
			q.notes[i].Status = models.StatusQueued
			ids = append(ids, q.notes[i].ID)
		}
	}
	if len(ids) > 0 {
		q.persistLocked(ctx)
	}
	q.mu.Unlock()

	for _, id := range ids {
		q.transferNote(ctx, id)
	}
}

// transferNote hands a queued note to the link. The note is marked
// transferring before the call so an ack racing the return is never
// overwritten; a rejected transfer reverts only if nothing else moved it.
func (q *Queue) transferNote(ctx context.Context, id uuid.UUID) {
	q.mu.Lock()
	i := q.indexLocked(id)
	if i < 0 || q.notes[i].Status != models.StatusQueued {
		q.mu.Unlock()
		return
	}

	path := q.audio.Path(id)
	if !q.audio.Exists(id) {
		q.notes[i].Status = models.StatusFailed
		q.notes[i].LastError = fmt.Sprintf("audio file missing: %s", path)
		q.persistLocked(ctx)
		q.mu.Unlock()
		q.logger.Error(ctx, "audio file missing", "note_id", id, "path", path)
		return
	}

	if !q.transport.Reachable() {
		q.mu.Unlock()
		q.logger.Debug(ctx, "peer unreachable, note stays queued", "note_id", id)
		return
	}

	q.notes[i].Status = models.StatusTransferring
	q.notes[i].LastError = ""
	note := q.notes[i]
	q.persistLocked(ctx)
	q.mu.Unlock()

	err := q.transport.TransferFile(ctx, path, link.EncodeTags(note))
	if err == nil {
		q.logger.Info(ctx, "transfer accepted", "note_id", id)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	i = q.indexLocked(id)
	if i < 0 || q.notes[i].Status != models.StatusTransferring {
		return
	}
	if errors.Is(err, link.ErrUnreachable) {
		q.notes[i].Status = models.StatusQueued
	} else {
		q.notes[i].Status = models.StatusFailed
		q.notes[i].LastError = err.Error()
	}
	q.persistLocked(ctx)
	q.logger.Warn(ctx, "transfer not accepted", "note_id", id, "error", err)
}

func (q *Queue) indexLocked(id uuid.UUID) int {
	return slices.IndexFunc(q.notes, func(n models.Note) bool { return n.ID == id })
}

func (q *Queue) persistLocked(ctx context.Context) {
	if err := q.state.Save(snapshot{Notes: q.notes}); err != nil {
		q.logger.Error(ctx, "persist source queue", "error", err)
	}
}
