// Package uploadqueue pushes received notes to the remote store, one at a
// time, and reports the terminal outcome of each note back to the watch.
package uploadqueue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/artifacts"
	"github.com/dmitrijs2005/wristnote/internal/common"
	"github.com/dmitrijs2005/wristnote/internal/filex"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/google/uuid"
)

// Uploader writes a note to durable remote storage. It must be idempotent
// per (userID, note id).
type Uploader interface {
	Upload(ctx context.Context, userID string, note models.Note, path string, progress func(sent, total int64)) error
}

// AckSender delivers acknowledgments to the watch.
type AckSender interface {
	SendAck(ctx context.Context, ack models.Ack)
}

// UserSource reports the signed-in user, if any.
type UserSource interface {
	CurrentUserID() (string, bool)
}

// StateStore persists queue snapshots.
type StateStore interface {
	Load(v any) (bool, error)
	Save(v any) error
}

// ErrBusy is returned when an item cannot be changed while its upload runs.
var ErrBusy = errors.New("note is uploading")

type snapshot struct {
	Items []models.UploadItem `json:"items"`
}

type Queue struct {
	mu         sync.Mutex
	items      []models.UploadItem
	processing bool
	done       chan struct{}

	ctx      context.Context
	state    StateStore
	uploader Uploader
	acks     AckSender
	users    UserSource
	policy   Policy
	logger   logging.Logger

	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

// New rehydrates the queue. Items caught mid-upload go back to received;
// the remote write is idempotent so repeating it is harmless. ctx bounds the
// drains started by Enqueue and Retry.
func New(ctx context.Context, state StateStore, uploader Uploader, acks AckSender, users UserSource, policy Policy, l logging.Logger) (*Queue, error) {
	q := &Queue{
		ctx:      ctx,
		state:    state,
		uploader: uploader,
		acks:     acks,
		users:    users,
		policy:   policy,
		logger:   l.With("module", "upload_queue"),
		sleep:    sleepCtx,
		now:      time.Now,
	}

	var snap snapshot
	if _, err := state.Load(&snap); err != nil {
		return nil, fmt.Errorf("load upload queue: %w", err)
	}

	reset := 0
	for i := range snap.Items {
		if snap.Items[i].Note.Status == models.StatusUploading {
			snap.Items[i].Note.Status = models.StatusReceived
			reset++
		}
	}
	q.items = snap.Items
	if reset > 0 {
		q.persistLocked(ctx)
	}

	q.logger.Info(ctx, "upload queue loaded", "items", len(q.items), "reset", reset)
	return q, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Enqueue takes ownership of a received note whose audio is at path and
// starts the drain. A note already present is not duplicated; if it had
// failed it gets a fresh retry budget.
func (q *Queue) Enqueue(ctx context.Context, note models.Note, path string) {
	note.Status = models.StatusReceived

	q.mu.Lock()
	if i := q.indexLocked(note.ID); i >= 0 {
		it := &q.items[i]
		switch it.Note.Status {
		case models.StatusFailed:
			it.Note.Status = models.StatusReceived
			it.RetryCount = 0
			it.LastError = ""
			it.LocalPath = path
			q.persistLocked(ctx)
			q.logger.Info(ctx, "failed note delivered again, retrying", "note_id", note.ID)
		default:
			q.logger.Info(ctx, "note already queued", "note_id", note.ID, "status", it.Note.Status)
		}
		q.mu.Unlock()
		q.Start(q.ctx)
		return
	}

	q.items = append(q.items, models.UploadItem{
		Note:      note,
		LocalPath: path,
		AddedAt:   q.now().UTC(),
	})
	q.persistLocked(ctx)
	q.mu.Unlock()

	q.logger.Info(ctx, "note queued for upload", "note_id", note.ID)
	q.Start(q.ctx)
}

// Start launches the drain unless one is already running. It reports
// whether a new drain was started.
func (q *Queue) Start(ctx context.Context) bool {
	q.mu.Lock()
	if q.processing {
		q.mu.Unlock()
		return false
	}
	q.processing = true
	done := make(chan struct{})
	q.done = done
	q.mu.Unlock()

	go q.drain(ctx, done)
	return true
}

// Wait blocks until the running drain, if any, has exited.
func (q *Queue) Wait() {
	q.mu.Lock()
	done, running := q.done, q.processing
	q.mu.Unlock()

	if running {
		<-done
	}
}

// Running reports whether a drain is active.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processing
}

func (q *Queue) drain(ctx context.Context, done chan struct{}) {
	defer close(done)

	q.logger.Debug(ctx, "drain started")
	for {
		q.mu.Lock()
		i := slices.IndexFunc(q.items, func(it models.UploadItem) bool {
			return it.Note.Status == models.StatusReceived
		})
		if i < 0 || ctx.Err() != nil {
			q.processing = false
			q.mu.Unlock()
			q.logger.Debug(ctx, "drain finished")
			return
		}
		id := q.items[i].Note.ID
		q.mu.Unlock()

		userID, ok := q.users.CurrentUserID()
		if !ok {
			q.logger.Info(ctx, "no signed-in user, waiting", "wait", q.policy.AuthWait)
			q.sleep(ctx, q.policy.AuthWait)
			continue
		}

		q.attempt(ctx, id, userID)
	}
}

func (q *Queue) attempt(ctx context.Context, id uuid.UUID, userID string) {
	q.mu.Lock()
	i := q.indexLocked(id)
	if i < 0 || q.items[i].Note.Status != models.StatusReceived {
		q.mu.Unlock()
		return
	}
	q.items[i].Note.Status = models.StatusUploading
	item := q.items[i]
	q.persistLocked(ctx)
	q.mu.Unlock()

	ctx = logging.ContextWith(ctx, "note_id", id)
	log := q.logger.With("attempt", item.RetryCount+1)
	log.Info(ctx, "uploading note")

	var err error
	if !filex.Exists(item.LocalPath) {
		err = fmt.Errorf("%w: %s", artifacts.ErrNotFound, item.LocalPath)
	} else {
		err = q.uploader.Upload(ctx, userID, item.Note, item.LocalPath, progressLogger(ctx, log))
	}

	if err == nil {
		q.acks.SendAck(ctx, models.UploadedAck(id, q.now()))

		q.mu.Lock()
		if i := q.indexLocked(id); i >= 0 {
			q.items = slices.Delete(q.items, i, i+1)
		}
		q.persistLocked(ctx)
		q.mu.Unlock()

		if err := artifacts.RemovePath(item.LocalPath); err != nil {
			log.Warn(ctx, "delete uploaded audio", "error", err)
		}
		log.Info(ctx, "note uploaded")
		return
	}

	q.mu.Lock()
	i = q.indexLocked(id)
	if i < 0 {
		q.mu.Unlock()
		return
	}
	it := &q.items[i]

	if ctx.Err() != nil {
		// shutting down, not the item's fault
		it.Note.Status = models.StatusReceived
		q.persistLocked(ctx)
		q.mu.Unlock()
		return
	}

	it.RetryCount++
	it.LastError = err.Error()
	retries := it.RetryCount

	if retries >= q.policy.MaxRetries {
		it.Note.Status = models.StatusFailed
		q.persistLocked(ctx)
		q.mu.Unlock()

		log.Error(ctx, "upload failed permanently", "error", err)
		q.acks.SendAck(ctx, models.FailedAck(id))
		return
	}

	it.Note.Status = models.StatusReceived
	q.persistLocked(ctx)
	q.mu.Unlock()

	wait := q.policy.Backoff(retries)
	log.Warn(ctx, "upload failed, backing off", "error", err, "retry_in", wait)
	q.sleep(ctx, wait)
}

func progressLogger(ctx context.Context, log logging.Logger) func(sent, total int64) {
	next := int64(25)
	return func(sent, total int64) {
		if total <= 0 {
			return
		}
		pct := sent * 100 / total
		if pct >= next {
			log.Debug(ctx, "upload progress", "percent", pct)
			for next <= pct {
				next += 25
			}
		}
	}
}

// Retry gives one failed item a fresh budget and restarts the drain.
func (q *Queue) Retry(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	i := q.indexLocked(id)
	if i < 0 {
		q.mu.Unlock()
		return fmt.Errorf("note %s: %w", id, common.ErrorNotFound)
	}
	if q.items[i].Note.Status == models.StatusFailed {
		q.resetLocked(i)
		q.persistLocked(ctx)
	}
	q.mu.Unlock()

	q.Start(q.ctx)
	return nil
}

// RetryFailed resets every failed item and restarts the drain. It returns
// the number of items reset.
func (q *Queue) RetryFailed(ctx context.Context) int {
	q.mu.Lock()
	n := 0
	for i := range q.items {
		if q.items[i].Note.Status == models.StatusFailed {
			q.resetLocked(i)
			n++
		}
	}
	if n > 0 {
		q.persistLocked(ctx)
	}
	q.mu.Unlock()

	if n > 0 {
		q.Start(q.ctx)
	}
	return n
}

// Remove drops an item that is not being uploaded and deletes its audio.
func (q *Queue) Remove(ctx context.Context, id uuid.UUID) error {
	q.mu.Lock()
	i := q.indexLocked(id)
	if i < 0 {
		q.mu.Unlock()
		return fmt.Errorf("note %s: %w", id, common.ErrorNotFound)
	}
	if q.items[i].Note.Status == models.StatusUploading {
		q.mu.Unlock()
		return fmt.Errorf("note %s: %w", id, ErrBusy)
	}
	path := q.items[i].LocalPath
	q.items = slices.Delete(q.items, i, i+1)
	q.persistLocked(ctx)
	q.mu.Unlock()

	return artifacts.RemovePath(path)
}

func (q *Queue) Items() []models.UploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

func (q *Queue) Get(id uuid.UUID) (models.UploadItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i := q.indexLocked(id); i >= 0 {
		return q.items[i], true
	}
	return models.UploadItem{}, false
}

func (q *Queue) Counts() models.Counts {
	q.mu.Lock()
	defer q.mu.Unlock()
	var c models.Counts
	for _, it := range q.items {
		c.Add(it.Note.Status)
	}
	return c
}

func (q *Queue) resetLocked(i int) {
	q.items[i].Note.Status = models.StatusReceived
	q.items[i].RetryCount = 0
	q.items[i].LastError = ""
}

func (q *Queue) indexLocked(id uuid.UUID) int {
	return slices.IndexFunc(q.items, func(it models.UploadItem) bool { return it.Note.ID == id })
}

func (q *Queue) persistLocked(ctx context.Context) {
	if err := q.state.Save(snapshot{Items: q.items}); err != nil {
		q.logger.Error(ctx, "persist upload queue", "error", err)
	}
}
