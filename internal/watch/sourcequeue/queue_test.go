package sourcequeue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/artifacts"
	"github.com/dmitrijs2005/wristnote/internal/common"
	"github.com/dmitrijs2005/wristnote/internal/link"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/dmitrijs2005/wristnote/internal/statefile"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu        sync.Mutex
	reachable bool
	err       error
	calls     []map[string]string
}

func (f *fakeTransport) TransferFile(_ context.Context, _ string, tags map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, tags)
	return f.err
}

func (f *fakeTransport) Reachable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reachable
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	dir       string
	audio     *artifacts.Store
	state     *statefile.File
	transport *fakeTransport
	q         *Queue
}

func newFixture(t *testing.T, reachable bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{dir: dir, transport: &fakeTransport{reachable: reachable}}

	var err error
	f.audio, err = artifacts.New(filepath.Join(dir, "audio"))
	require.NoError(t, err)
	f.open(t)
	return f
}

func (f *fixture) open(t *testing.T) {
	t.Helper()
	var err error
	f.state, err = statefile.Open(filepath.Join(f.dir, "queue.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.state.Close() })

	f.q, err = New(context.Background(), f.state, f.audio, f.transport, logging.NewNop())
	require.NoError(t, err)
}

func (f *fixture) reopen(t *testing.T) {
	t.Helper()
	require.NoError(t, f.state.Close())
	f.open(t)
}

func (f *fixture) record(t *testing.T) models.Note {
	t.Helper()
	n := models.Note{ID: uuid.New(), CreatedAt: time.Now().UTC(), DurationMs: 1500}
	require.NoError(t, os.WriteFile(f.audio.Path(n.ID), []byte("audio"), 0o600))
	return n
}

func status(t *testing.T, q *Queue, id uuid.UUID) models.Status {
	t.Helper()
	n, ok := q.Get(id)
	require.True(t, ok)
	return n.Status
}

func TestEnqueue_TransfersWhenReachable(t *testing.T) {
	f := newFixture(t, true)
	n := f.record(t)

	require.NoError(t, f.q.Enqueue(context.Background(), n))

	require.Equal(t, models.StatusTransferring, status(t, f.q, n.ID))
	require.Equal(t, 1, f.transport.callCount())
	require.Equal(t, n.ID.String(), f.transport.calls[0][link.TagNoteID])
}

func TestEnqueue_StaysQueuedWhenUnreachable(t *testing.T) {
	f := newFixture(t, false)
	n := f.record(t)

	require.NoError(t, f.q.Enqueue(context.Background(), n))

	require.Equal(t, models.StatusQueued, status(t, f.q, n.ID))
	require.Equal(t, 0, f.transport.callCount())
}

func TestEnqueue_RejectsMalformed(t *testing.T) {
	f := newFixture(t, true)
	err := f.q.Enqueue(context.Background(), models.Note{CreatedAt: time.Now()})
	require.ErrorIs(t, err, models.ErrMalformedNote)
	require.Empty(t, f.q.Notes())
}

func TestEnqueue_IgnoresDuplicate(t *testing.T) {
	f := newFixture(t, true)
	n := f.record(t)
	ctx := context.Background()

	require.NoError(t, f.q.Enqueue(ctx, n))
	require.NoError(t, f.q.Enqueue(ctx, n))

	require.Len(t, f.q.Notes(), 1)
	require.Equal(t, 1, f.transport.callCount())
}

func TestTransfer_MissingFileFailsWithoutTransport(t *testing.T) {
	f := newFixture(t, true)
	n := models.Note{ID: uuid.New(), CreatedAt: time.Now(), DurationMs: 10}

	require.NoError(t, f.q.Enqueue(context.Background(), n))

	got, ok := f.q.Get(n.ID)
	require.True(t, ok)
	require.Equal(t, models.StatusFailed, got.Status)
	require.Contains(t, got.LastError, "missing")
	require.Equal(t, 0, f.transport.callCount())
}

func TestTransfer_RejectedGoesBackOrFails(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.transport.err = link.ErrUnreachable
	a := f.record(t)
	require.NoError(t, f.q.Enqueue(ctx, a))
	require.Equal(t, models.StatusQueued, status(t, f.q, a.ID))

	f.transport.err = errors.New("boom")
	b := f.record(t)
	require.NoError(t, f.q.Enqueue(ctx, b))
	require.Equal(t, models.StatusFailed, status(t, f.q, b.ID))
}

func TestHandleAck_UploadedRemovesNoteAndAudio(t *testing.T) {
	f := newFixture(t, true)
	n := f.record(t)
	ctx := context.Background()
	require.NoError(t, f.q.Enqueue(ctx, n))

	f.q.HandleAck(ctx, models.UploadedAck(n.ID, time.Now()))

	_, ok := f.q.Get(n.ID)
	require.False(t, ok)
	require.False(t, f.audio.Exists(n.ID))

	// idempotent
	f.q.HandleAck(ctx, models.UploadedAck(n.ID, time.Now()))
	f.q.HandleAck(ctx, models.FailedAck(n.ID))
	require.Empty(t, f.q.Notes())
}

func TestHandleAck_FailedRetainsNote(t *testing.T) {
	f := newFixture(t, true)
	n := f.record(t)
	ctx := context.Background()
	require.NoError(t, f.q.Enqueue(ctx, n))

	f.q.HandleAck(ctx, models.FailedAck(n.ID))

	require.Equal(t, models.StatusFailed, status(t, f.q, n.ID))
	require.True(t, f.audio.Exists(n.ID))
}

func TestHandleMessage_DecodesAndDropsGarbage(t *testing.T) {
	f := newFixture(t, true)
	n := f.record(t)
	ctx := context.Background()
	require.NoError(t, f.q.Enqueue(ctx, n))

	f.q.HandleMessage(ctx, map[string]any{"type": "hello"})
	require.Len(t, f.q.Notes(), 1)

	f.q.HandleMessage(ctx, link.EncodeAck(models.UploadedAck(n.ID, time.Now())))
	require.Empty(t, f.q.Notes())
}

func TestRetryFailedAndPending(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	a := f.record(t)
	b := f.record(t)
	require.NoError(t, f.q.Enqueue(ctx, a))
	require.NoError(t, f.q.Enqueue(ctx, b))
	f.q.HandleAck(ctx, models.FailedAck(b.ID))

	f.transport.reachable = true
	f.q.RetryFailed(ctx)
	require.Equal(t, models.StatusQueued, status(t, f.q, a.ID))
	require.Equal(t, models.StatusTransferring, status(t, f.q, b.ID))

	f.q.RetryPending(ctx)
	require.Equal(t, models.StatusTransferring, status(t, f.q, a.ID))
	require.Equal(t, 2, f.transport.callCount())
}

func TestHandleTransferFailure_MarksFailedAndRetriesOnReachability(t *testing.T) {
	f := newFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := f.record(t)
	require.NoError(t, f.q.Enqueue(ctx, n))
	require.Equal(t, models.StatusTransferring, status(t, f.q, n.ID))

	f.q.HandleTransferFailure(ctx, link.EncodeTags(n), common.ErrorUnauthorized)

	got, ok := f.q.Get(n.ID)
	require.True(t, ok)
	require.Equal(t, models.StatusFailed, got.Status)
	require.Contains(t, got.LastError, common.ErrorUnauthorized.Error())
	require.Equal(t, models.Counts{Total: 1, Failed: 1}, f.q.Counts())

	tracker := link.NewTracker(true)
	go f.q.WatchReachability(ctx, tracker)

	require.Eventually(t, func() bool {
		tracker.Set(false)
		tracker.Set(true)
		got, _ := f.q.Get(n.ID)
		return got.Status == models.StatusTransferring
	}, 2*time.Second, 10*time.Millisecond)
	require.GreaterOrEqual(t, f.transport.callCount(), 2)
}

func TestHandleTransferFailure_IgnoresSettledAndUnknownNotes(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	n := f.record(t)
	require.NoError(t, f.q.Enqueue(ctx, n))
	f.q.HandleAck(ctx, models.FailedAck(n.ID))
	f.q.HandleTransferFailure(ctx, link.EncodeTags(n), errors.New("late"))

	got, _ := f.q.Get(n.ID)
	require.Equal(t, models.StatusFailed, got.Status)
	require.NotEqual(t, "late", got.LastError)

	f.q.HandleTransferFailure(ctx, map[string]string{link.TagNoteID: "junk"}, errors.New("x"))
	f.q.HandleTransferFailure(ctx, link.EncodeTags(models.Note{ID: uuid.New()}), errors.New("x"))
	require.Len(t, f.q.Notes(), 1)
}

func TestRetryAndDiscard_UnknownID(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	require.ErrorIs(t, f.q.Retry(ctx, uuid.New()), common.ErrorNotFound)
	require.ErrorIs(t, f.q.Discard(ctx, uuid.New()), common.ErrorNotFound)
}

func TestDiscard_RemovesNoteAndAudio(t *testing.T) {
	f := newFixture(t, false)
	n := f.record(t)
	ctx := context.Background()
	require.NoError(t, f.q.Enqueue(ctx, n))

	require.NoError(t, f.q.Discard(ctx, n.ID))
	require.Empty(t, f.q.Notes())
	require.False(t, f.audio.Exists(n.ID))
}

func TestPersistence_RoundTripResetsTransferring(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	a := f.record(t)
	require.NoError(t, f.q.Enqueue(ctx, a))
	b := f.record(t)
	b.Transcription = "call mum"
	f.transport.reachable = false
	require.NoError(t, f.q.Enqueue(ctx, b))
	c := models.Note{ID: uuid.New(), CreatedAt: time.Now(), DurationMs: 1}
	require.NoError(t, f.q.Enqueue(ctx, c))

	f.reopen(t)

	notes := f.q.Notes()
	require.Len(t, notes, 3)
	require.Equal(t, a.ID, notes[0].ID)
	require.Equal(t, models.StatusQueued, notes[0].Status, "transferring resets to queued")
	require.Equal(t, "call mum", notes[1].Transcription)
	require.Equal(t, models.StatusFailed, notes[2].Status)
	require.Equal(t, models.Counts{Total: 3, Pending: 2, Failed: 1}, f.q.Counts())
}

func TestWatchReachability_RetriesOnTransition(t *testing.T) {
	f := newFixture(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := f.record(t)
	require.NoError(t, f.q.Enqueue(ctx, n))

	tracker := link.NewTracker(false)
	go f.q.WatchReachability(ctx, tracker)

	f.transport.mu.Lock()
	f.transport.reachable = true
	f.transport.mu.Unlock()

	require.Eventually(t, func() bool {
		tracker.Set(false)
		tracker.Set(true)
		got, _ := f.q.Get(n.ID)
		return got.Status == models.StatusTransferring
	}, 2*time.Second, 10*time.Millisecond)
}
