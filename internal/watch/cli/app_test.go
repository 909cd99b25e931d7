package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/common"
	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecorder struct {
	gotPath string
	gotMs   int64
}

func (s *stubRecorder) Record(_ context.Context, src string, ms int64) (models.Note, error) {
	s.gotPath, s.gotMs = src, ms
	return models.Note{ID: uuid.New(), TranscriptionStatus: models.TranscriptionSkipped}, nil
}

type stubQueue struct {
	notes       []models.Note
	retried     []uuid.UUID
	retryFailed int
	discarded   []uuid.UUID
}

func (s *stubQueue) Notes() []models.Note { return s.notes }

func (s *stubQueue) Counts() models.Counts {
	var c models.Counts
	for _, n := range s.notes {
		c.Add(n.Status)
	}
	return c
}

func (s *stubQueue) Retry(_ context.Context, id uuid.UUID) error {
	for _, n := range s.notes {
		if n.ID == id {
			s.retried = append(s.retried, id)
			return nil
		}
	}
	return fmt.Errorf("note %s: %w", id, common.ErrorNotFound)
}

func (s *stubQueue) RetryFailed(context.Context) { s.retryFailed++ }

func (s *stubQueue) Discard(_ context.Context, id uuid.UUID) error {
	s.discarded = append(s.discarded, id)
	return nil
}

type stubLink bool

func (s stubLink) Reachable() bool { return bool(s) }

func newApp(q *stubQueue) (*App, *stubRecorder, *bytes.Buffer) {
	r := &stubRecorder{}
	var out bytes.Buffer
	return NewApp(r, q, stubLink(true), &out), r, &out
}

func TestApp_Record(t *testing.T) {
	a, r, out := newApp(&stubQueue{})

	require.NoError(t, a.Record(context.Background(), "/tmp/x.m4a", "2500"))
	assert.Equal(t, "/tmp/x.m4a", r.gotPath)
	assert.Equal(t, int64(2500), r.gotMs)
	assert.Contains(t, out.String(), "recorded")

	assert.Error(t, a.Record(context.Background(), "/tmp/x.m4a", "long"))
}

func TestApp_ListAndStatus(t *testing.T) {
	q := &stubQueue{notes: []models.Note{
		{ID: uuid.New(), Status: models.StatusQueued, CreatedAt: time.Now(), DurationMs: 1500, Transcription: "remember the milk and also the eggs please"},
		{ID: uuid.New(), Status: models.StatusFailed, CreatedAt: time.Now(), LastError: "audio file missing"},
	}}
	a, _, out := newApp(q)

	require.NoError(t, a.List(context.Background()))
	s := out.String()
	assert.Contains(t, s, q.notes[0].ID.String())
	assert.Contains(t, s, "audio file missing")
	assert.Contains(t, s, "…")

	out.Reset()
	require.NoError(t, a.Status(context.Background()))
	assert.Contains(t, out.String(), "online")

	assert.Equal(t, "online, 1 pending, 0 sending, 1 failed", a.status())
}

func TestApp_ListEmpty(t *testing.T) {
	a, _, out := newApp(&stubQueue{})
	require.NoError(t, a.List(context.Background()))
	assert.Equal(t, "queue is empty\n", out.String())
}

func TestApp_RetryAndDiscard(t *testing.T) {
	id := uuid.New()
	q := &stubQueue{notes: []models.Note{{ID: id, Status: models.StatusFailed}}}
	a, _, _ := newApp(q)
	ctx := context.Background()

	require.NoError(t, a.Retry(ctx, ""))
	assert.Equal(t, 1, q.retryFailed)

	require.NoError(t, a.Retry(ctx, id.String()))
	assert.Equal(t, []uuid.UUID{id}, q.retried)

	assert.ErrorIs(t, a.Retry(ctx, uuid.NewString()), common.ErrorNotFound)
	assert.Error(t, a.Retry(ctx, "nope"))

	require.NoError(t, a.Discard(ctx, id.String()))
	assert.Equal(t, []uuid.UUID{id}, q.discarded)
	assert.Error(t, a.Discard(ctx, "nope"))
}

func TestApp_RunReadsUntilEOF(t *testing.T) {
	a, _, out := newApp(&stubQueue{})
	a.Run(context.Background(), strings.NewReader("status\n"))
	assert.Contains(t, out.String(), "TOTAL")
}
