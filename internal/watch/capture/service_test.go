package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/wristnote/internal/artifacts"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/dmitrijs2005/wristnote/internal/transcribe"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	notes []models.Note
	err   error
}

func (r *recordingQueue) Enqueue(_ context.Context, n models.Note) error {
	if r.err != nil {
		return r.err
	}
	r.notes = append(r.notes, n)
	return nil
}

type fixedTranscriber struct {
	r   transcribe.Result
	err error
}

func (f fixedTranscriber) Transcribe(context.Context, string) (transcribe.Result, error) {
	return f.r, f.err
}

func setup(t *testing.T, tr transcribe.Transcriber, q *recordingQueue) (*Service, *artifacts.Store, string) {
	t.Helper()
	audio, err := artifacts.New(t.TempDir())
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "rec.m4a")
	require.NoError(t, os.WriteFile(src, []byte("audio"), 0o600))

	device := models.DeviceInfo{Name: "wrist", Model: "W1"}
	return NewService(audio, tr, q, device, logging.NewNop()), audio, src
}

func TestRecord_ImportsTranscribesAndQueues(t *testing.T) {
	q := &recordingQueue{}
	s, audio, src := setup(t, fixedTranscriber{r: transcribe.Result{Text: "call mom", Language: "en"}}, q)

	n, err := s.Record(context.Background(), src, 2500)
	require.NoError(t, err)

	require.Len(t, q.notes, 1)
	require.Equal(t, n.ID, q.notes[0].ID)
	require.Equal(t, int64(2500), n.DurationMs)
	require.Equal(t, "call mom", n.Transcription)
	require.Equal(t, models.TranscriptionCompleted, n.TranscriptionStatus)
	require.Equal(t, "wrist", n.SourceDevice.Name)

	require.True(t, audio.Exists(n.ID))
	_, err = os.Stat(src)
	require.NoError(t, err, "source recording is left in place")
}

func TestRecord_TranscriptionFailureStillQueues(t *testing.T) {
	q := &recordingQueue{}
	s, _, src := setup(t, fixedTranscriber{err: errors.New("no model")}, q)

	n, err := s.Record(context.Background(), src, 100)
	require.NoError(t, err)
	require.Equal(t, models.TranscriptionFailed, n.TranscriptionStatus)
	require.Len(t, q.notes, 1)
}

func TestRecord_MissingSource(t *testing.T) {
	q := &recordingQueue{}
	s, _, _ := setup(t, nil, q)

	_, err := s.Record(context.Background(), filepath.Join(t.TempDir(), "gone.m4a"), 100)
	require.ErrorIs(t, err, artifacts.ErrNotFound)
	require.Empty(t, q.notes)
}

func TestRecord_NegativeDuration(t *testing.T) {
	q := &recordingQueue{}
	s, _, src := setup(t, nil, q)

	_, err := s.Record(context.Background(), src, -1)
	require.ErrorIs(t, err, models.ErrMalformedNote)
}

func TestRecord_EnqueueFailureRemovesAudio(t *testing.T) {
	q := &recordingQueue{err: errors.New("disk full")}
	s, audio, src := setup(t, nil, q)

	_, err := s.Record(context.Background(), src, 100)
	require.ErrorContains(t, err, "disk full")

	entries, err := os.ReadDir(audio.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}
