package acks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/link"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	up   bool
	sent []models.Ack
}

func (f *fakeSender) SendMessage(_ context.Context, p map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.up {
		return link.ErrUnreachable
	}
	a, err := link.DecodeAck(p)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, a)
	return nil
}

func (f *fakeSender) setUp(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.up = v
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestSendAck_DirectDelivery(t *testing.T) {
	s := &fakeSender{up: true}
	outbox := NewSQLiteOutbox(setupDB(t))
	d := NewDispatcher(s, outbox, logging.NewNop())

	d.SendAck(context.Background(), models.FailedAck(uuid.New()))

	require.Equal(t, 1, s.count())
	parked, err := outbox.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, parked)
}

func TestSendAck_ParksAndRedelivers(t *testing.T) {
	s := &fakeSender{}
	outbox := NewSQLiteOutbox(setupDB(t))
	d := NewDispatcher(s, outbox, logging.NewNop())
	ctx := context.Background()

	first := models.UploadedAck(uuid.New(), time.Now())
	second := models.FailedAck(uuid.New())
	d.SendAck(ctx, first)
	d.SendAck(ctx, second)
	require.Equal(t, 0, s.count())

	n, err := d.Redeliver(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n, "still unreachable")

	s.setUp(true)
	n, err = d.Redeliver(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, first.NoteID, s.sent[0].NoteID)
	require.Equal(t, second.NoteID, s.sent[1].NoteID)

	parked, err := outbox.List(ctx)
	require.NoError(t, err)
	require.Empty(t, parked)
}

func TestSendAck_WithoutOutboxDrops(t *testing.T) {
	s := &fakeSender{}
	d := NewDispatcher(s, nil, logging.NewNop())

	d.SendAck(context.Background(), models.FailedAck(uuid.New()))
	n, err := d.Redeliver(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestWatch_RedeliversOnReachable(t *testing.T) {
	s := &fakeSender{}
	outbox := NewSQLiteOutbox(setupDB(t))
	d := NewDispatcher(s, outbox, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.SendAck(ctx, models.FailedAck(uuid.New()))

	tracker := link.NewTracker(false)
	go d.Watch(ctx, tracker)

	s.setUp(true)
	require.Eventually(t, func() bool {
		tracker.Set(false)
		tracker.Set(true)
		return s.count() == 1
	}, 2*time.Second, 20*time.Millisecond)
}
