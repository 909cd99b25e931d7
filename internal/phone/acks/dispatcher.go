// Package acks delivers upload acknowledgments from the phone to the watch.
//
// Delivery is attempted immediately. When an outbox is configured, acks that
// cannot be sent are parked there and redelivered each time the watch comes
// back into range.
package acks

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/wristnote/internal/link"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/dmitrijs2005/wristnote/internal/models"
)

// Sender is the message part of the link.
type Sender interface {
	SendMessage(ctx context.Context, payload map[string]any) error
}

type Dispatcher struct {
	sender Sender
	outbox Outbox
	logger logging.Logger

	// serializes redelivery passes
	mu sync.Mutex
}

// NewDispatcher returns a dispatcher. outbox may be nil, in which case
// undeliverable acks are dropped and the watch relies on its own retries.
func NewDispatcher(sender Sender, outbox Outbox, l logging.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		outbox: outbox,
		logger: l.With("module", "acks"),
	}
}

func (d *Dispatcher) SendAck(ctx context.Context, ack models.Ack) {
	err := d.sender.SendMessage(ctx, link.EncodeAck(ack))
	if err == nil {
		d.logger.Info(ctx, "ack sent", "note_id", ack.NoteID, "status", ack.Status)
		if d.outbox != nil {
			if err := d.outbox.Delete(ctx, ack.NoteID); err != nil {
				d.logger.Warn(ctx, "clear parked ack", "note_id", ack.NoteID, "error", err)
			}
		}
		return
	}

	if d.outbox == nil {
		d.logger.Warn(ctx, "ack not delivered", "note_id", ack.NoteID, "status", ack.Status, "error", err)
		return
	}

	if perr := d.outbox.Put(ctx, ack); perr != nil {
		d.logger.Error(ctx, "park ack", "note_id", ack.NoteID, "error", perr)
		return
	}
	d.logger.Info(ctx, "ack parked for redelivery", "note_id", ack.NoteID, "status", ack.Status, "reason", err)
}

// Redeliver sends parked acks in the order they were parked and returns how
// many went out. It stops at the first connectivity failure.
func (d *Dispatcher) Redeliver(ctx context.Context) (int, error) {
	if d.outbox == nil {
		return 0, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	parked, err := d.outbox.List(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, ack := range parked {
		err := d.sender.SendMessage(ctx, link.EncodeAck(ack))
		if errors.Is(err, link.ErrUnreachable) {
			return sent, nil
		}
		if err != nil {
			d.logger.Warn(ctx, "redeliver ack", "note_id", ack.NoteID, "error", err)
			continue
		}
		if err := d.outbox.Delete(ctx, ack.NoteID); err != nil {
			return sent, err
		}
		sent++
	}

	if sent > 0 {
		d.logger.Info(ctx, "parked acks redelivered", "count", sent)
	}
	return sent, nil
}

// Watch redelivers parked acks on every transition to reachable until ctx is
// cancelled.
func (d *Dispatcher) Watch(ctx context.Context, w link.Watcher) {
	ch, cancel := w.Subscribe()
	defer cancel()

	if w.Reachable() {
		d.redeliver(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case reachable, ok := <-ch:
			if !ok {
				return
			}
			if reachable {
				d.redeliver(ctx)
			}
		}
	}
}

func (d *Dispatcher) redeliver(ctx context.Context) {
	if _, err := d.Redeliver(ctx); err != nil {
		d.logger.Error(ctx, "redeliver acks", "error", err)
	}
}
