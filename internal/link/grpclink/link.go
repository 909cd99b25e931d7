package grpclink

import (
	"context"
	"errors"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/link"
	"github.com/dmitrijs2005/wristnote/internal/logging"
)

const pingTimeout = 3 * time.Second

type peer interface {
	Ping(ctx context.Context) error
	SendMessage(ctx context.Context, payload map[string]any) error
	SendFile(ctx context.Context, path string, tags map[string]string) error
}

type transfer struct {
	path string
	tags map[string]string
}

// Link implements link.Link on top of a Client. Accepted transfers wait in an
// in-memory outbox that a background sender drains while the peer answers
// pings. Transient failures stay in the outbox; anything else is dropped and
// reported to the failure handler.
type Link struct {
	peer     peer
	tracker  *link.Tracker
	interval time.Duration
	logger   logging.Logger

	mu       sync.Mutex
	outbox   []transfer
	failures link.TransferFailureHandler
	wake     chan struct{}
}

var _ link.Link = (*Link)(nil)

func New(c *Client, interval time.Duration, l logging.Logger) *Link {
	return newLink(c, interval, l)
}

func newLink(p peer, interval time.Duration, l logging.Logger) *Link {
	return &Link{
		peer:     p,
		tracker:  link.NewTracker(false),
		interval: interval,
		logger:   l.With("module", "link_client"),
		wake:     make(chan struct{}, 1),
	}
}

// NotifyFailures registers h for transfers the link gives up on.
func (l *Link) NotifyFailures(h link.TransferFailureHandler) {
	l.mu.Lock()
	l.failures = h
	l.mu.Unlock()
}

func (l *Link) Reachable() bool { return l.tracker.Reachable() }

func (l *Link) Subscribe() (<-chan bool, func()) { return l.tracker.Subscribe() }

func (l *Link) TransferFile(ctx context.Context, path string, tags map[string]string) error {
	l.mu.Lock()
	l.outbox = append(l.outbox, transfer{path: path, tags: maps.Clone(tags)})
	l.mu.Unlock()

	l.logger.Debug(ctx, "transfer accepted", "path", path)
	l.signal()
	return nil
}

func (l *Link) SendMessage(ctx context.Context, payload map[string]any) error {
	if !l.Reachable() {
		return link.ErrUnreachable
	}
	err := l.peer.SendMessage(ctx, payload)
	if errors.Is(err, link.ErrUnreachable) {
		l.setReachable(ctx, false)
	}
	return err
}

// Pending returns the number of transfers not yet delivered.
func (l *Link) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.outbox)
}

// Run watches the peer and drains the outbox until ctx is cancelled.
func (l *Link) Run(ctx context.Context) {
	go l.watch(ctx)

	reach, cancel := l.tracker.Subscribe()
	defer cancel()

	for {
		var retry <-chan time.Time
		if l.drain(ctx) {
			retry = time.After(l.interval)
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		case <-reach:
		case <-retry:
		}
	}
}

func (l *Link) watch(ctx context.Context) {
	l.check(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (l *Link) check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := l.peer.Ping(pctx)
	cancel()
	l.setReachable(ctx, err == nil)
}

func (l *Link) setReachable(ctx context.Context, reachable bool) {
	if l.tracker.Set(reachable) {
		l.logger.Info(ctx, "peer reachability changed", "reachable", reachable)
	}
}

func (l *Link) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// drain sends queued transfers in order. It reports whether it stopped on a
// transient failure that deserves another pass.
func (l *Link) drain(ctx context.Context) bool {
	for ctx.Err() == nil && l.Reachable() {
		l.mu.Lock()
		if len(l.outbox) == 0 {
			l.mu.Unlock()
			return false
		}
		t := l.outbox[0]
		l.mu.Unlock()

		err := l.peer.SendFile(ctx, t.path, t.tags)
		switch {
		case err == nil:
			l.logger.Info(ctx, "transfer delivered", "path", t.path)
		case errors.Is(err, link.ErrUnreachable):
			l.setReachable(ctx, false)
			return false
		case errors.Is(err, link.ErrTransient):
			l.logger.Warn(ctx, "transfer failed, keeping it", "path", t.path, "error", err)
			return true
		case errors.Is(err, os.ErrNotExist):
			l.logger.Warn(ctx, "transfer source vanished, dropping", "path", t.path)
		default:
			l.logger.Error(ctx, "transfer rejected, dropping", "path", t.path, "error", err)
		}

		l.mu.Lock()
		l.outbox = l.outbox[1:]
		h := l.failures
		l.mu.Unlock()

		if err != nil && h != nil {
			h.HandleTransferFailure(ctx, t.tags, err)
		}
	}
	return false
}
