package link

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/wristnote/internal/filex"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/google/uuid"
)

type transfer struct {
	path string
	tags map[string]string
}

// Memory is one end of an in-process link. Both ends share a reachability
// flag. Accepted transfers are delivered in the background while reachable
// and held until the flag flips back otherwise; messages fail fast.
type Memory struct {
	name    string
	inbox   string
	tracker *Tracker
	log     logging.Logger

	peer *Memory

	mu       sync.Mutex
	files    FileHandler
	messages MessageHandler
	pending  []transfer

	inflight sync.WaitGroup
}

var _ Link = (*Memory)(nil)

// NewMemoryPair connects two endpoints. Each endpoint receives files into its
// own inbox directory.
func NewMemoryPair(inboxA, inboxB string, log logging.Logger) (*Memory, *Memory, error) {
	for _, dir := range []string{inboxA, inboxB} {
		if _, err := filex.EnsureDir(dir); err != nil {
			return nil, nil, err
		}
	}

	tracker := NewTracker(true)
	a := &Memory{name: "a", inbox: inboxA, tracker: tracker, log: log.With("module", "link", "end", "a")}
	b := &Memory{name: "b", inbox: inboxB, tracker: tracker, log: log.With("module", "link", "end", "b")}
	a.peer, b.peer = b, a
	return a, b, nil
}

// Handle installs the inbound handlers of this end. Either may be nil.
func (m *Memory) Handle(files FileHandler, messages MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = files
	m.messages = messages
}

// SetReachable flips the shared flag. Turning reachable flushes transfers
// held by both ends.
func (m *Memory) SetReachable(reachable bool) {
	if !m.tracker.Set(reachable) || !reachable {
		return
	}
	m.flush()
	m.peer.flush()
}

func (m *Memory) Reachable() bool { return m.tracker.Reachable() }

func (m *Memory) Subscribe() (<-chan bool, func()) { return m.tracker.Subscribe() }

func (m *Memory) TransferFile(ctx context.Context, path string, tags map[string]string) error {
	t := transfer{path: path, tags: maps.Clone(tags)}

	if !m.Reachable() {
		m.mu.Lock()
		m.pending = append(m.pending, t)
		m.mu.Unlock()
		m.log.Debug(ctx, "transfer deferred", "path", path)
		return nil
	}

	m.deliver(t)
	return nil
}

func (m *Memory) SendMessage(ctx context.Context, payload map[string]any) error {
	if !m.Reachable() {
		return ErrUnreachable
	}

	m.peer.mu.Lock()
	h := m.peer.messages
	m.peer.mu.Unlock()

	if h == nil {
		m.log.Warn(ctx, "peer has no message handler, dropping message")
		return nil
	}
	h.HandleMessage(ctx, payload)
	return nil
}

// Wait blocks until every background delivery started so far has finished.
func (m *Memory) Wait() {
	m.inflight.Wait()
}

func (m *Memory) flush() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, t := range pending {
		m.deliver(t)
	}
}

func (m *Memory) deliver(t transfer) {
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		ctx := context.Background()

		dst := filepath.Join(m.peer.inbox, uuid.NewString()+".part")
		if err := filex.CopyFile(t.path, dst); err != nil {
			m.log.Error(ctx, "transfer lost", "path", t.path, "error", fmt.Errorf("copy: %w", err))
			return
		}

		m.peer.mu.Lock()
		h := m.peer.files
		m.peer.mu.Unlock()

		if h == nil {
			m.log.Warn(ctx, "peer has no file handler, dropping transfer", "path", t.path)
			return
		}
		h.HandleFile(ctx, InboundFile{Path: dst, Tags: t.tags})
	}()
}
