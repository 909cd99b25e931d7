package link

import "sync"

// Tracker holds a reachability flag and fans transitions out to subscribers.
// Subscribers only see changes; setting the same value twice is silent.
type Tracker struct {
	mu     sync.Mutex
	state  bool
	nextID int
	subs   map[int]chan bool
}

func NewTracker(initial bool) *Tracker {
	return &Tracker{state: initial, subs: map[int]chan bool{}}
}

func (t *Tracker) Reachable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Set records the new state and reports whether it changed.
func (t *Tracker) Set(reachable bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == reachable {
		return false
	}
	t.state = reachable

	for _, ch := range t.subs {
		// keep only the latest value for slow readers
		select {
		case ch <- reachable:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- reachable
		}
	}
	return true
}

func (t *Tracker) Subscribe() (<-chan bool, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	ch := make(chan bool, 1)
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
}
