// Package auth supplies the signed-in account on the phone. Tokens are HS256
// JWTs whose UserID claim names the account that owns uploaded notes.
package auth

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/wristnote/internal/logging"
)

// Provider holds the current session token. The token is re-validated on
// every read so an expired session reads as signed out.
type Provider struct {
	mu     sync.Mutex
	secret []byte
	token  string
	subs   map[int]chan struct{}
	nextID int
	logger logging.Logger
}

func NewProvider(secret []byte, l logging.Logger) *Provider {
	return &Provider{
		secret: secret,
		subs:   make(map[int]chan struct{}),
		logger: l.With("module", "auth"),
	}
}

// SetToken validates and installs a session token and notifies subscribers.
func (p *Provider) SetToken(ctx context.Context, token string) (string, error) {
	userID, err := GetUserIDFromToken(token, p.secret)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.token = token
	p.notifyLocked()
	p.mu.Unlock()

	p.logger.Info(ctx, "signed in", "user_id", userID)
	return userID, nil
}

// Clear signs out.
func (p *Provider) Clear(ctx context.Context) {
	p.mu.Lock()
	p.token = ""
	p.notifyLocked()
	p.mu.Unlock()

	p.logger.Info(ctx, "signed out")
}

// CurrentUserID returns the signed-in account, if any.
func (p *Provider) CurrentUserID() (string, bool) {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	if token == "" {
		return "", false
	}
	userID, err := GetUserIDFromToken(token, p.secret)
	if err != nil {
		return "", false
	}
	return userID, true
}

// Subscribe returns a channel signalled after every sign-in or sign-out.
// Signals coalesce; readers should call CurrentUserID for the new state.
func (p *Provider) Subscribe() (<-chan struct{}, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan struct{}, 1)
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
			close(ch)
		})
	}
}

func (p *Provider) notifyLocked() {
	for _, ch := range p.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
