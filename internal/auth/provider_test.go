package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestProvider_SignInAndOut(t *testing.T) {
	ctx := context.Background()
	secret := []byte("s")
	p := NewProvider(secret, logging.NewNop())

	_, ok := p.CurrentUserID()
	require.False(t, ok)

	ch, cancel := p.Subscribe()
	defer cancel()

	tok, err := GenerateToken("alice", secret, time.Hour)
	require.NoError(t, err)
	uid, err := p.SetToken(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, "alice", uid)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no sign-in notification")
	}

	got, ok := p.CurrentUserID()
	require.True(t, ok)
	require.Equal(t, "alice", got)

	p.Clear(ctx)
	<-ch
	_, ok = p.CurrentUserID()
	require.False(t, ok)
}

func TestProvider_RejectsBadToken(t *testing.T) {
	p := NewProvider([]byte("s"), logging.NewNop())

	_, err := p.SetToken(context.Background(), "garbage")
	require.Error(t, err)

	_, ok := p.CurrentUserID()
	require.False(t, ok)
}

func TestProvider_ExpiredSessionReadsSignedOut(t *testing.T) {
	secret := []byte("s")
	p := NewProvider(secret, logging.NewNop())

	tok, err := GenerateToken("bob", secret, 1500*time.Millisecond)
	require.NoError(t, err)
	_, err = p.SetToken(context.Background(), tok)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := p.CurrentUserID()
		return !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestProvider_CancelClosesChannel(t *testing.T) {
	p := NewProvider([]byte("s"), logging.NewNop())
	ch, cancel := p.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	require.False(t, open)
}
