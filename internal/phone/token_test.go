package phone

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempInput(t *testing.T, body string) *os.File {
	t.Helper()
	p := filepath.Join(t.TempDir(), "stdin")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	f, err := os.Open(p)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestPromptToken_ReadsLine(t *testing.T) {
	var out bytes.Buffer
	tok, err := PromptToken(tempInput(t, "  abc.def.ghi \nrest"), &out)
	require.NoError(t, err)
	require.Equal(t, "abc.def.ghi", tok)
	require.Contains(t, out.String(), "Access token")
}

func TestPromptToken_EmptyInput(t *testing.T) {
	tok, err := PromptToken(tempInput(t, ""), &bytes.Buffer{})
	require.NoError(t, err)
	require.Empty(t, tok)
}

func TestPromptToken_Terminal(t *testing.T) {
	origTerm, origRead := isTerminal, readPassword
	t.Cleanup(func() { isTerminal, readPassword = origTerm, origRead })

	isTerminal = func(int) bool { return true }
	readPassword = func(int) ([]byte, error) { return []byte("secret-token\n"), nil }

	tok, err := PromptToken(tempInput(t, ""), &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, "secret-token", tok)

	readPassword = func(int) ([]byte, error) { return nil, errors.New("tty gone") }
	_, err = PromptToken(tempInput(t, ""), &bytes.Buffer{})
	require.ErrorContains(t, err, "tty gone")
}
