package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
	err   error
}

func (f *fakeExec) Record(_ context.Context, path, duration string) error {
	f.calls = append(f.calls, "record "+path+" "+duration)
	return f.err
}

func (f *fakeExec) List(context.Context) error {
	f.calls = append(f.calls, "list")
	return nil
}

func (f *fakeExec) Retry(_ context.Context, id string) error {
	f.calls = append(f.calls, "retry "+id)
	return nil
}

func (f *fakeExec) Discard(_ context.Context, id string) error {
	f.calls = append(f.calls, "discard "+id)
	return nil
}

func (f *fakeExec) Status(context.Context) error {
	f.calls = append(f.calls, "status")
	return nil
}

func TestRunREPL_Dispatch(t *testing.T) {
	input := strings.Join([]string{
		"help",
		"",
		"record /tmp/a.m4a 1200",
		"record /tmp/a.m4a",
		"l",
		"retry",
		"retry abc",
		"discard abc",
		"discard",
		"status",
		"bogus",
		"exit",
		"list",
	}, "\n")

	f := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), f, func() string { return "online" }, bufio.NewScanner(strings.NewReader(input)), &out)

	assert.Equal(t, []string{
		"record /tmp/a.m4a 1200",
		"list",
		"retry ",
		"retry abc",
		"discard abc",
		"status",
	}, f.calls)

	s := out.String()
	assert.Contains(t, s, "wn [online]> ")
	assert.Contains(t, s, "record <path> <ms>")
	assert.Contains(t, s, "usage: record <path> <ms>")
	assert.Contains(t, s, "usage: discard <id>")
	assert.Contains(t, s, "Unknown command: bogus")
	assert.Contains(t, s, "Bye!")
}

func TestRunREPL_PrintsCommandErrors(t *testing.T) {
	f := &fakeExec{err: errors.New("no such file")}
	var out bytes.Buffer
	runREPL(context.Background(), f, func() string { return "" }, bufio.NewScanner(strings.NewReader("record x 1\n")), &out)

	assert.Contains(t, out.String(), "error: no such file")
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeExec{}
	var out bytes.Buffer
	runREPL(ctx, f, func() string { return "" }, bufio.NewScanner(strings.NewReader("list\n")), &out)

	assert.Empty(t, f.calls)
}
