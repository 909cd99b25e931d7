// Package transcribe turns a recorded audio file into text on the watch.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/dmitrijs2005/wristnote/internal/models"
)

// InputPlaceholder is replaced by the audio path in command arguments.
const InputPlaceholder = "{input}"

var ErrNotConfigured = errors.New("transcriber not configured")

type Result struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string) (Result, error)
}

// Command runs an external speech-to-text program that prints a Result as
// JSON on stdout.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a command line on whitespace. An empty line yields nil.
func ParseCommand(line string) *Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return &Command{Name: fields[0], Args: fields[1:]}
}


func (c *Command) Transcribe(ctx context.Context, path string) (Result, error) {
	if c == nil || c.Name == "" {
		return Result{}, ErrNotConfigured
	}

	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = strings.ReplaceAll(a, InputPlaceholder, path)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return Result{}, fmt.Errorf("%s: %w: %s", c.Name, err, msg)
		}
		return Result{}, fmt.Errorf("%s: %w", c.Name, err)
	}

	var r Result
	if err := json.Unmarshal(stdout.Bytes(), &r); err != nil {
		return Result{}, fmt.Errorf("decode %s output: %w", c.Name, err)
	}
	return r, nil
}

// Apply records the outcome of a transcription attempt on the note. A nil
// transcriber marks the note skipped.
func Apply(ctx context.Context, t Transcriber, note *models.Note, path string) error {
	if t == nil {
		note.TranscriptionStatus = models.TranscriptionSkipped
		return nil
	}

	r, err := t.Transcribe(ctx, path)
	if errors.Is(err, ErrNotConfigured) {
		note.TranscriptionStatus = models.TranscriptionSkipped
		return nil
	}
	if err != nil {
		note.TranscriptionStatus = models.TranscriptionFailed
		return err
	}

	note.Transcription = strings.TrimSpace(r.Text)
	note.TranscriptionLanguage = r.Language
	note.TranscriptionStatus = models.TranscriptionCompleted
	return nil
}
