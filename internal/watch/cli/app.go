package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/google/uuid"
)

type Recorder interface {
	Record(ctx context.Context, src string, durationMs int64) (models.Note, error)
}

type Queue interface {
	Notes() []models.Note
	Counts() models.Counts
	Retry(ctx context.Context, id uuid.UUID) error
	RetryFailed(ctx context.Context)
	Discard(ctx context.Context, id uuid.UUID) error
}

type Reachability interface {
	Reachable() bool
}

type App struct {
	recorder Recorder
	queue    Queue
	link     Reachability
	out      io.Writer
}

func NewApp(r Recorder, q Queue, link Reachability, out io.Writer) *App {
	return &App{recorder: r, queue: q, link: link, out: out}
}

// Run reads commands from in until EOF, "exit" or ctx cancellation.
func (a *App) Run(ctx context.Context, in io.Reader) {
	runREPL(ctx, a, a.status, bufio.NewScanner(in), a.out)
}

func (a *App) status() string {
	c := a.queue.Counts()
	return fmt.Sprintf("%s, %d pending, %d sending, %d failed", a.linkState(), c.Pending, c.InFlight, c.Failed)
}

func (a *App) linkState() string {
	if a.link.Reachable() {
		return "online"
	}
	return "offline"
}

func (a *App) Record(ctx context.Context, path, duration string) error {
	ms, err := strconv.ParseInt(duration, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be milliseconds: %w", err)
	}
	n, err := a.recorder.Record(ctx, path, ms)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "recorded %s (%s)\n", n.ID, n.TranscriptionStatus)
	return nil
}

func (a *App) List(context.Context) error {
	notes := a.queue.Notes()
	if len(notes) == 0 {
		fmt.Fprintln(a.out, "queue is empty")
		return nil
	}

	rows := make([][]string, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, []string{
			n.ID.String(),
			string(n.Status),
			n.CreatedAt.Local().Format(time.DateTime),
			strconv.FormatInt(n.DurationMs, 10),
			truncate(n.Transcription, 32),
			n.LastError,
		})
	}
	fmt.Fprintln(a.out, renderTable(
		[]string{"ID", "STATUS", "CREATED", "MS", "TEXT", "ERROR"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	return nil
}

func (a *App) Retry(ctx context.Context, id string) error {
	if id == "" {
		a.queue.RetryFailed(ctx)
		fmt.Fprintln(a.out, "retrying failed notes")
		return nil
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("bad note id %q", id)
	}
	if err := a.queue.Retry(ctx, uid); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "retrying", uid)
	return nil
}

func (a *App) Discard(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("bad note id %q", id)
	}
	if err := a.queue.Discard(ctx, uid); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "discarded", uid)
	return nil
}

func (a *App) Status(context.Context) error {
	c := a.queue.Counts()
	fmt.Fprintln(a.out, renderTable(
		[]string{"LINK", "TOTAL", "PENDING", "SENDING", "FAILED"},
		[][]string{{
			a.linkState(),
			strconv.Itoa(c.Total),
			strconv.Itoa(c.Pending),
			strconv.Itoa(c.InFlight),
			strconv.Itoa(c.Failed),
		}},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
