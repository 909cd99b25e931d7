package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests use a stub.
type execIface interface {
	Record(ctx context.Context, path, duration string) error
	List(ctx context.Context) error
	Retry(ctx context.Context, id string) error
	Discard(ctx context.Context, id string) error
	Status(ctx context.Context) error
}

const helpText = `commands:
  record <path> <ms>   import a recording and queue it
  list                 show queued notes
  retry [id]           retry one note, or every failed note
  discard <id>         drop a note and its audio
  status               link and queue summary
  exit                 leave`

// runREPL reads one command per line and dispatches it. Command errors are
// printed and the loop goes on; it ends on EOF, "exit"/"quit" or ctx.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner, out io.Writer) {
	for ctx.Err() == nil {
		fmt.Fprintf(out, "wn [%s]> ", statusFn())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help", "?":
			fmt.Fprintln(out, helpText)

		case "record", "r":
			if len(args) != 2 {
				err = fmt.Errorf("usage: record <path> <ms>")
				break
			}
			err = a.Record(ctx, args[0], args[1])

		case "list", "l":
			err = a.List(ctx)

		case "retry":
			id := ""
			if len(args) > 0 {
				id = args[0]
			}
			err = a.Retry(ctx, id)

		case "discard":
			if len(args) != 1 {
				err = fmt.Errorf("usage: discard <id>")
				break
			}
			err = a.Discard(ctx, args[0])

		case "status", "s":
			err = a.Status(ctx)

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}
