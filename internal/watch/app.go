// Package watch wires the wrist-side services together: the artifact store,
// the source queue, the device link to the phone and the console.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/wristnote/internal/artifacts"
	"github.com/dmitrijs2005/wristnote/internal/link"
	"github.com/dmitrijs2005/wristnote/internal/link/grpclink"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/dmitrijs2005/wristnote/internal/statefile"
	"github.com/dmitrijs2005/wristnote/internal/transcribe"
	"github.com/dmitrijs2005/wristnote/internal/watch/capture"
	"github.com/dmitrijs2005/wristnote/internal/watch/cli"
	"github.com/dmitrijs2005/wristnote/internal/watch/config"
	"github.com/dmitrijs2005/wristnote/internal/watch/sourcequeue"
)

type App struct {
	config *config.Config
	logger logging.Logger

	state  *statefile.File
	client *grpclink.Client
	link   *grpclink.Link
	server *grpclink.Server
	queue  *sourcequeue.Queue
	cli    *cli.App
}

func NewApp(ctx context.Context, c *config.Config, logOut, consoleOut io.Writer) (*App, error) {
	logger, err := logging.New(c.LogFormat, logOut, c.Debug)
	if err != nil {
		return nil, err
	}

	audio, err := artifacts.New(filepath.Join(c.DataDir, "audio"))
	if err != nil {
		return nil, fmt.Errorf("audio store: %w", err)
	}

	state, err := statefile.Open(filepath.Join(c.DataDir, "source-queue.json"))
	if err != nil {
		return nil, fmt.Errorf("state file: %w", err)
	}

	client, err := grpclink.NewClient(c.PeerAddr, c.PairingToken)
	if err != nil {
		state.Close()
		return nil, fmt.Errorf("link client: %w", err)
	}
	peer := grpclink.New(client, c.ReachabilityInterval, logger)

	queue, err := sourcequeue.New(ctx, state, audio, peer, logger)
	if err != nil {
		client.Close()
		state.Close()
		return nil, err
	}
	peer.NotifyFailures(queue)

	server, err := grpclink.NewServer(c.ListenAddr, filepath.Join(c.DataDir, "inbox"), c.PairingToken, logger, rejectFiles{logger: logger}, queue)
	if err != nil {
		client.Close()
		state.Close()
		return nil, fmt.Errorf("link server: %w", err)
	}

	var tr transcribe.Transcriber
	if cmd := transcribe.ParseCommand(c.TranscribeCommand); cmd != nil {
		tr = cmd
	}
	recorder := capture.NewService(audio, tr, queue, c.Device(), logger)

	return &App{
		config: c,
		logger: logger,
		state:  state,
		client: client,
		link:   peer,
		server: server,
		queue:  queue,
		cli:    cli.NewApp(recorder, queue, peer, consoleOut),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the link and serves the console on in. It returns when the
// console exits or a termination signal arrives.
func (app *App) Run(ctx context.Context, in io.Reader) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting watch...", "device", app.config.DeviceName)
	app.initSignalHandler(cancelFunc)

	var (
		wg     sync.WaitGroup
		srvErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			srvErr = err
			app.logger.Error(ctx, "link server", "error", err)
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		app.link.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		app.queue.WatchReachability(ctx, app.link)
	}()

	app.queue.Resume(ctx)

	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		app.cli.Run(ctx, in)
	}()

	select {
	case <-consoleDone:
		cancelFunc()
	case <-ctx.Done():
	}

	wg.Wait()
	return errors.Join(srvErr, app.close())
}

func (app *App) close() error {
	return errors.Join(app.client.Close(), app.state.Close())
}

// rejectFiles discards files pushed to the watch; only the phone receives
// audio.
type rejectFiles struct {
	logger logging.Logger
}

var _ link.FileHandler = rejectFiles{}

func (r rejectFiles) HandleFile(ctx context.Context, f link.InboundFile) {
	r.logger.Warn(ctx, "unexpected file from phone", "path", f.Path)
	if err := artifacts.RemovePath(f.Path); err != nil {
		r.logger.Error(ctx, "delete inbound file", "path", f.Path, "error", err)
	}
}
