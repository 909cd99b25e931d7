// Package phone wires the companion-side services together: the device link
// to the watch, the receiver, the upload queue, ack delivery, the remote
// store and the local HTTP API.
package phone

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/wristnote/internal/artifacts"
	"github.com/dmitrijs2005/wristnote/internal/auth"
	"github.com/dmitrijs2005/wristnote/internal/filex"
	"github.com/dmitrijs2005/wristnote/internal/link/grpclink"
	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/dmitrijs2005/wristnote/internal/phone/acks"
	"github.com/dmitrijs2005/wristnote/internal/phone/api"
	"github.com/dmitrijs2005/wristnote/internal/phone/config"
	"github.com/dmitrijs2005/wristnote/internal/phone/receiver"
	"github.com/dmitrijs2005/wristnote/internal/phone/uploadqueue"
	"github.com/dmitrijs2005/wristnote/internal/remote"
	"github.com/dmitrijs2005/wristnote/internal/remote/blobs"
	"github.com/dmitrijs2005/wristnote/internal/remote/records"
	"github.com/dmitrijs2005/wristnote/internal/statefile"
)

type App struct {
	config *config.Config
	logger logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	session    *auth.Provider
	client     *grpclink.Client
	link       *grpclink.Link
	server     *grpclink.Server
	dispatcher *acks.Dispatcher
	queue      *uploadqueue.Queue
	api        *api.Server

	closers []io.Closer
}

// NewApp connects to the record database, the object store and the ack
// outbox, then builds the services on top of them.
func NewApp(c *config.Config, logOut io.Writer) (*App, error) {
	logger, err := logging.New(c.LogFormat, logOut, c.Debug)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	recordsDB, err := records.OpenDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	bs, err := blobs.NewS3Store(ctx, c.S3())
	if err != nil {
		recordsDB.Close()
		return nil, fmt.Errorf("s3 init error: %w", err)
	}

	store := remote.NewService(bs, records.NewStore(recordsDB), c.ReadURLTTL, logger)

	outboxDB, err := openOutbox(ctx, c)
	if err != nil {
		recordsDB.Close()
		return nil, fmt.Errorf("ack outbox: %w", err)
	}

	app, err := newApp(c, logger, store, outboxDB)
	if err != nil {
		outboxDB.Close()
		recordsDB.Close()
		return nil, err
	}
	app.closers = append(app.closers, recordsDB)
	return app, nil
}

func openOutbox(ctx context.Context, c *config.Config) (*sql.DB, error) {
	if c.OutboxDSN == "" {
		if _, err := filex.EnsureDir(c.DataDir); err != nil {
			return nil, err
		}
	}
	return acks.OpenDatabase(ctx, c.Outbox())
}

// newApp builds the services over already opened backends. The outbox
// database is owned by the returned App.
func newApp(c *config.Config, logger logging.Logger, store remote.Store, outboxDB *sql.DB) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{config: c, logger: logger, ctx: ctx, cancel: cancel}
	app.closers = append(app.closers, outboxDB)

	fail := func(err error) (*App, error) {
		app.close()
		return nil, err
	}

	audio, err := artifacts.New(filepath.Join(c.DataDir, "audio"))
	if err != nil {
		return fail(fmt.Errorf("audio store: %w", err))
	}

	state, err := statefile.Open(filepath.Join(c.DataDir, "upload-queue.json"))
	if err != nil {
		return fail(fmt.Errorf("state file: %w", err))
	}
	app.closers = append(app.closers, state)

	app.session = auth.NewProvider([]byte(c.SecretKey), logger)
	if c.AccessToken != "" {
		if _, err := app.session.SetToken(ctx, c.AccessToken); err != nil {
			logger.Warn(ctx, "ignoring configured access token", "error", err)
		}
	}

	app.client, err = grpclink.NewClient(c.PeerAddr, c.PairingToken)
	if err != nil {
		return fail(fmt.Errorf("link client: %w", err))
	}
	app.closers = append(app.closers, app.client)
	app.link = grpclink.New(app.client, c.ReachabilityInterval, logger)

	app.dispatcher = acks.NewDispatcher(app.link, acks.NewSQLiteOutbox(outboxDB), logger)

	app.queue, err = uploadqueue.New(ctx, state, store, app.dispatcher, app.session, c.Policy(), logger)
	if err != nil {
		return fail(err)
	}

	recv := receiver.New(audio, app.queue, c.Device(), logger)
	app.server, err = grpclink.NewServer(c.ListenAddr, filepath.Join(c.DataDir, "inbox"), c.PairingToken, logger, recv, recv)
	if err != nil {
		return fail(fmt.Errorf("link server: %w", err))
	}

	app.api = api.New(app.queue, store, app.session, app.link, logger)
	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// watchSession restarts the upload drain whenever someone signs in.
func (app *App) watchSession(ctx context.Context) {
	ch, cancel := app.session.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			if _, ok := app.session.CurrentUserID(); ok {
				app.queue.Start(ctx)
			}
		}
	}
}

// Run serves until ctx is cancelled, a termination signal arrives or one of
// the servers fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	go func() {
		select {
		case <-ctx.Done():
			app.cancel()
		case <-app.ctx.Done():
			cancelFunc()
		}
	}()

	app.logger.Info(ctx, "Starting phone...", "device", app.config.DeviceName)
	app.initSignalHandler(cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, name, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	run("link server", app.server.Run)
	run("http api", func(ctx context.Context) error { return app.api.Run(ctx, app.config.HTTPAddr) })
	run("link", func(ctx context.Context) error { app.link.Run(ctx); return nil })
	run("ack redelivery", func(ctx context.Context) error { app.dispatcher.Watch(ctx, app.link); return nil })
	run("session", func(ctx context.Context) error { app.watchSession(ctx); return nil })

	app.queue.Start(app.ctx)

	<-ctx.Done()
	wg.Wait()
	app.queue.Wait()

	app.logger.Info(context.Background(), "phone stopped")
	return errors.Join(append(errs, app.close())...)
}

func (app *App) close() error {
	app.cancel()
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i].Close())
	}
	app.closers = nil
	return errors.Join(errs...)
}
