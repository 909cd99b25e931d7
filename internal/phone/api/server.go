// Package api is the phone's local HTTP control surface: queue status,
// manual retry, read links and deletion of uploaded notes, and session
// management.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/logging"
	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type Queue interface {
	Items() []models.UploadItem
	Counts() models.Counts
	Running() bool
	Retry(ctx context.Context, id uuid.UUID) error
	RetryFailed(ctx context.Context) int
	Remove(ctx context.Context, id uuid.UUID) error
}

type Remote interface {
	Delete(ctx context.Context, userID string, noteID uuid.UUID) error
	ReadURL(ctx context.Context, userID string, noteID uuid.UUID) (string, error)
}

type Session interface {
	SetToken(ctx context.Context, token string) (string, error)
	Clear(ctx context.Context)
	CurrentUserID() (string, bool)
}

// Reachability reports whether the watch is currently connected.
type Reachability interface {
	Reachable() bool
}

type Server struct {
	queue   Queue
	remote  Remote
	session Session
	link    Reachability
	logger  logging.Logger
}

func New(q Queue, r Remote, s Session, link Reachability, l logging.Logger) *Server {
	return &Server{
		queue:   q,
		remote:  r,
		session: s,
		link:    link,
		logger:  l.With("module", "api"),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(tagRequest)

	r.Get("/healthz", s.handleHealth)

	r.Route("/queue", func(r chi.Router) {
		r.Get("/", s.handleQueue)
		r.Post("/retry", s.handleRetryFailed)
		r.Post("/{id}/retry", s.handleRetry)
	})

	r.Route("/notes/{id}", func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/url", s.handleReadURL)
		r.Delete("/", s.handleDelete)
	})

	r.Route("/session", func(r chi.Router) {
		r.Put("/", s.handleSignIn)
		r.Delete("/", s.handleSignOut)
	})

	return r
}

// tagRequest makes every log line of a request carry its id.
func tagRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWith(r.Context(), "request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "http api listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info(ctx, "http api stopped")
	return nil
}
