package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/wristnote/internal/common"
	"github.com/dmitrijs2005/wristnote/internal/phone/uploadqueue"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type userKey struct{}

func (s *Server) respondJSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error(ctx, "encode response", "error", err)
		}
	}
}

func (s *Server) respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	s.respondJSON(ctx, w, status, errorResponse{Error: message})
}

// handleError maps domain errors onto status codes.
func (s *Server) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		s.respondError(ctx, w, http.StatusNotFound, err.Error())
	case errors.Is(err, uploadqueue.ErrBusy):
		s.respondError(ctx, w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		s.respondError(ctx, w, http.StatusUnauthorized, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		s.respondError(ctx, w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) noteID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(r.Context(), w, http.StatusBadRequest, "invalid note id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.session.CurrentUserID()
		if !ok {
			s.respondError(r.Context(), w, http.StatusUnauthorized, common.ErrorUnauthorized.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	})
}

func userFrom(ctx context.Context) string {
	v, _ := ctx.Value(userKey{}).(string)
	return v
}
