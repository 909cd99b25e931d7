package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/wristnote/internal/common"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, signedIn := s.session.CurrentUserID()
	s.respondJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok", SignedIn: signedIn})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	items := s.queue.Items()
	out := queueResponse{
		Counts:      s.queue.Counts(),
		Uploading:   s.queue.Running(),
		WatchLinked: s.link.Reachable(),
		Items:       make([]queueItem, 0, len(items)),
	}
	for _, it := range items {
		out.Items = append(out.Items, queueItem{
			NoteID:        it.Note.ID,
			Status:        it.Note.Status,
			CreatedAt:     it.Note.CreatedAt,
			DurationMs:    it.Note.DurationMs,
			Transcription: it.Note.Transcription,
			RetryCount:    it.RetryCount,
			LastError:     it.LastError,
			AddedAt:       it.AddedAt,
		})
	}
	s.respondJSON(r.Context(), w, http.StatusOK, out)
}

func (s *Server) handleRetryFailed(w http.ResponseWriter, r *http.Request) {
	n := s.queue.RetryFailed(r.Context())
	s.respondJSON(r.Context(), w, http.StatusAccepted, retryResponse{Reset: n})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.noteID(w, r)
	if !ok {
		return
	}
	if err := s.queue.Retry(r.Context(), id); err != nil {
		s.handleError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleReadURL(w http.ResponseWriter, r *http.Request) {
	id, ok := s.noteID(w, r)
	if !ok {
		return
	}
	url, err := s.remote.ReadURL(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		s.handleError(r.Context(), w, err)
		return
	}
	s.respondJSON(r.Context(), w, http.StatusOK, urlResponse{URL: url})
}

// handleDelete drops the note from the local queue, if it is still there,
// and from the remote store. It is a 404 only when neither side knew it.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := s.noteID(w, r)
	if !ok {
		return
	}

	localErr := s.queue.Remove(ctx, id)
	if localErr != nil && !errors.Is(localErr, common.ErrorNotFound) {
		s.handleError(ctx, w, localErr)
		return
	}

	remoteErr := s.remote.Delete(ctx, userFrom(ctx), id)
	if remoteErr != nil && !errors.Is(remoteErr, common.ErrorNotFound) {
		s.handleError(ctx, w, remoteErr)
		return
	}

	if localErr != nil && remoteErr != nil {
		s.handleError(ctx, w, remoteErr)
		return
	}

	s.logger.Info(ctx, "note deleted", "note_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		s.respondError(ctx, w, http.StatusBadRequest, "token is required")
		return
	}

	userID, err := s.session.SetToken(ctx, req.Token)
	if err != nil {
		s.respondError(ctx, w, http.StatusUnauthorized, err.Error())
		return
	}
	s.respondJSON(ctx, w, http.StatusOK, sessionResponse{UserID: userID})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.session.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
