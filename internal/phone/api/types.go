package api

import (
	"time"

	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/google/uuid"
)

type errorResponse struct {
	Error string `json:"error"`
}

type queueItem struct {
	NoteID        uuid.UUID     `json:"noteId"`
	Status        models.Status `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	DurationMs    int64         `json:"durationMs"`
	Transcription string        `json:"transcription,omitempty"`
	RetryCount    int           `json:"retryCount"`
	LastError     string        `json:"lastError,omitempty"`
	AddedAt       time.Time     `json:"addedAt"`
}

type queueResponse struct {
	Counts      models.Counts `json:"counts"`
	Uploading   bool          `json:"uploading"`
	WatchLinked bool          `json:"watchLinked"`
	Items       []queueItem   `json:"items"`
}

type retryResponse struct {
	Reset int `json:"reset"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type sessionRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	UserID string `json:"userId"`
}

type healthResponse struct {
	Status   string `json:"status"`
	SignedIn bool   `json:"signedIn"`
}
