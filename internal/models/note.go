// Package models defines the note records shared by the watch and the phone.
package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the position of a note in the pipeline.
type Status string

const (
	// Watch side.
	StatusQueued       Status = "queued"
	StatusTransferring Status = "transferring"

	// Phone side.
	StatusReceived  Status = "received"
	StatusUploading Status = "uploading"
	StatusUploaded  Status = "uploaded"

	// Either side.
	StatusFailed Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusTransferring,
	StatusReceived,
	StatusUploading,
	StatusUploaded,
	StatusFailed,
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range allStatuses {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// TranscriptionStatus reports what happened to speech-to-text for a note.
type TranscriptionStatus string

const (
	TranscriptionCompleted TranscriptionStatus = "completed"
	TranscriptionFailed    TranscriptionStatus = "failed"
	TranscriptionSkipped   TranscriptionStatus = "skipped"
)

// DeviceInfo describes a device. Informational only.
type DeviceInfo struct {
	Name      string `json:"name,omitempty"`
	Model     string `json:"model,omitempty"`
	OSVersion string `json:"osVersion,omitempty"`
}

// ErrMalformedNote is returned by Validate.
var ErrMalformedNote = errors.New("malformed note")

// Note is the identity and lifecycle record of one recording.
type Note struct {
	ID         uuid.UUID `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	DurationMs int64     `json:"durationMs"`
	Status     Status    `json:"status"`

	Transcription         string              `json:"transcription,omitempty"`
	TranscriptionStatus   TranscriptionStatus `json:"transcriptionStatus,omitempty"`
	TranscriptionLanguage string              `json:"transcriptionLanguage,omitempty"`

	SourceDevice DeviceInfo `json:"sourceDevice"`
	SinkDevice   DeviceInfo `json:"sinkDevice"`

	// LastError holds the most recent watch-side failure.
	LastError string `json:"lastError,omitempty"`
}

// NewNote starts a note for a recording that begins now.
func NewNote(device DeviceInfo) Note {
	return Note{
		ID:           uuid.New(),
		CreatedAt:    time.Now().UTC(),
		SourceDevice: device,
	}
}

// Validate checks the fields every component relies on.
func (n Note) Validate() error {
	switch {
	case n.ID == uuid.Nil:
		return errors.Join(ErrMalformedNote, errors.New("missing id"))
	case n.CreatedAt.IsZero():
		return errors.Join(ErrMalformedNote, errors.New("missing creation time"))
	case n.DurationMs < 0:
		return errors.Join(ErrMalformedNote, errors.New("negative duration"))
	}
	return nil
}

// UploadItem wraps a note while the phone owns it.
type UploadItem struct {
	Note       Note      `json:"note"`
	LocalPath  string    `json:"localPath"`
	RetryCount int       `json:"retryCount"`
	LastError  string    `json:"lastError,omitempty"`
	AddedAt    time.Time `json:"addedAt"`
}

// Counts summarises a queue for status displays.
type Counts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	InFlight  int `json:"inFlight"`
	Failed    int `json:"failed"`
}

// Add tallies one status.
func (c *Counts) Add(s Status) {
	c.Total++
	switch s {
	case StatusQueued, StatusReceived:
		c.Pending++
	case StatusTransferring, StatusUploading:
		c.InFlight++
	case StatusFailed:
		c.Failed++
	}
}
