package models

import (
	"time"

	"github.com/google/uuid"
)

// AckStatus is the terminal outcome reported back to the watch.
type AckStatus string

const (
	AckUploaded AckStatus = "uploaded"
	AckFailed   AckStatus = "failed"
)

// Ack confirms durable storage or permanent failure of a note.
type Ack struct {
	NoteID     uuid.UUID
	Status     AckStatus
	UploadedAt *time.Time
}

// UploadedAck builds the success acknowledgment for id.
func UploadedAck(id uuid.UUID, at time.Time) Ack {
	at = at.UTC()
	return Ack{NoteID: id, Status: AckUploaded, UploadedAt: &at}
}

// FailedAck builds the permanent-failure acknowledgment for id.
func FailedAck(id uuid.UUID) Ack {
	return Ack{NoteID: id, Status: AckFailed}
}
