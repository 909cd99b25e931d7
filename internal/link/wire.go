package link

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/models"
	"github.com/google/uuid"
)

// Tag keys carried with every file transfer.
const (
	TagNoteID                = "noteId"
	TagCreatedAt             = "createdAt"
	TagDurationMs            = "durationMs"
	TagTranscription         = "transcription"
	TagTranscriptionStatus   = "transcriptionStatus"
	TagTranscriptionLanguage = "transcriptionLanguage"
	TagDeviceName            = "deviceName"
	TagDeviceModel           = "deviceModel"
	TagDeviceOSVersion       = "deviceOsVersion"
)

// Ack payload keys.
const (
	KeyType       = "type"
	KeyNoteID     = "noteId"
	KeyStatus     = "status"
	KeyUploadedAt = "uploadedAt"

	TypeUploadAck = "uploadAck"
)

// EncodeTags flattens the parts of n the phone needs.
func EncodeTags(n models.Note) map[string]string {
	tags := map[string]string{
		TagNoteID:     n.ID.String(),
		TagCreatedAt:  strconv.FormatInt(n.CreatedAt.UnixMilli(), 10),
		TagDurationMs: strconv.FormatInt(n.DurationMs, 10),
	}
	put := func(k, v string) {
		if v != "" {
			tags[k] = v
		}
	}
	put(TagTranscription, n.Transcription)
	put(TagTranscriptionStatus, string(n.TranscriptionStatus))
	put(TagTranscriptionLanguage, n.TranscriptionLanguage)
	put(TagDeviceName, n.SourceDevice.Name)
	put(TagDeviceModel, n.SourceDevice.Model)
	put(TagDeviceOSVersion, n.SourceDevice.OSVersion)
	return tags
}

// DecodeTags rebuilds a note from transfer tags. Status is left empty.
func DecodeTags(tags map[string]string) (models.Note, error) {
	var n models.Note

	id, err := uuid.Parse(tags[TagNoteID])
	if err != nil {
		return n, fmt.Errorf("%w: noteId: %v", ErrUndecodable, err)
	}

	created, err := strconv.ParseInt(tags[TagCreatedAt], 10, 64)
	if err != nil {
		return n, fmt.Errorf("%w: createdAt: %v", ErrUndecodable, err)
	}

	duration, err := strconv.ParseInt(tags[TagDurationMs], 10, 64)
	if err != nil {
		return n, fmt.Errorf("%w: durationMs: %v", ErrUndecodable, err)
	}

	n = models.Note{
		ID:                    id,
		CreatedAt:             time.UnixMilli(created).UTC(),
		DurationMs:            duration,
		Transcription:         tags[TagTranscription],
		TranscriptionStatus:   models.TranscriptionStatus(tags[TagTranscriptionStatus]),
		TranscriptionLanguage: tags[TagTranscriptionLanguage],
		SourceDevice: models.DeviceInfo{
			Name:      tags[TagDeviceName],
			Model:     tags[TagDeviceModel],
			OSVersion: tags[TagDeviceOSVersion],
		},
	}
	if err := n.Validate(); err != nil {
		return models.Note{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return n, nil
}

// EncodeAck builds the ack message payload.
func EncodeAck(a models.Ack) map[string]any {
	p := map[string]any{
		KeyType:   TypeUploadAck,
		KeyNoteID: a.NoteID.String(),
		KeyStatus: string(a.Status),
	}
	if a.UploadedAt != nil {
		p[KeyUploadedAt] = float64(a.UploadedAt.Unix())
	}
	return p
}

// DecodeAck parses an ack payload.
func DecodeAck(p map[string]any) (models.Ack, error) {
	var a models.Ack

	if t, _ := p[KeyType].(string); t != TypeUploadAck {
		return a, fmt.Errorf("%w: type %v", ErrUndecodable, p[KeyType])
	}

	rawID, _ := p[KeyNoteID].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return a, fmt.Errorf("%w: noteId: %v", ErrUndecodable, err)
	}

	status, _ := p[KeyStatus].(string)
	switch models.AckStatus(status) {
	case models.AckUploaded, models.AckFailed:
	default:
		return a, fmt.Errorf("%w: status %q", ErrUndecodable, status)
	}

	a = models.Ack{NoteID: id, Status: models.AckStatus(status)}

	if raw, ok := p[KeyUploadedAt]; ok {
		secs, ok := toFloat(raw)
		if !ok || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return models.Ack{}, fmt.Errorf("%w: uploadedAt %v", ErrUndecodable, raw)
		}
		whole, frac := math.Modf(secs)
		at := time.Unix(int64(whole), int64(frac*1e9)).UTC()
		a.UploadedAt = &at
	}
	return a, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
