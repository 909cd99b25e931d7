// Package link describes the proximity channel between the watch and the
// phone: bulk file transfer, small best-effort messages and an observable
// reachability flag.
package link

import (
	"context"
	"errors"
)

var (
	// ErrUnreachable is returned when the peer cannot be reached right now.
	ErrUnreachable = errors.New("peer unreachable")

	// ErrUndecodable marks inbound tags or payloads that lack required keys.
	ErrUndecodable = errors.New("undecodable payload")

	// ErrTransient marks a transfer the peer failed to take this time but may
	// take on a later attempt.
	ErrTransient = errors.New("transient peer failure")
)

// Link is the outbound side of the channel.
type Link interface {
	// TransferFile hands path to the platform for eventual delivery. A nil
	// error means the transfer was accepted, not that it was delivered.
	TransferFile(ctx context.Context, path string, tags map[string]string) error

	// SendMessage delivers payload immediately or fails with ErrUnreachable.
	SendMessage(ctx context.Context, payload map[string]any) error

	Reachable() bool

	// Subscribe streams reachability transitions until cancel is called.
	Subscribe() (<-chan bool, func())
}

// InboundFile is a delivered file. Path points to a temporary location the
// handler owns and must move or delete.
type InboundFile struct {
	Path string
	Tags map[string]string
}

type FileHandler interface {
	HandleFile(ctx context.Context, file InboundFile)
}

type MessageHandler interface {
	HandleMessage(ctx context.Context, payload map[string]any)
}

// TransferFailureHandler is told about accepted transfers the link gave up
// on. tags are the ones passed to TransferFile.
type TransferFailureHandler interface {
	HandleTransferFailure(ctx context.Context, tags map[string]string, err error)
}

// Watcher is the reachability side of a Link.
type Watcher interface {
	Reachable() bool
	Subscribe() (<-chan bool, func())
}
