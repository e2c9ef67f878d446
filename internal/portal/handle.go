package portal

import (
	"context"
	"os"

	"github.com/godbus/dbus/v5"

	"github.com/kartoza/kartoza-portal-recorder/internal/models"
	"github.com/kartoza/kartoza-portal-recorder/internal/resource"
)

// Session is an open capture session on the broker
type Session struct {
	Handle dbus.ObjectPath

	open *resource.Slot[dbus.ObjectPath]
}

func newSession(handle dbus.ObjectPath) *Session {
	return &Session{Handle: handle, open: resource.NewSlot(handle)}
}

// IsClosed reports whether Close was already issued
func (s *Session) IsClosed(ctx context.Context) bool {
	return s.open.State(ctx) == resource.StateReleased
}

// TransferHandle is the descriptor through which the granted streams are
// read. It is closed exactly once, by whoever holds it last.
type TransferHandle struct {
	slot *resource.Slot[*os.File]
	file *os.File
}

// NewTransferHandle takes ownership of f
func NewTransferHandle(f *os.File) *TransferHandle {
	return &TransferHandle{slot: resource.NewSlot(f), file: f}
}

// File returns the descriptor; it stays valid until Close
func (h *TransferHandle) File() *os.File {
	return h.file
}

// IsClosed reports whether the descriptor was released
func (h *TransferHandle) IsClosed() bool {
	return h.slot.State(context.Background()) == resource.StateReleased
}

// Close releases the descriptor. Later calls do nothing.
func (h *TransferHandle) Close() error {
	return h.slot.Release(context.Background(), func(f *os.File) error {
		return f.Close()
	})
}

// NegotiationResult is everything a successful negotiation yields
type NegotiationResult struct {
	Session      *Session
	Streams      []models.Stream
	Transfer     *TransferHandle
	RestoreToken string
}
