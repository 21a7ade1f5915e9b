// Package clipboard defines the boundary between clipped and the shared,
// externally owned OS clipboard.
package clipboard

import (
	"errors"

	"github.com/yiblet/clipped/internal/snapshot"
)

var (
	// ErrNotOffered is returned when a representation is not currently on the clipboard.
	ErrNotOffered = errors.New("representation not offered")

	// ErrUnsupported is returned when a board cannot write a representation.
	ErrUnsupported = errors.New("representation not supported")
)

// Board is the OS clipboard as seen by the observer and the copy action.
// The clipboard is globally mutable with no transactional guarantee: a
// change between ChangeCount and a read may be missed or merged.
type Board interface {
	// ChangeCount returns a counter that increases on every content change.
	ChangeCount() int64

	// Types returns the representations currently offered, in the
	// board's preference order.
	Types() []snapshot.Representation

	// String returns the payload of t decoded as text.
	String(t snapshot.Representation) (string, error)

	// Data returns the raw payload of t.
	Data(t snapshot.Representation) ([]byte, error)

	// Write clears the clipboard and sets a single representation.
	Write(t snapshot.Representation, data []byte) error

	// IsSupported reports whether the board can be used on this system.
	IsSupported() bool
}

// Item is one representation and its payload.
type Item struct {
	Type snapshot.Representation
	Data []byte
}
