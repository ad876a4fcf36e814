// Package slot defines the local persistence slot for drive snapshots.
//
// A slot holds exactly one blob: the latest encoded snapshot. Every save
// overwrites it; there is no history. The slot is a local cache, the
// durable copy lives in the object store (see package object).
//
// Implementations:
//   - pkg/store/slot/fs: a single file on an afero filesystem
//   - pkg/store/slot/badger: a single key in a BadgerDB database
package slot

import (
	"context"
	"errors"
)

// ErrSlotEmpty is returned by Read when nothing has been written yet.
var ErrSlotEmpty = errors.New("slot is empty")

// Slot stores and retrieves the latest snapshot blob.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Slot interface {
	// Write replaces the slot content with data. A failed Write must leave
	// the previous content readable.
	Write(ctx context.Context, data []byte) error

	// Read returns the slot content, or ErrSlotEmpty. The drive never
	// rebuilds itself from the slot; Read exists to inspect the cached blob.
	Read(ctx context.Context) ([]byte, error)

	// Close releases resources held by the slot.
	Close() error
}
