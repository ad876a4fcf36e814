// Package object defines the remote channel that holds the durable copy of
// the drive snapshot.
//
// The channel exposes one named slot per backup. Publishing replaces the
// slot's object in place; fetching returns the latest published object.
// Pinning marks a published object as the canonical one on the channel and
// is best effort: callers log a Pin failure and move on.
//
// Implementations:
//   - pkg/store/object/memory: in-process map, for tests and development
//   - pkg/store/object/s3: one S3 object per slot
package object

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrObjectNotFound is returned by Fetch when nothing has been published to
// the slot.
var ErrObjectNotFound = errors.New("object not found")

// Object is a published blob with its descriptive metadata.
type Object struct {
	// Data is the blob as published.
	Data []byte

	// DisplayName is the file name shown to people browsing the channel.
	// Restore uses it to recognize a drive backup.
	DisplayName string

	// Caption is free text attached to the object.
	Caption string

	// UpdatedAt is when the object was last published.
	UpdatedAt time.Time
}

// Ack identifies one successful publish.
type Ack struct {
	// Slot is the slot the object was published to.
	Slot string

	// Version is the backend's version for this publish, if it has one.
	Version string

	// PublishID is generated per publish and stored with the object.
	PublishID uuid.UUID
}

// Store is the Object Channel Store.
//
// Thread Safety:
// Implementations must be safe for concurrent use.
type Store interface {
	// Fetch returns the latest object in slot, or ErrObjectNotFound.
	Fetch(ctx context.Context, slot string) (*Object, error)

	// Publish replaces the object in slot.
	Publish(ctx context.Context, slot string, data []byte, displayName, caption string) (Ack, error)

	// Pin marks the object acknowledged by ack as canonical.
	Pin(ctx context.Context, ack Ack) error
}
