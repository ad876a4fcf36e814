// Package memory implements an in-process object.Store.
//
// Objects live in a map keyed by slot. The store counts calls and can be
// told to fail them, which makes it the backend of choice for scheduler
// tests.
package memory

import (
	"bytes"
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittodrive/pkg/store/object"
)

type entry struct {
	obj     object.Object
	version uint64
	pinned  uuid.UUID
}

// MemoryObjectStore is a map-backed object.Store.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]*entry
	now     func() time.Time

	publishes int
	pins      int

	// Failure injection
	fetchErr   error
	publishErr error
	pinErr     error

	// onPublish runs inside Publish before the object is stored.
	onPublish func()
}

// New returns an empty store.
func New() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects: make(map[string]*entry),
		now:     time.Now,
	}
}

// Fetch returns a copy of the object in slot.
func (s *MemoryObjectStore) Fetch(ctx context.Context, slot string) (*object.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	e, ok := s.objects[slot]
	if !ok {
		return nil, object.ErrObjectNotFound
	}
	obj := e.obj
	obj.Data = bytes.Clone(e.obj.Data)
	return &obj, nil
}

// Publish stores a copy of data in slot, replacing any previous object.
func (s *MemoryObjectStore) Publish(ctx context.Context, slot string, data []byte, displayName, caption string) (object.Ack, error) {
	if err := ctx.Err(); err != nil {
		return object.Ack{}, err
	}

	s.mu.Lock()
	hook := s.onPublish
	s.mu.Unlock()
	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.publishErr != nil {
		return object.Ack{}, s.publishErr
	}

	e, ok := s.objects[slot]
	if !ok {
		e = &entry{}
		s.objects[slot] = e
	}
	e.version++
	e.obj = object.Object{
		Data:        bytes.Clone(data),
		DisplayName: displayName,
		Caption:     caption,
		UpdatedAt:   s.now().UTC(),
	}
	s.publishes++

	return object.Ack{
		Slot:      slot,
		Version:   strconv.FormatUint(e.version, 10),
		PublishID: uuid.New(),
	}, nil
}

// Pin records ack as the pinned publish of its slot.
func (s *MemoryObjectStore) Pin(ctx context.Context, ack object.Ack) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pinErr != nil {
		return s.pinErr
	}
	e, ok := s.objects[ack.Slot]
	if !ok {
		return object.ErrObjectNotFound
	}
	e.pinned = ack.PublishID
	s.pins++
	return nil
}

// ============================================================================
// Test helpers
// ============================================================================

// Publishes returns the number of successful publishes.
func (s *MemoryObjectStore) Publishes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publishes
}

// Pins returns the number of successful pins.
func (s *MemoryObjectStore) Pins() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pins
}

// Pinned returns the publish ID pinned in slot.
func (s *MemoryObjectStore) Pinned(slot string) (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.objects[slot]
	if !ok || e.pinned == uuid.Nil {
		return uuid.Nil, false
	}
	return e.pinned, true
}

// Put stores an object directly, bypassing Publish and its counters.
func (s *MemoryObjectStore) Put(slot string, obj object.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj.Data = bytes.Clone(obj.Data)
	s.objects[slot] = &entry{obj: obj, version: 1}
}

// FailFetch makes Fetch return err. Nil clears it.
func (s *MemoryObjectStore) FailFetch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

// FailPublish makes Publish return err. Nil clears it.
func (s *MemoryObjectStore) FailPublish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishErr = err
}

// FailPin makes Pin return err. Nil clears it.
func (s *MemoryObjectStore) FailPin(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinErr = err
}

// OnPublish installs fn to run at the start of every Publish, outside the
// store lock.
func (s *MemoryObjectStore) OnPublish(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPublish = fn
}

// SetClock overrides the clock used for UpdatedAt.
func (s *MemoryObjectStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
