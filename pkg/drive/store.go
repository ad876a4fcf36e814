// Package drive implements the virtual drive: an in-memory tree of folders
// and file pointers addressed by id-paths, with soft delete and full-state
// snapshots.
//
// Addressing:
// Folder children are keyed by generated identifiers, not by display names.
// An id-path is a slash-joined sequence of identifiers ("/AB12CD/Q9ZX01"),
// and "/" is the root. Callers that only know display names must translate
// them to identifiers first; lookups by name always fail.
//
// Persistence:
// Every mutation re-encodes the whole state (see Encode), writes it to the
// local slot and marks the store dirty. The backup scheduler ships the latest
// snapshot to the object store and clears the flag.
package drive

import (
	"bytes"
	"context"
	"math/rand/v2"
	"sync"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/store/slot"
)

// Store owns the tree and the identifier registry and exposes id-path
// addressed operations on them.
//
// Thread Safety:
// A single mutex serializes all operations, so each call is atomic with
// respect to the others. Two calls are never composed into a transaction.
//
// Returned nodes are deep copies; mutating them does not affect the store.
type Store struct {
	mu sync.Mutex

	tree     *Tree
	registry *Registry
	slot     slot.Slot
	source   rand.Source

	// dirty is set by every save and cleared by MarkClean once the
	// snapshot of the same generation has been published.
	dirty      bool
	generation uint64
	snapshot   []byte
}

// Config configures a Store.
type Config struct {
	// Slot receives every saved snapshot. Nil keeps snapshots in memory only.
	Slot slot.Slot

	// Source overrides the random source used for identifiers. Nil uses a
	// randomly seeded PCG.
	Source rand.Source
}

// Snapshot is an encoded store state tagged with the save generation that
// produced it.
type Snapshot struct {
	Data       []byte
	Generation uint64
}

// Stats summarizes the tree.
type Stats struct {
	Folders    int // excluding the root
	Files      int
	Trashed    int // entries whose own flag is set
	Registered int // identifiers ever issued
}

// New returns a store holding an empty root folder. Nothing is saved until
// the first mutation or an explicit Save.
func New(cfg Config) *Store {
	s := &Store{slot: cfg.Slot, source: cfg.Source}
	s.tree = NewTree()
	s.registry = s.newRegistry()
	return s
}

func (s *Store) newRegistry() *Registry {
	if s.source != nil {
		return NewRegistryWithSource(s.source)
	}
	return NewRegistry()
}

// ============================================================================
// Mutations
// ============================================================================

// CreateFolder creates an empty folder named name inside the folder at
// parentIDPath and returns its identifier.
func (s *Store) CreateFolder(ctx context.Context, parentIDPath, name string) (ID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.tree.ResolveFolder(parentIDPath)
	if err != nil {
		return "", err
	}

	id := s.registry.Allocate()
	parent.Children[id] = newFolder(id, name, idPathOf(parent))
	logger.Info("Created folder %q (%s) in %s", name, id, parentIDPath)

	return id, s.saveLocked(ctx)
}

// CreateFile creates a file entry pointing at ref inside the folder at
// parentIDPath and returns its identifier.
func (s *Store) CreateFile(ctx context.Context, parentIDPath, name string, ref ContentRef, size uint64) (ID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.tree.ResolveFolder(parentIDPath)
	if err != nil {
		return "", err
	}

	id := s.registry.Allocate()
	parent.Children[id] = newFile(id, name, idPathOf(parent), ref, size)
	logger.Info("Created file %q (%s, %d bytes) in %s", name, id, size, parentIDPath)

	return id, s.saveLocked(ctx)
}

// Rename sets the display name of the entry at idPath.
func (s *Store) Rename(ctx context.Context, idPath, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookupLocked(idPath)
	if err != nil {
		return err
	}

	logger.Info("Renaming %s from %q to %q", idPath, n.DisplayName(), newName)
	n.entry().Name = newName

	return s.saveLocked(ctx)
}

// SetTrashed sets the trashed flag of the entry at idPath. Descendants of a
// folder keep their own flags.
func (s *Store) SetTrashed(ctx context.Context, idPath string, trashed bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookupLocked(idPath)
	if err != nil {
		return err
	}

	if trashed {
		logger.Info("Trashing %s", idPath)
	} else {
		logger.Info("Restoring %s from trash", idPath)
	}
	n.entry().Trashed = trashed

	return s.saveLocked(ctx)
}

// Delete removes the entry at idPath, and with a folder its whole subtree.
//
// The entry does not have to be trashed first; callers that want a
// trash-before-delete policy must enforce it. Identifiers of removed nodes
// stay registered and are never issued again.
func (s *Store) Delete(ctx context.Context, idPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, key, err := s.tree.ResolveParentAndKey(idPath)
	if err != nil {
		return err
	}
	if _, ok := parent.Children[key]; !ok {
		return newError(CodeNotFound, "no entry to delete", idPath)
	}

	logger.Info("Deleting %s", idPath)
	delete(parent.Children, key)

	return s.saveLocked(ctx)
}

// ============================================================================
// Queries
// ============================================================================

// GetDirectory returns a copy of the folder at idPath.
func (s *Store) GetDirectory(ctx context.Context, idPath string) (*Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folder, err := s.tree.ResolveFolder(idPath)
	if err != nil {
		return nil, err
	}
	return clone(folder).(*Folder), nil
}

// GetFile returns a copy of the file at idPath.
func (s *Store) GetFile(ctx context.Context, idPath string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookupLocked(idPath)
	if err != nil {
		return nil, err
	}
	file, ok := n.(*File)
	if !ok {
		return nil, newError(CodeTypeMismatch, "expected file, got folder", idPath)
	}
	return clone(file).(*File), nil
}

// ListTrashed returns the top-level trashed entries keyed by identifier.
//
// A trashed folder is reported and not descended into, so trashed entries
// below it are not reported separately. The result is recomputed from the
// current tree on every call.
func (s *Store) ListTrashed(ctx context.Context) (map[ID]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[ID]Node)
	for id, n := range s.tree.Trashed() {
		out[id] = clone(n)
	}
	return out, nil
}

// Stats counts the entries of the tree.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Registered: s.registry.Len()}
	s.tree.Walk(func(n Node) bool {
		switch n.Kind() {
		case KindFolder:
			st.Folders++
		case KindFile:
			st.Files++
		}
		if n.IsTrashed() {
			st.Trashed++
		}
		return true
	})
	return st
}

// lookupLocked resolves the entry at idPath through its parent folder.
func (s *Store) lookupLocked(idPath string) (Node, error) {
	parent, key, err := s.tree.ResolveParentAndKey(idPath)
	if err != nil {
		return nil, err
	}
	n, ok := parent.Children[key]
	if !ok {
		return nil, newError(CodeNotFound, "no entry "+string(key), idPath)
	}
	return n, nil
}

// ============================================================================
// Persistence
// ============================================================================

// Save encodes the full state, writes it to the local slot, keeps it as the
// latest snapshot and marks the store dirty.
func (s *Store) Save(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.saveLocked(ctx)
	return bytes.Clone(s.snapshot), err
}

// saveLocked is Save with s.mu held. The in-memory snapshot and the dirty
// flag are updated even when the slot write fails, so the next publish still
// carries the mutation.
func (s *Store) saveLocked(ctx context.Context) error {
	data, err := Encode(s.tree, s.registry)
	if err != nil {
		return &Error{Code: CodePersistence, Message: "failed to encode snapshot", Err: err}
	}

	s.snapshot = data
	s.generation++
	s.dirty = true

	if s.slot == nil {
		return nil
	}
	if err := s.slot.Write(ctx, data); err != nil {
		logger.Error("Failed to write snapshot to local slot: %v", err)
		return &Error{Code: CodePersistence, Message: "failed to write local snapshot", Err: err}
	}
	return nil
}

// Load replaces the whole state with a decoded snapshot and writes the blob
// to the local slot. The loaded state is considered published: the store is
// left clean.
func (s *Store) Load(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tree, registry, err := Decode(data)
	if err != nil {
		return err
	}
	if s.source != nil {
		registry.rng = rand.New(s.source)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree = tree
	s.registry = registry
	s.snapshot = append([]byte(nil), data...)
	s.generation++
	s.dirty = false

	if s.slot != nil {
		if err := s.slot.Write(ctx, s.snapshot); err != nil {
			logger.Warn("Failed to cache restored snapshot locally: %v", err)
		}
	}
	return nil
}

// Reset discards all state and starts over with an empty root folder and an
// empty registry. It does not save.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree = NewTree()
	s.registry = s.newRegistry()
	s.snapshot = nil
	s.generation++
}

// Dirty reports whether there are saves not yet published.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// LatestSnapshot returns the most recently saved snapshot. If nothing was
// saved since the last Reset, the current state is encoded without saving.
func (s *Store) LatestSnapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		data, err := Encode(s.tree, s.registry)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Data: data, Generation: s.generation}, nil
	}
	return Snapshot{Data: bytes.Clone(s.snapshot), Generation: s.generation}, nil
}

// MarkClean clears the dirty flag if no save happened after the snapshot of
// generation was taken. It reports whether the flag was cleared.
func (s *Store) MarkClean(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation {
		return false
	}
	s.dirty = false
	return true
}
