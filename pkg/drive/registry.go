package drive

import (
	"math/rand/v2"
)

const (
	// idLength is the number of characters in a generated identifier.
	idLength = 6

	// idAlphabet is the generation alphabet: 36^6 ≈ 2.2e9 identifiers.
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxIDLength bounds identifiers accepted in id-paths and snapshots.
	maxIDLength = 64
)

// Registry is the set of identifiers ever issued.
//
// Identifiers are never released, not even when their node is deleted, so an
// external reference that outlives a delete can never alias a new node.
// Issue order is kept so snapshots encode deterministically.
//
// Registry is not safe for concurrent use; Store serializes access.
type Registry struct {
	used  map[ID]struct{}
	order []ID
	rng   *rand.Rand
}

// NewRegistry returns an empty registry seeded from the runtime's entropy.
func NewRegistry() *Registry {
	return NewRegistryWithSource(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewRegistryWithSource returns an empty registry drawing from src. Tests use
// this to force collisions.
func NewRegistryWithSource(src rand.Source) *Registry {
	return &Registry{
		used: make(map[ID]struct{}),
		rng:  rand.New(src),
	}
}

// Allocate generates an identifier that is not yet registered, registers it
// and returns it. It retries without bound; at 36^6 candidates exhaustion is
// not a practical concern.
func (r *Registry) Allocate() ID {
	buf := make([]byte, idLength)
	for {
		for i := range buf {
			buf[i] = idAlphabet[r.rng.IntN(len(idAlphabet))]
		}
		id := ID(buf)
		if id == RootID || r.Contains(id) {
			continue
		}
		r.add(id)
		return id
	}
}

// Contains reports whether id has been issued.
func (r *Registry) Contains(id ID) bool {
	_, ok := r.used[id]
	return ok
}

// Len returns the number of issued identifiers.
func (r *Registry) Len() int {
	return len(r.order)
}

// IDs returns the issued identifiers in issue order.
func (r *Registry) IDs() []ID {
	out := make([]ID, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) add(id ID) bool {
	if r.Contains(id) {
		return false
	}
	r.used[id] = struct{}{}
	r.order = append(r.order, id)
	return true
}

// ValidID reports whether id may appear as an id-path segment: the root
// identifier, or 1..64 characters from [A-Za-z0-9_-].
func ValidID(id ID) bool {
	if id == RootID {
		return true
	}
	if len(id) == 0 || len(id) > maxIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
