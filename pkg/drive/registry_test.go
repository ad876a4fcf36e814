package drive

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource replays vals in a loop and counts draws.
type scriptedSource struct {
	vals  []uint64
	next  int
	draws int
}

func (s *scriptedSource) Uint64() uint64 {
	v := s.vals[s.next%len(s.vals)]
	s.next++
	s.draws++
	return v
}

// Values mapping to fixed characters of idAlphabet under IntN(36).
const (
	drawNine uint64 = math.MaxUint64                // '9'
	drawS    uint64 = 1<<63 + 1<<58                 // 'S'
	drawA    uint64 = 1 << 58                       // 'A'
	drawZ    uint64 = 1<<63 + 1<<61 + 1<<60 + 1<<58 // 'Z'
)

func repeat(v uint64, n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRegistryAllocate(t *testing.T) {
	t.Run("GeneratesAlphabetIdentifiers", func(t *testing.T) {
		r := NewRegistry()
		for range 200 {
			id := r.Allocate()
			require.Len(t, string(id), idLength)
			for _, c := range string(id) {
				assert.Contains(t, idAlphabet, string(c))
			}
		}
		assert.Equal(t, 200, r.Len())
	})

	t.Run("NeverRepeats", func(t *testing.T) {
		r := NewRegistry()
		seen := make(map[ID]struct{})
		for range 5000 {
			id := r.Allocate()
			_, dup := seen[id]
			require.False(t, dup, "identifier %s issued twice", id)
			seen[id] = struct{}{}
		}
	})

	t.Run("RetriesOnCollision", func(t *testing.T) {
		vals := append(repeat(drawNine, 12), repeat(drawS, 6)...)
		src := &scriptedSource{vals: vals}
		r := NewRegistryWithSource(src)

		first := r.Allocate()
		second := r.Allocate()

		assert.Equal(t, ID("999999"), first)
		assert.Equal(t, ID("SSSSSS"), second)
		assert.Equal(t, 18, src.draws, "second allocation should redraw once")
		assert.Equal(t, []ID{"999999", "SSSSSS"}, r.IDs())
	})

	t.Run("SkipsIdentifiersRestoredFromSnapshot", func(t *testing.T) {
		vals := append(repeat(drawA, 6), repeat(drawNine, 6)...)
		r := NewRegistryWithSource(&scriptedSource{vals: vals})
		require.True(t, r.add("AAAAAA"))

		assert.Equal(t, ID("999999"), r.Allocate())
	})

	t.Run("IDsReturnsCopy", func(t *testing.T) {
		r := NewRegistry()
		r.Allocate()
		ids := r.IDs()
		ids[0] = "changed"
		assert.NotEqual(t, ID("changed"), r.IDs()[0])
	})
}

func TestScriptedDrawsMapToExpectedCharacters(t *testing.T) {
	r := NewRegistryWithSource(&scriptedSource{vals: []uint64{drawA, drawZ, drawS, drawNine}})
	got := make([]byte, 0, 4)
	for range 4 {
		got = append(got, idAlphabet[r.rng.IntN(len(idAlphabet))])
	}
	assert.Equal(t, "AZS9", string(got))
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id    ID
		valid bool
	}{
		{"root", true},
		{"AB12CD", true},
		{"legacy_id-1", true},
		{"", false},
		{"has space", false},
		{"a/b", false},
		{"..", false},
		{ID(make([]byte, maxIDLength+1)), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidID(tt.id))
		})
	}
}
