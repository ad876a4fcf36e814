package drive

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree returns:
//
//	/               root
//	/AAAAAA         folder "Docs"
//	/AAAAAA/BBBBBB  file "a.txt"
//	/CCCCCC         file "b.txt"
func buildTree(t *testing.T) *Tree {
	t.Helper()
	tree := NewTree()
	docs := newFolder("AAAAAA", "Docs", RootPath)
	docs.Children["BBBBBB"] = newFile("BBBBBB", "a.txt", "/AAAAAA", "ref-a", 10)
	tree.root.Children["AAAAAA"] = docs
	tree.root.Children["CCCCCC"] = newFile("CCCCCC", "b.txt", RootPath, "ref-b", 20)
	return tree
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    []ID
		wantErr error
	}{
		{"Root", "/", nil, nil},
		{"RootRepeatedSeparators", "//", nil, nil},
		{"Single", "/AAAAAA", []ID{"AAAAAA"}, nil},
		{"Nested", "/AAAAAA/BBBBBB", []ID{"AAAAAA", "BBBBBB"}, nil},
		{"NoLeadingSeparator", "AAAAAA/BBBBBB", []ID{"AAAAAA", "BBBBBB"}, nil},
		{"TrailingSeparator", "/AAAAAA/", []ID{"AAAAAA"}, nil},
		{"Empty", "", nil, ErrMalformedPath},
		{"EmptyInnerSegment", "/AAAAAA//BBBBBB", nil, ErrMalformedPath},
		{"InvalidCharacters", "/Docs Folder", nil, ErrMalformedPath},
		{"DotSegment", "/AAAAAA/../BBBBBB", nil, ErrMalformedPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitPath(tt.path)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/", JoinPath())
	assert.Equal(t, "/AAAAAA", JoinPath("AAAAAA"))
	assert.Equal(t, "/AAAAAA/BBBBBB", JoinPath("AAAAAA", "BBBBBB"))
}

func TestTreeResolve(t *testing.T) {
	tree := buildTree(t)

	t.Run("Root", func(t *testing.T) {
		n, err := tree.Resolve("/")
		require.NoError(t, err)
		assert.Equal(t, RootID, n.NodeID())
	})

	t.Run("NestedFile", func(t *testing.T) {
		n, err := tree.Resolve("/AAAAAA/BBBBBB")
		require.NoError(t, err)
		assert.Equal(t, "a.txt", n.DisplayName())
	})

	t.Run("Deterministic", func(t *testing.T) {
		a, err := tree.Resolve("/AAAAAA/BBBBBB")
		require.NoError(t, err)
		b, err := tree.Resolve("/AAAAAA/BBBBBB")
		require.NoError(t, err)
		assert.Same(t, a, b)
	})

	t.Run("MissingSegment", func(t *testing.T) {
		_, err := tree.Resolve("/AAAAAA/ZZZZZZ")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DisplayNameIsNotAKey", func(t *testing.T) {
		_, err := tree.Resolve("/Docs")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("DescendIntoFile", func(t *testing.T) {
		_, err := tree.Resolve("/CCCCCC/AAAAAA")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTreeResolveParentAndKey(t *testing.T) {
	tree := buildTree(t)

	t.Run("ChildOfRoot", func(t *testing.T) {
		parent, key, err := tree.ResolveParentAndKey("/CCCCCC")
		require.NoError(t, err)
		assert.Equal(t, RootID, parent.ID)
		assert.Equal(t, ID("CCCCCC"), key)
	})

	t.Run("MissingTargetStillResolvesParent", func(t *testing.T) {
		parent, key, err := tree.ResolveParentAndKey("/AAAAAA/ZZZZZZ")
		require.NoError(t, err)
		assert.Equal(t, ID("AAAAAA"), parent.ID)
		assert.Equal(t, ID("ZZZZZZ"), key)
	})

	t.Run("RootHasNoParent", func(t *testing.T) {
		_, _, err := tree.ResolveParentAndKey("/")
		assert.ErrorIs(t, err, ErrMalformedPath)
	})

	t.Run("ParentIsFile", func(t *testing.T) {
		_, _, err := tree.ResolveParentAndKey("/CCCCCC/ZZZZZZ")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTreeResolveFolder(t *testing.T) {
	tree := buildTree(t)

	_, err := tree.ResolveFolder("/CCCCCC")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	f, err := tree.ResolveFolder("/AAAAAA")
	require.NoError(t, err)
	assert.Len(t, f.Children, 1)
}

func TestTreeWalk(t *testing.T) {
	tree := buildTree(t)

	t.Run("PreOrderByIdentifier", func(t *testing.T) {
		var visited []ID
		tree.Walk(func(n Node) bool {
			visited = append(visited, n.NodeID())
			return true
		})
		assert.Equal(t, []ID{"AAAAAA", "BBBBBB", "CCCCCC"}, visited)
	})

	t.Run("SkipsSubtree", func(t *testing.T) {
		var visited []ID
		tree.Walk(func(n Node) bool {
			visited = append(visited, n.NodeID())
			return false
		})
		assert.Equal(t, []ID{"AAAAAA", "CCCCCC"}, visited)
	})

	t.Run("DeepTree", func(t *testing.T) {
		deep := NewTree()
		parent := deep.root
		for i := 0; i < 2000; i++ {
			id := ID(fmt.Sprintf("D%05d", i))
			f := newFolder(id, "level", idPathOf(parent))
			parent.Children[id] = f
			parent = f
		}

		count := 0
		deep.Walk(func(Node) bool {
			count++
			return true
		})
		assert.Equal(t, 2000, count)
	})
}

func TestTreeTrashed(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		tree := buildTree(t)
		count := 0
		for range tree.Trashed() {
			count++
		}
		assert.Zero(t, count)
	})

	t.Run("TrashedFolderHidesTrashedDescendants", func(t *testing.T) {
		tree := buildTree(t)
		docs := tree.root.Children["AAAAAA"].(*Folder)
		docs.Trashed = true
		docs.Children["BBBBBB"].entry().Trashed = true

		got := map[ID]Node{}
		for id, n := range tree.Trashed() {
			_, dup := got[id]
			require.False(t, dup, "%s yielded twice", id)
			got[id] = n
		}
		require.Len(t, got, 1)
		assert.Same(t, Node(docs), got["AAAAAA"])
	})

	t.Run("TrashedFileBelowLiveFolder", func(t *testing.T) {
		tree := buildTree(t)
		tree.root.Children["AAAAAA"].(*Folder).Children["BBBBBB"].entry().Trashed = true
		tree.root.Children["CCCCCC"].entry().Trashed = true

		var ids []ID
		for id := range tree.Trashed() {
			ids = append(ids, id)
		}
		assert.Equal(t, []ID{"BBBBBB", "CCCCCC"}, ids)
	})

	t.Run("Restartable", func(t *testing.T) {
		tree := buildTree(t)
		tree.root.Children["CCCCCC"].entry().Trashed = true
		seq := tree.Trashed()

		for range 2 {
			var ids []ID
			for id := range seq {
				ids = append(ids, id)
			}
			assert.Equal(t, []ID{"CCCCCC"}, ids)
		}
	})

	t.Run("EarlyBreak", func(t *testing.T) {
		tree := buildTree(t)
		tree.root.Children["AAAAAA"].entry().Trashed = true
		tree.root.Children["CCCCCC"].entry().Trashed = true

		count := 0
		for range tree.Trashed() {
			count++
			break
		}
		assert.Equal(t, 1, count)
	})
}
