package drive

import (
	"iter"
	"slices"
	"strconv"
	"strings"
)

// Tree is the folder hierarchy under the root folder.
//
// Children are owned exclusively by their parent folder, so there is exactly
// one id-path from the root to any node and cycles cannot form.
//
// Tree does no locking; Store serializes access.
type Tree struct {
	root *Folder
}

// NewTree returns a tree holding only an empty root folder.
func NewTree() *Tree {
	return &Tree{root: newRootFolder()}
}

// SplitPath splits an id-path into its identifier segments.
//
// Leading and trailing separators are stripped; "/" yields no segments (the
// root). The empty string, empty inner segments ("A//B") and segments outside
// the identifier alphabet are rejected with ErrMalformedPath.
func SplitPath(idPath string) ([]ID, error) {
	if idPath == "" {
		return nil, newError(CodeMalformedPath, "empty path", idPath)
	}

	trimmed := strings.Trim(idPath, Separator)
	if trimmed == "" {
		return nil, nil
	}

	parts := strings.Split(trimmed, Separator)
	segments := make([]ID, len(parts))
	for i, p := range parts {
		id := ID(p)
		if !ValidID(id) {
			return nil, newError(CodeMalformedPath, "invalid path segment "+strconv.Quote(p), idPath)
		}
		segments[i] = id
	}
	return segments, nil
}

// JoinPath builds an id-path from identifier segments. No segments yields "/".
func JoinPath(ids ...ID) string {
	p := RootPath
	for _, id := range ids {
		p = childPath(p, id)
	}
	return p
}

// childPath appends id to the id-path of its parent folder.
func childPath(parentPath string, id ID) string {
	if parentPath == RootPath {
		return Separator + string(id)
	}
	return parentPath + Separator + string(id)
}

// Resolve walks idPath from the root and returns the node it names.
//
// It fails with ErrNotFound when a segment is absent from its folder or when
// a file is reached before the path is exhausted.
func (t *Tree) Resolve(idPath string) (Node, error) {
	segments, err := SplitPath(idPath)
	if err != nil {
		return nil, err
	}
	return t.walk(idPath, segments)
}

// ResolveParentAndKey resolves the folder containing the target of idPath and
// returns it with the target's identifier. The target itself need not exist.
// The root has no parent: "/" fails with ErrMalformedPath.
func (t *Tree) ResolveParentAndKey(idPath string) (*Folder, ID, error) {
	segments, err := SplitPath(idPath)
	if err != nil {
		return nil, "", err
	}
	if len(segments) == 0 {
		return nil, "", newError(CodeMalformedPath, "root has no parent", idPath)
	}

	parent, err := t.walk(idPath, segments[:len(segments)-1])
	if err != nil {
		return nil, "", err
	}
	folder, ok := parent.(*Folder)
	if !ok {
		return nil, "", newError(CodeNotFound, "parent is not a folder", idPath)
	}
	return folder, segments[len(segments)-1], nil
}

// ResolveFolder resolves idPath and requires the result to be a folder.
func (t *Tree) ResolveFolder(idPath string) (*Folder, error) {
	n, err := t.Resolve(idPath)
	if err != nil {
		return nil, err
	}
	folder, ok := n.(*Folder)
	if !ok {
		return nil, newError(CodeTypeMismatch, "expected folder, got file", idPath)
	}
	return folder, nil
}

func (t *Tree) walk(idPath string, segments []ID) (Node, error) {
	var current Node = t.root
	for _, seg := range segments {
		folder, ok := current.(*Folder)
		if !ok {
			return nil, newError(CodeNotFound, "cannot descend into file "+strconv.Quote(string(current.NodeID())), idPath)
		}
		child, ok := folder.Children[seg]
		if !ok {
			return nil, newError(CodeNotFound, "no entry "+strconv.Quote(string(seg)), idPath)
		}
		current = child
	}
	return current, nil
}

// Visit is called by Walk for every node below the root. Returning false for a
// folder skips its subtree.
type Visit func(n Node) (descend bool)

// Walk performs a depth-first pre-order traversal below the root with an
// explicit stack, so tree depth does not grow the goroutine stack. Siblings
// are visited in identifier order.
func (t *Tree) Walk(visit Visit) {
	t.traverse(func(n Node) (bool, bool) {
		return visit(n), true
	})
}

// traverse is Walk with early exit: fn returns whether to descend into a
// folder and whether to continue at all.
func (t *Tree) traverse(fn func(n Node) (descend, more bool)) {
	stack := sortedChildren(t.root)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		descend, more := fn(n)
		if !more {
			return
		}
		if folder, ok := n.(*Folder); ok && descend {
			stack = append(stack, sortedChildren(folder)...)
		}
	}
}

// Trashed yields the top-level trashed entries of the tree: a trashed folder
// is yielded and its subtree skipped. The sequence is lazy and restartable;
// each iteration walks the current tree. It does no locking.
func (t *Tree) Trashed() iter.Seq2[ID, Node] {
	return func(yield func(ID, Node) bool) {
		t.traverse(func(n Node) (descend, more bool) {
			if n.IsTrashed() {
				return false, yield(n.NodeID(), n)
			}
			return true, true
		})
	}
}

// sortedChildren returns the children of f in descending identifier order,
// so popping from the end of a stack visits them ascending.
func sortedChildren(f *Folder) []Node {
	out := make([]Node, 0, len(f.Children))
	for _, c := range f.Children {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Node) int {
		return strings.Compare(string(b.NodeID()), string(a.NodeID()))
	})
	return out
}

