package drive

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// Snapshot encoding
// =================
//
// A snapshot is the full Store state (registry + tree) as XDR:
//
//	header   { magic uint32 = "DRIV", version uint32 }
//	body     { registry string<>, records record<> }
//	record   { kind uint32, id, parent, name, path string,
//	           trashed bool, content_ref string, size uint64 }
//
// Records are emitted in pre-order, root first, siblings in identifier order,
// so every parent precedes its children and equal states encode to equal
// bytes. Folder-only and file-only fields are zero for the other kind.

const (
	snapshotMagic   uint32 = 0x44524956 // "DRIV"
	snapshotVersion uint32 = 1
)

type snapshotHeader struct {
	Magic   uint32
	Version uint32
}

type snapshotRecord struct {
	Kind       uint32
	ID         string
	Parent     string
	Name       string
	Path       string
	Trashed    bool
	ContentRef string
	Size       uint64
}

type snapshotBody struct {
	Registry []string
	Records  []snapshotRecord
}

// Encode serializes a tree and its registry.
func Encode(tree *Tree, registry *Registry) ([]byte, error) {
	body := snapshotBody{
		Registry: make([]string, 0, registry.Len()),
		Records:  []snapshotRecord{recordOf(tree.root, "")},
	}
	for _, id := range registry.order {
		body.Registry = append(body.Registry, string(id))
	}

	type frame struct {
		node   Node
		parent ID
	}
	stack := make([]frame, 0, len(tree.root.Children))
	for _, c := range sortedChildren(tree.root) {
		stack = append(stack, frame{c, RootID})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		body.Records = append(body.Records, recordOf(f.node, f.parent))
		if folder, ok := f.node.(*Folder); ok {
			for _, c := range sortedChildren(folder) {
				stack = append(stack, frame{c, folder.ID})
			}
		}
	}

	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &snapshotHeader{Magic: snapshotMagic, Version: snapshotVersion}); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot header: %w", err)
	}
	if _, err := xdr.Marshal(&buf, &body); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot body: %w", err)
	}
	return buf.Bytes(), nil
}

func recordOf(n Node, parent ID) snapshotRecord {
	rec := snapshotRecord{
		Kind:    uint32(n.Kind()),
		ID:      string(n.NodeID()),
		Parent:  string(parent),
		Name:    n.DisplayName(),
		Path:    n.ParentPath(),
		Trashed: n.IsTrashed(),
	}
	if f, ok := n.(*File); ok {
		rec.ContentRef = string(f.ContentRef)
		rec.Size = f.Size
	}
	return rec
}

// Decode parses a snapshot produced by Encode and checks it against the
// schema: header, root record first, unique registered identifiers, parents
// that exist and are folders, and paths consistent with the hierarchy. Any
// violation is reported as ErrCorruptSnapshot.
func Decode(data []byte) (*Tree, *Registry, error) {
	r := bytes.NewReader(data)

	// No length prefix can exceed the blob itself.
	limit := uint(len(data))

	var hdr snapshotHeader
	if _, err := xdr.UnmarshalLimited(r, &hdr, limit); err != nil {
		return nil, nil, corrupt("unreadable header", err)
	}
	if hdr.Magic != snapshotMagic {
		return nil, nil, corrupt(fmt.Sprintf("bad magic %#08x", hdr.Magic), nil)
	}
	if hdr.Version != snapshotVersion {
		return nil, nil, corrupt(fmt.Sprintf("unsupported version %d", hdr.Version), nil)
	}

	var body snapshotBody
	if _, err := xdr.UnmarshalLimited(r, &body, limit); err != nil {
		return nil, nil, corrupt("unreadable body", err)
	}
	if r.Len() != 0 {
		return nil, nil, corrupt(fmt.Sprintf("%d trailing bytes", r.Len()), nil)
	}

	registry := NewRegistry()
	for _, raw := range body.Registry {
		id := ID(raw)
		if id == RootID || !ValidID(id) {
			return nil, nil, corrupt(fmt.Sprintf("invalid registry entry %q", raw), nil)
		}
		if !registry.add(id) {
			return nil, nil, corrupt(fmt.Sprintf("duplicate registry entry %q", raw), nil)
		}
	}

	if len(body.Records) == 0 {
		return nil, nil, corrupt("missing root record", nil)
	}
	rootRec := body.Records[0]
	if Kind(rootRec.Kind) != KindFolder || ID(rootRec.ID) != RootID || rootRec.Parent != "" || rootRec.Path != RootPath {
		return nil, nil, corrupt("first record is not the root folder", nil)
	}

	tree := NewTree()
	tree.root.Name = rootRec.Name
	tree.root.Trashed = rootRec.Trashed

	folders := map[ID]*Folder{RootID: tree.root}
	seen := map[ID]struct{}{RootID: {}}

	for i, rec := range body.Records[1:] {
		id := ID(rec.ID)
		if _, dup := seen[id]; dup {
			return nil, nil, corrupt(fmt.Sprintf("record %d: duplicate id %q", i+1, rec.ID), nil)
		}
		if !registry.Contains(id) {
			return nil, nil, corrupt(fmt.Sprintf("record %d: id %q not registered", i+1, rec.ID), nil)
		}
		parent, ok := folders[ID(rec.Parent)]
		if !ok {
			return nil, nil, corrupt(fmt.Sprintf("record %d: parent %q missing or not a folder", i+1, rec.Parent), nil)
		}
		if want := idPathOf(parent); rec.Path != want {
			return nil, nil, corrupt(fmt.Sprintf("record %d: path %q, want %q", i+1, rec.Path, want), nil)
		}

		var n Node
		switch Kind(rec.Kind) {
		case KindFolder:
			f := newFolder(id, rec.Name, rec.Path)
			folders[id] = f
			n = f
		case KindFile:
			n = newFile(id, rec.Name, rec.Path, ContentRef(rec.ContentRef), rec.Size)
		default:
			return nil, nil, corrupt(fmt.Sprintf("record %d: unknown kind %d", i+1, rec.Kind), nil)
		}
		n.entry().Trashed = rec.Trashed

		seen[id] = struct{}{}
		parent.Children[id] = n
	}

	return tree, registry, nil
}

// idPathOf returns the id-path addressing n itself.
func idPathOf(n Node) string {
	if n.NodeID() == RootID {
		return RootPath
	}
	return childPath(n.ParentPath(), n.NodeID())
}

func corrupt(msg string, err error) error {
	return &Error{Code: CodeCorruptSnapshot, Message: "corrupt snapshot: " + msg, Err: err}
}
