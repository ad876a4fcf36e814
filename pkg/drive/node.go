package drive

// ID is a node identifier. Generated identifiers are six characters from
// [A-Z0-9]; the root folder always has RootID.
type ID string

// ContentRef is an opaque handle to file bytes held by an external store.
type ContentRef string

const (
	// RootID is the reserved identifier of the root folder.
	RootID ID = "root"

	// RootPath is the id-path of the root folder.
	RootPath = "/"

	// Separator joins identifiers in an id-path.
	Separator = "/"
)

// Kind discriminates the two node variants.
type Kind uint32

const (
	KindFolder Kind = 1
	KindFile   Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Node is an entry of the tree: a *Folder or a *File.
type Node interface {
	Kind() Kind
	NodeID() ID
	DisplayName() string
	ParentPath() string
	IsTrashed() bool

	entry() *Entry
}

// Entry holds the fields shared by both node variants.
type Entry struct {
	// Name is the display name. It is never used for lookups.
	Name string

	// ID is assigned at creation and never changes.
	ID ID

	// Path is the canonical id-path of the containing folder ("/" for
	// children of the root, "/AB12CD" below it). The root folder's own Path
	// is "/".
	Path string

	// Trashed marks a soft-deleted entry. Descendants of a trashed folder
	// keep their own flag.
	Trashed bool
}

func (e *Entry) NodeID() ID          { return e.ID }
func (e *Entry) DisplayName() string { return e.Name }
func (e *Entry) ParentPath() string  { return e.Path }
func (e *Entry) IsTrashed() bool     { return e.Trashed }
func (e *Entry) entry() *Entry       { return e }

// Folder is a directory node. Children is keyed by child ID.
type Folder struct {
	Entry
	Children map[ID]Node
}

func (*Folder) Kind() Kind { return KindFolder }

// File is a leaf node pointing at externally stored bytes.
type File struct {
	Entry
	ContentRef ContentRef
	Size       uint64
}

func (*File) Kind() Kind { return KindFile }

// newRootFolder returns an empty root folder.
func newRootFolder() *Folder {
	return &Folder{
		Entry:    Entry{Name: RootPath, ID: RootID, Path: RootPath},
		Children: make(map[ID]Node),
	}
}

func newFolder(id ID, name, parentPath string) *Folder {
	return &Folder{
		Entry:    Entry{Name: name, ID: id, Path: parentPath},
		Children: make(map[ID]Node),
	}
}

func newFile(id ID, name, parentPath string, ref ContentRef, size uint64) *File {
	return &File{
		Entry:      Entry{Name: name, ID: id, Path: parentPath},
		ContentRef: ref,
		Size:       size,
	}
}

// clone returns a deep copy of n. Folder children are copied recursively so
// the result shares no mutable state with the tree.
func clone(n Node) Node {
	switch v := n.(type) {
	case *File:
		c := *v
		return &c
	case *Folder:
		c := &Folder{Entry: v.Entry, Children: make(map[ID]Node, len(v.Children))}
		for id, child := range v.Children {
			c.Children[id] = clone(child)
		}
		return c
	default:
		return nil
	}
}
