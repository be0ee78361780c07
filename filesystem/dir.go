package filesystem

import (
	"sort"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/brettbedarf/resultfs"
)

// RowRef ties a directory to the result row it was projected from
type RowRef struct {
	Result *resultfs.Result
	Index  int
	// PrimaryKey is the snapshot of the primary key columns taken when the
	// directory was created
	PrimaryKey map[string]*string
}

type Directory struct {
	nodeBase
	// childMu serializes structural changes and listings of this directory.
	// Lookups go straight to the map and do not take it.
	childMu  sync.RWMutex
	children *xsync.Map[string, Node] // Includes tombstoned files
	row      *RowRef                  // Immutable; nil for root and user made dirs
}

func newDirectory(ino uint64, name string, row *RowRef) *Directory {
	return &Directory{
		nodeBase: newNodeBase(ino, name),
		children: xsync.NewMap[string, Node](),
		row:      row,
	}
}

// Row returns the row association or nil
func (d *Directory) Row() *RowRef {
	return d.row
}

// Child returns the live child of the given name. Tombstones are not found.
func (d *Directory) Child(name string) (Node, bool) {
	child, ok := d.children.Load(name)
	if !ok {
		return nil, false
	}
	if f, isFile := child.(*File); isFile && f.Deleted() {
		return nil, false
	}
	return child, true
}

// Children returns the live children sorted by name
func (d *Directory) Children() []Node {
	d.childMu.RLock()
	defer d.childMu.RUnlock()
	return d.childrenLocked(false)
}

// hasLiveChildren reports whether any non-tombstoned child exists. It
// reads the map without childMu.
func (d *Directory) hasLiveChildren() bool {
	found := false
	d.children.Range(func(_ string, child Node) bool {
		if f, isFile := child.(*File); isFile && f.Deleted() {
			return true
		}
		found = true
		return false
	})
	return found
}

// caller must hold childMu
func (d *Directory) childrenLocked(withTombstones bool) []Node {
	out := make([]Node, 0, d.children.Size())
	d.children.Range(func(_ string, child Node) bool {
		if f, isFile := child.(*File); isFile && !withTombstones && f.Deleted() {
			return true
		}
		out = append(out, child)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Resolve walks path below d. Leading separators are ignored and an empty
// remainder resolves to d itself.
func (d *Directory) Resolve(path string) (Node, error) {
	rest := strings.TrimLeft(path, "/")
	if rest == "" {
		return d, nil
	}
	head, tail, _ := strings.Cut(rest, "/")
	child, ok := d.Child(head)
	if !ok {
		return nil, resultfs.ErrNotFound
	}
	switch c := child.(type) {
	case *Directory:
		return c.Resolve(tail)
	case *File:
		if strings.TrimLeft(tail, "/") != "" {
			return nil, resultfs.ErrNotADirectory
		}
		return c, nil
	}
	return nil, resultfs.ErrNotFound
}

// caller must hold childMu
func (d *Directory) attachLocked(node Node) {
	b := node.base()
	b.mu.Lock()
	b.parent = d
	name := b.name
	b.mu.Unlock()

	if prev, ok := d.children.Load(name); ok && prev != node {
		prev.base().setParent(nil)
	}
	d.children.Store(name, node)
}

// caller must hold childMu
func (d *Directory) detachLocked(node Node) bool {
	name := node.Name()
	cur, ok := d.children.Load(name)
	if !ok || cur != node {
		return false
	}
	d.children.Delete(name)
	node.base().setParent(nil)
	return true
}

// clearLocked detaches every child. Caller must hold childMu.
func (d *Directory) clearLocked() {
	d.children.Range(func(_ string, child Node) bool {
		child.base().setParent(nil)
		return true
	})
	d.children.Clear()
}
