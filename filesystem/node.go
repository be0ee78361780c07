package filesystem

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Node is either a *Directory or a *File.
// Ownership flows from a directory to its children; the parent link is
// only used for path computation and detachment.
type Node interface {
	Name() string
	Parent() *Directory
	Ino() uint64
	Path() string

	base() *nodeBase
}

type nodeBase struct {
	mu     sync.RWMutex // Protects name and parent
	name   string
	parent *Directory
	ino    uint64    // Immutable
	ctime  time.Time // Immutable
}

func newNodeBase(ino uint64, name string) nodeBase {
	return nodeBase{ino: ino, name: name, ctime: time.Now()}
}

func (n *nodeBase) base() *nodeBase { return n }

// Name returns the current local name
func (n *nodeBase) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.name
}

// Parent returns the owning directory or nil for the root and detached nodes
func (n *nodeBase) Parent() *Directory {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

func (n *nodeBase) Ino() uint64 {
	return n.ino
}

// Path returns the absolute path of the node. The root is "/".
// A detached node reports the path up to where it was cut off.
func (n *nodeBase) Path() string {
	var parts []string
	cur := n
	for {
		cur.mu.RLock()
		name, parent := cur.name, cur.parent
		cur.mu.RUnlock()
		if parent == nil {
			break
		}
		parts = append(parts, name)
		cur = &parent.nodeBase
	}
	slices.Reverse(parts)
	return "/" + strings.Join(parts, "/")
}

func (n *nodeBase) setParent(p *Directory) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.parent = p
}

func (n *nodeBase) setName(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.name = name
}

// Attach links node under parent, replacing any entry of the same name
func Attach(parent *Directory, node Node) {
	parent.childMu.Lock()
	defer parent.childMu.Unlock()
	parent.attachLocked(node)
}

// Detach unlinks node from its parent. Returns false if it was not attached.
func Detach(node Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	parent.childMu.Lock()
	defer parent.childMu.Unlock()
	return parent.detachLocked(node)
}

// Rename changes the local name of a node. A renamed file is Modified
// unless it is still Created.
//
// NOTE: the node must be detached, or its parent's childMu held, since
// the children map is keyed by name.
func Rename(node Node, newName string) {
	node.base().setName(newName)
	switch n := node.(type) {
	case *File:
		n.dataMu.Lock()
		n.markModifiedLocked()
		n.dataMu.Unlock()
	case *Directory:
		// directories carry no operation state
	}
}

// isAncestor reports whether dir is node or lies below it
func isAncestor(node Node, dir *Directory) bool {
	for cur := dir; cur != nil; cur = cur.Parent() {
		if Node(cur) == node {
			return true
		}
	}
	return false
}
