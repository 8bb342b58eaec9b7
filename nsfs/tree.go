package nsfs

import (
	"sync"

	"github.com/ninelib/ninep/wire"
)

// A Handle is a small integer naming a Node within a Tree. Handles take
// the place of the reference implementation's shared_ptr<Node>
// everywhere a namespace node is referenced: a directory's children map
// stores handleRef values that carry a Handle rather than the Node
// itself, so resolving a path is an O(1) arena
// index per segment rather than a reference-counted pointer chase, and
// a Tree has a single place — its nodes slice — that owns every Node it
// ever allocates. The namespace is mount-only (nodes are added, never
// rebound to a different parent), so no handle ever needs to be freed:
// no cycle can form and no handle outlives the Tree that issued it.
type Handle uint32

// A Tree is the arena backing a server's namespace: every Node reachable
// from its Root was allocated through one of the Tree's constructors and
// is addressed, from then on, by its Handle.
type Tree struct {
	mu    sync.RWMutex
	nodes []Node
	root  Handle
}

// NewTree returns a Tree with a single empty root directory.
func NewTree() *Tree {
	t := &Tree{}
	root := &handleDir{Dir: *NewDir(), tree: t}
	t.nodes = append(t.nodes, root)
	t.root = Handle(len(t.nodes) - 1)
	return t
}

// Root returns the handle of the tree's root directory.
func (t *Tree) Root() Handle { return t.root }

// Node returns the Node a Handle names. Callers that received the
// Handle from this Tree (via Root, Mount, or Resolve) never pass a value
// Node will reject.
func (t *Tree) Node(h Handle) Node {
	t.mu.RLock()
	n := t.nodes[h]
	t.mu.RUnlock()
	return n
}

func (t *Tree) alloc(n Node) Handle {
	t.mu.Lock()
	t.nodes = append(t.nodes, n)
	h := Handle(len(t.nodes) - 1)
	t.mu.Unlock()
	return h
}

// MountDir creates a fresh directory, mounts it under name in the
// directory named by parent, and returns its handle.
func (t *Tree) MountDir(parent Handle, name string) (Handle, error) {
	dir, ok := t.Node(parent).(*handleDir)
	if !ok {
		return 0, ErrNotDirectory
	}
	child := &handleDir{Dir: *NewDir(), tree: t}
	h := t.alloc(child)
	if err := dir.Dir.Mount(name, handleRef{tree: t, h: h}); err != nil {
		return 0, err
	}
	return h, nil
}

// MountData creates a data node with the given content and permission
// bits, mounts it under name in the directory named by parent, and
// returns its handle.
func (t *Tree) MountData(parent Handle, name string, content []byte, perm uint32) (Handle, error) {
	dir, ok := t.Node(parent).(*handleDir)
	if !ok {
		return 0, ErrNotDirectory
	}
	child := NewData(content, perm)
	h := t.alloc(child)
	if err := dir.Dir.Mount(name, handleRef{tree: t, h: h}); err != nil {
		return 0, err
	}
	return h, nil
}

// Resolve walks each element of path in turn, starting from start,
// returning the handle of the final element.
func (t *Tree) Resolve(start Handle, path []string) (Handle, error) {
	h := start
	for _, elem := range path {
		n := t.Node(h)
		next, err := n.Walk(elem)
		if err != nil {
			return 0, err
		}
		ref, ok := next.(handleRef)
		if !ok {
			return 0, ErrNotFound
		}
		h = ref.h
	}
	return h, nil
}

// handleRef is the Node a directory's child map actually stores: a
// lightweight pointer-by-integer back into the owning Tree. Every
// capability method delegates to the real node the handle names, so
// handleRef is indistinguishable from the node it refers to except in
// identity (two handleRefs to the same handle are interchangeable; a
// handleRef and a bare *Data or *handleDir are not, which is why
// Tree.Resolve type-asserts on handleRef rather than comparing values).
type handleRef struct {
	tree *Tree
	h    Handle
}

func (r handleRef) target() Node { return r.tree.Node(r.h) }

func (r handleRef) IsWalkable() bool               { return r.target().IsWalkable() }
func (r handleRef) Walk(name string) (Node, error) { return r.target().Walk(name) }
func (r handleRef) Qid() wire.Qid                  { return r.target().Qid() }
func (r handleRef) Mode() uint32                   { return r.target().Mode() }
func (r handleRef) Length() int64                  { return r.target().Length() }
func (r handleRef) Open(uname string, mode uint8) error        { return r.target().Open(uname, mode) }
func (r handleRef) Close(uname string) error                   { return r.target().Close(uname) }
func (r handleRef) Read(p []byte, offset int64) (int, error)   { return r.target().Read(p, offset) }
func (r handleRef) Write(d []byte, offset int64) (int, error)  { return r.target().Write(d, offset) }

// handleDir adapts a Dir to also be addressable by Handle within a Tree;
// its Mount/Unmount operate in terms of handles via the Tree's MountDir
// and MountData constructors rather than being called directly.
type handleDir struct {
	Dir
	tree *Tree
}
