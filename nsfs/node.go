// Package nsfs implements the in-memory resource hierarchy a Server
// exposes to clients: directories that mount child nodes by name, and
// data nodes backed by an in-memory byte buffer.
//
// The Node capability set, and the DirectoryNode/DataNode split that
// implements it, are carried over from the reference server's
// serviceNodes.hpp/serverNodes.cpp almost unchanged in shape; what
// changes is the representation (a Tree arena whose nodes are addressed
// by integer Handle, instead of a map of shared_ptr<Node> per directory)
// and the addition of per-node Qid/version bookkeeping the reference
// implementation left to a free nodeStats helper.
package nsfs

import (
	"sync"

	"github.com/ninelib/ninep/wire"
)

// A Node is a single resource in a server's namespace: a directory or a
// file-like leaf. Every Node must be safe for concurrent use, since
// multiple sessions may walk to and operate on the same Node at once.
type Node interface {
	// IsWalkable reports whether the node can have children, i.e.
	// whether Walk is meaningful to call on it.
	IsWalkable() bool

	// Walk resolves a single path element under this node. It returns
	// ErrNotFound if no child has that name, and ErrNotDirectory if the
	// node is not walkable.
	Walk(name string) (Node, error)

	// Qid returns the node's current identity. Version must change
	// whenever the node's content changes.
	Qid() wire.Qid

	// Mode returns the permission and type bits appropriate for a Stat
	// record describing this node (DM* bits from wire, ORed with
	// permission bits).
	Mode() uint32

	// Length returns the node's content length, or 0 for a directory.
	Length() int64

	// Open prepares the node for I/O in the given mode. uname identifies
	// the requesting principal.
	Open(uname string, mode uint8) error

	// Close releases any per-open state. uname identifies the requesting
	// principal.
	Close(uname string) error

	// Read reads up to len(p) bytes starting at offset. Reading past the
	// end of the node's content returns 0, nil, matching the reference
	// implementation's "reading past EOF is not an error" rule.
	Read(p []byte, offset int64) (int, error)

	// Write writes data at offset, returning the number of bytes
	// accepted.
	Write(data []byte, offset int64) (int, error)
}

// ErrNotFound is returned by Walk when no child matches the requested
// name.
var ErrNotFound = nodeError("not found")

// ErrNotDirectory is returned by Mount and Walk when called on a node
// that is not walkable.
var ErrNotDirectory = nodeError("not a directory")

// ErrReadOnly is returned by Write on nodes that do not accept writes
// (directories).
var ErrReadOnly = nodeError("write not allowed")

// ErrExists is returned by Mount when a child already exists under the
// requested name.
var ErrExists = nodeError("path already exists")

type nodeError string

func (e nodeError) Error() string { return string(e) }

// nextPath hands out the monotonically increasing path component of a
// Qid across every node created in the process, mirroring the reference
// qidpool's single atomic counter.
var nextPath struct {
	mu sync.Mutex
	n  uint64
}

func allocPath() uint64 {
	nextPath.mu.Lock()
	nextPath.n++
	p := nextPath.n
	nextPath.mu.Unlock()
	return p
}
