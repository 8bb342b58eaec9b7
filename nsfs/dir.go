package nsfs

import (
	"sort"
	"sync"

	"github.com/ninelib/ninep/wire"
)

// A Dir is a directory node: a named collection of child nodes. By
// convention a directory has no content of its own other than the
// encoded Stat of each child, produced on demand by Read.
type Dir struct {
	mu       sync.RWMutex
	children map[string]Node
	names    []string // kept sorted, for a stable Read ordering
	qid      wire.Qid
	version  uint32
}

// NewDir returns an empty, freshly allocated Dir.
func NewDir() *Dir {
	return &Dir{
		children: make(map[string]Node),
		qid:      wire.Qid{Type: wire.QTDIR, Path: allocPath()},
	}
}

// Mount adds child under name. It returns ErrExists if name is already
// bound.
func (d *Dir) Mount(name string, child Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.children[name]; ok {
		return ErrExists
	}
	d.children[name] = child
	d.names = append(d.names, name)
	sort.Strings(d.names)
	d.version++
	return nil
}

// Unmount removes the child bound to name, if any.
func (d *Dir) Unmount(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.children[name]; !ok {
		return
	}
	delete(d.children, name)
	for i, n := range d.names {
		if n == name {
			d.names = append(d.names[:i], d.names[i+1:]...)
			break
		}
	}
	d.version++
}

func (d *Dir) IsWalkable() bool { return true }

func (d *Dir) Walk(name string) (Node, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	child, ok := d.children[name]
	if !ok {
		return nil, ErrNotFound
	}
	return child, nil
}

func (d *Dir) Qid() wire.Qid {
	d.mu.RLock()
	q := d.qid
	q.Version = d.version
	d.mu.RUnlock()
	return q
}

func (d *Dir) Mode() uint32 { return wire.DMDIR | 0555 }

func (d *Dir) Length() int64 { return 0 }

func (d *Dir) Open(uname string, mode uint8) error { return nil }

func (d *Dir) Close(uname string) error { return nil }

// Read encodes as many child Stat records as fit in len(p), starting
// with the first record whose encoded position is past offset.
//
// The encoding loop tracks two running totals: bytesTraversed, the
// cumulative encoded size of every child seen so far (used to find
// where offset falls), and bytesEncoded, the cumulative size of
// records actually written to p (used to respect its length). A record
// is appended to p only if doing so would not exceed len(p); the loop
// stops at the first record that would overflow rather than writing a
// partial record, so a caller that reads with a count smaller than a
// single Stat record makes no progress rather than receiving a
// truncated one.
func (d *Dir) Read(p []byte, offset int64) (int, error) {
	d.mu.RLock()
	names := append([]string(nil), d.names...)
	children := make(map[string]Node, len(d.children))
	for k, v := range d.children {
		children[k] = v
	}
	d.mu.RUnlock()

	var bytesTraversed int64
	var bytesEncoded int
	buf := p[:0]

	for _, name := range names {
		child := children[name]
		stat := StatOf(name, child)
		size := stat.EncodedLen()

		bytesTraversed += int64(size)
		if bytesTraversed <= offset {
			continue
		}
		if bytesEncoded+size > len(p) {
			break
		}

		var err error
		buf, err = stat.Marshal(buf)
		if err != nil {
			return bytesEncoded, err
		}
		bytesEncoded += size
	}
	return bytesEncoded, nil
}

func (d *Dir) Write(data []byte, offset int64) (int, error) {
	return 0, ErrReadOnly
}
