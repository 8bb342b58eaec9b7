package nsfs

import (
	"sync"

	"github.com/ninelib/ninep/wire"
)

// A Data node is a simple chunk of bytes, grown as needed by Write. It
// is the nsfs equivalent of the reference implementation's DataNode.
type Data struct {
	mu      sync.RWMutex
	buf     []byte
	qid     wire.Qid
	version uint32
	perm    uint32
}

// NewData returns a Data node initialized with the given content and
// permission bits (ORed with wire.DMREAD/DMWRITE/DMEXEC as appropriate;
// the DMDIR bit is always cleared).
func NewData(content []byte, perm uint32) *Data {
	d := &Data{perm: perm &^ wire.DMDIR}
	if len(content) > 0 {
		d.buf = append([]byte(nil), content...)
	}
	d.qid = wire.Qid{Type: wire.QTFILE, Path: allocPath()}
	return d
}

func (d *Data) IsWalkable() bool { return false }

func (d *Data) Walk(name string) (Node, error) { return nil, ErrNotDirectory }

func (d *Data) Qid() wire.Qid {
	d.mu.RLock()
	q := d.qid
	q.Version = d.version
	d.mu.RUnlock()
	return q
}

func (d *Data) Mode() uint32 { return d.perm }

func (d *Data) Length() int64 {
	d.mu.RLock()
	n := int64(len(d.buf))
	d.mu.RUnlock()
	return n
}

func (d *Data) Open(uname string, mode uint8) error { return nil }

func (d *Data) Close(uname string) error { return nil }

// Read reads up to len(p) bytes starting at offset. Reading at or past
// the current end of content returns (0, nil): 9P treats this as EOF,
// not an error.
func (d *Data) Read(p []byte, offset int64) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if offset < 0 || offset >= int64(len(d.buf)) {
		return 0, nil
	}
	n := copy(p, d.buf[offset:])
	return n, nil
}

// Write writes data at offset, growing the backing buffer if necessary,
// and bumps the node's version.
func (d *Data) Write(data []byte, offset int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	end := offset + int64(len(data))
	if end > int64(len(d.buf)) {
		grown := make([]byte, end)
		copy(grown, d.buf)
		d.buf = grown
	}
	copy(d.buf[offset:end], data)
	d.version++
	return len(data), nil
}
