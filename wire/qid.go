package wire

import (
	"encoding/binary"
	"fmt"
)

// QidType is the type of a resource, stored as the high byte of a Qid
// and mirrored in the high byte of a Stat's mode word.
type QidType uint8

// Qid type bits, lifted from the go9p constant set (as droyo-styx's
// proto/types.go does) for forward compatibility with 9P2000.u-flavored
// extensions; nsfs only ever produces the subset spec.md enumerates
// (DIR, APPEND, EXCL, MOUNT, AUTH, TMP, FILE).
const (
	QTDIR     QidType = 0x80
	QTAPPEND  QidType = 0x40
	QTEXCL    QidType = 0x20
	QTMOUNT   QidType = 0x10
	QTAUTH    QidType = 0x08
	QTTMP     QidType = 0x04
	QTSYMLINK QidType = 0x02
	QTLINK    QidType = 0x01
	QTFILE    QidType = 0x00
)

// A Qid is the server's unique identity for a resource. Two Qids name
// the same resource iff Type, Version and Path are all equal.
type Qid struct {
	Type    QidType
	Version uint32
	Path    uint64
}

func (q Qid) String() string {
	return fmt.Sprintf("(%02x %d %x)", uint8(q.Type), q.Version, q.Path)
}

// Equal reports whether q and o name the same resource.
func (q Qid) Equal(o Qid) bool {
	return q.Type == o.Type && q.Version == o.Version && q.Path == o.Path
}

// encode appends the wire form of q to buf, returning the extended slice.
func (q Qid) encode(buf []byte) []byte {
	var b [QidLen]byte
	b[0] = uint8(q.Type)
	binary.LittleEndian.PutUint32(b[1:5], q.Version)
	binary.LittleEndian.PutUint64(b[5:13], q.Path)
	return append(buf, b[:]...)
}

// decodeQid reads a Qid from the front of buf, returning the Qid and the
// remaining bytes. buf must have at least QidLen bytes.
func decodeQid(buf []byte) (Qid, []byte) {
	q := Qid{
		Type:    QidType(buf[0]),
		Version: binary.LittleEndian.Uint32(buf[1:5]),
		Path:    binary.LittleEndian.Uint64(buf[5:13]),
	}
	return q, buf[QidLen:]
}
