package wire

import (
	"encoding/binary"
	"fmt"
)

// A Stat is the metadata record describing a single resource: its Qid,
// mode bits, timestamps, length, and four short strings (name, owner,
// group, last-modifier). Tread on a directory fid returns a
// concatenation of Stat records, one per child; Rstat and Twstat carry
// exactly one.
type Stat struct {
	Type   uint16 // implementation-specific, opaque to 9P itself
	Dev    uint32 // implementation-specific, opaque to 9P itself
	Qid    Qid
	Mode   uint32 // permission bits plus DM* type bits
	Atime  uint32 // last access time, unix seconds
	Mtime  uint32 // last modification time, unix seconds
	Length int64  // byte length; zero for directories
	Name   string
	Uid    string
	Gid    string
	Muid   string
}

// File mode bits, mirroring the Qid type bits in the top byte of Mode.
const (
	DMDIR    = 0x80000000
	DMAPPEND = 0x40000000
	DMEXCL   = 0x20000000
	DMMOUNT  = 0x10000000
	DMAUTH   = 0x08000000
	DMTMP    = 0x04000000
	DMREAD   = 0x4
	DMWRITE  = 0x2
	DMEXEC   = 0x1
)

// EncodedLen returns the number of bytes s occupies on the wire,
// including its own 2-byte size prefix.
func (s Stat) EncodedLen() int {
	return minStatLen + len(s.Name) + len(s.Uid) + len(s.Gid) + len(s.Muid)
}

// Marshal appends the wire encoding of s to buf. It returns an error if
// any string field exceeds its maximum length or the whole record would
// exceed MaxStatLen.
func (s Stat) Marshal(buf []byte) ([]byte, error) {
	if len(s.Name) > MaxFilenameLen {
		return buf, ErrLongFilename
	}
	if len(s.Uid) > MaxUidLen || len(s.Gid) > MaxUidLen || len(s.Muid) > MaxUidLen {
		return buf, ErrLongUsername
	}
	n := s.EncodedLen()
	if n > MaxStatLen {
		return buf, ErrLongStat
	}

	var head [2]byte
	binary.LittleEndian.PutUint16(head[:], uint16(n-2))
	buf = append(buf, head[:]...)

	var fixed [2 + 4 + QidLen + 4 + 4 + 4 + 8]byte
	binary.LittleEndian.PutUint16(fixed[0:2], s.Type)
	binary.LittleEndian.PutUint32(fixed[2:6], s.Dev)
	qidBuf := s.Qid.encode(nil)
	copy(fixed[6:6+QidLen], qidBuf)
	off := 6 + QidLen
	binary.LittleEndian.PutUint32(fixed[off:off+4], s.Mode)
	binary.LittleEndian.PutUint32(fixed[off+4:off+8], s.Atime)
	binary.LittleEndian.PutUint32(fixed[off+8:off+12], s.Mtime)
	binary.LittleEndian.PutUint64(fixed[off+12:off+20], uint64(s.Length))
	buf = append(buf, fixed[:]...)

	buf = appendString(buf, s.Name)
	buf = appendString(buf, s.Uid)
	buf = appendString(buf, s.Gid)
	buf = appendString(buf, s.Muid)
	return buf, nil
}

// UnmarshalStat decodes a single Stat record from the front of buf,
// which must begin with the record's own 2-byte size field. It returns
// the decoded Stat and the bytes following the record.
func UnmarshalStat(buf []byte) (Stat, []byte, error) {
	if len(buf) < 2 {
		return Stat{}, buf, ErrShortStat
	}
	size := int(binary.LittleEndian.Uint16(buf[0:2]))
	if len(buf) < 2+size {
		return Stat{}, buf, ErrShortStat
	}
	rest := buf[2+size:]
	body := buf[2 : 2+size]
	if len(body) < minStatLen-2 {
		return Stat{}, buf, ErrShortStat
	}

	var s Stat
	s.Type = binary.LittleEndian.Uint16(body[0:2])
	s.Dev = binary.LittleEndian.Uint32(body[2:6])
	s.Qid, _ = decodeQid(body[6 : 6+QidLen])
	off := 6 + QidLen
	s.Mode = binary.LittleEndian.Uint32(body[off : off+4])
	s.Atime = binary.LittleEndian.Uint32(body[off+4 : off+8])
	s.Mtime = binary.LittleEndian.Uint32(body[off+8 : off+12])
	s.Length = int64(binary.LittleEndian.Uint64(body[off+12 : off+20]))

	strs := body[off+20:]
	var err error
	if s.Name, strs, err = readString(strs); err != nil {
		return Stat{}, buf, err
	}
	if s.Uid, strs, err = readString(strs); err != nil {
		return Stat{}, buf, err
	}
	if s.Gid, strs, err = readString(strs); err != nil {
		return Stat{}, buf, err
	}
	if s.Muid, _, err = readString(strs); err != nil {
		return Stat{}, buf, err
	}
	return s, rest, nil
}

func (s Stat) String() string {
	return fmt.Sprintf("name=%q qid=%s mode=%o length=%d uid=%q gid=%q muid=%q",
		s.Name, s.Qid, s.Mode, s.Length, s.Uid, s.Gid, s.Muid)
}

// IsDir reports whether s describes a directory.
func (s Stat) IsDir() bool { return s.Qid.Type&QTDIR != 0 }
