package wire

import (
	"io"
	"math"
)

// MinBufSize is the minimum internal buffer size for an Encoder or
// Decoder: large enough to hold a maximally-sized Twalk request.
const MinBufSize = MaxWElem*(MaxFilenameLen+2) + HeaderSize + 4 + 4 + 2

// An Encoder writes framed 9P messages to an underlying io.Writer. It
// performs no buffering of its own beyond what's needed to compute each
// message's size field before writing the header; callers that want to
// batch multiple messages before a syscall should wrap w in a
// *bufio.Writer and Flush it themselves.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) write(buf []byte) error {
	_, err := e.w.Write(buf)
	return err
}

// Tversion writes a Tversion message. The Tag is always NoTag.
func (e *Encoder) Tversion(msize uint32, version string) error {
	if len(version) > MaxVersionLen {
		version = version[:MaxVersionLen]
	}
	buf := make([]byte, HeaderSize, HeaderSize+4+2+len(version))
	buf = appendUint32(buf, msize)
	buf = appendString(buf, version)
	putHeader(buf, uint32(len(buf)), Tversion, NoTag)
	return e.write(buf)
}

// Rversion writes an Rversion message.
func (e *Encoder) Rversion(msize uint32, version string) error {
	if len(version) > MaxVersionLen {
		version = version[:MaxVersionLen]
	}
	buf := make([]byte, HeaderSize, HeaderSize+4+2+len(version))
	buf = appendUint32(buf, msize)
	buf = appendString(buf, version)
	putHeader(buf, uint32(len(buf)), Rversion, NoTag)
	return e.write(buf)
}

// Tauth writes a Tauth message.
func (e *Encoder) Tauth(tag uint16, afid uint32, uname, aname string) error {
	if len(uname) > MaxUidLen {
		return ErrLongUsername
	}
	if len(aname) > MaxAttachLen {
		return ErrLongAttach
	}
	buf := make([]byte, HeaderSize, HeaderSize+4+2+len(uname)+2+len(aname))
	buf = appendUint32(buf, afid)
	buf = appendString(buf, uname)
	buf = appendString(buf, aname)
	putHeader(buf, uint32(len(buf)), Tauth, tag)
	return e.write(buf)
}

// Rauth writes an Rauth message.
func (e *Encoder) Rauth(tag uint16, aqid Qid) error {
	buf := make([]byte, HeaderSize, HeaderSize+QidLen)
	buf = aqid.encode(buf)
	putHeader(buf, uint32(len(buf)), Rauth, tag)
	return e.write(buf)
}

// Tattach writes a Tattach message.
func (e *Encoder) Tattach(tag uint16, fid, afid uint32, uname, aname string) error {
	if len(uname) > MaxUidLen {
		return ErrLongUsername
	}
	if len(aname) > MaxAttachLen {
		return ErrLongAttach
	}
	buf := make([]byte, HeaderSize, HeaderSize+4+4+2+len(uname)+2+len(aname))
	buf = appendUint32(buf, fid)
	buf = appendUint32(buf, afid)
	buf = appendString(buf, uname)
	buf = appendString(buf, aname)
	putHeader(buf, uint32(len(buf)), Tattach, tag)
	return e.write(buf)
}

// Rattach writes an Rattach message.
func (e *Encoder) Rattach(tag uint16, qid Qid) error {
	buf := make([]byte, HeaderSize, HeaderSize+QidLen)
	buf = qid.encode(buf)
	putHeader(buf, uint32(len(buf)), Rattach, tag)
	return e.write(buf)
}

// Rerror writes an Rerror message. ename is truncated if it exceeds
// MaxErrorLen.
func (e *Encoder) Rerror(tag uint16, ename string) error {
	if len(ename) > MaxErrorLen {
		ename = ename[:MaxErrorLen]
	}
	buf := make([]byte, HeaderSize, HeaderSize+2+len(ename))
	buf = appendString(buf, ename)
	putHeader(buf, uint32(len(buf)), Rerror, tag)
	return e.write(buf)
}

// Tflush writes a Tflush message.
func (e *Encoder) Tflush(tag, oldtag uint16) error {
	buf := make([]byte, HeaderSize, HeaderSize+2)
	buf = appendUint16(buf, oldtag)
	putHeader(buf, uint32(len(buf)), Tflush, tag)
	return e.write(buf)
}

// Rflush writes an Rflush message.
func (e *Encoder) Rflush(tag uint16) error {
	buf := make([]byte, HeaderSize)
	putHeader(buf, HeaderSize, Rflush, tag)
	return e.write(buf)
}

// Twalk writes a Twalk message. It returns ErrTooManyWElem if wname has
// more than MaxWElem elements, without writing any bytes.
func (e *Encoder) Twalk(tag uint16, fid, newfid uint32, wname []string) error {
	if len(wname) > MaxWElem {
		return ErrTooManyWElem
	}
	size := HeaderSize + 4 + 4 + 2
	for _, n := range wname {
		if len(n) > MaxFilenameLen {
			return ErrLongFilename
		}
		size += 2 + len(n)
	}
	buf := make([]byte, HeaderSize, size)
	buf = appendUint32(buf, fid)
	buf = appendUint32(buf, newfid)
	buf = appendUint16(buf, uint16(len(wname)))
	for _, n := range wname {
		buf = appendString(buf, n)
	}
	putHeader(buf, uint32(len(buf)), Twalk, tag)
	return e.write(buf)
}

// Rwalk writes an Rwalk message. It returns ErrTooManyWElem if wqid has
// more than MaxWElem elements.
func (e *Encoder) Rwalk(tag uint16, wqid []Qid) error {
	if len(wqid) > MaxWElem {
		return ErrTooManyWElem
	}
	buf := make([]byte, HeaderSize, HeaderSize+2+QidLen*len(wqid))
	buf = appendUint16(buf, uint16(len(wqid)))
	for _, q := range wqid {
		buf = q.encode(buf)
	}
	putHeader(buf, uint32(len(buf)), Rwalk, tag)
	return e.write(buf)
}

// Topen writes a Topen message.
func (e *Encoder) Topen(tag uint16, fid uint32, mode uint8) error {
	buf := make([]byte, HeaderSize, HeaderSize+4+1)
	buf = appendUint32(buf, fid)
	buf = append(buf, mode)
	putHeader(buf, uint32(len(buf)), Topen, tag)
	return e.write(buf)
}

// Ropen writes an Ropen message.
func (e *Encoder) Ropen(tag uint16, qid Qid, iounit uint32) error {
	buf := make([]byte, HeaderSize, HeaderSize+QidLen+4)
	buf = qid.encode(buf)
	buf = appendUint32(buf, iounit)
	putHeader(buf, uint32(len(buf)), Ropen, tag)
	return e.write(buf)
}

// Tcreate writes a Tcreate message.
func (e *Encoder) Tcreate(tag uint16, fid uint32, name string, perm uint32, mode uint8) error {
	if len(name) > MaxFilenameLen {
		return ErrLongFilename
	}
	buf := make([]byte, HeaderSize, HeaderSize+4+2+len(name)+4+1)
	buf = appendUint32(buf, fid)
	buf = appendString(buf, name)
	buf = appendUint32(buf, perm)
	buf = append(buf, mode)
	putHeader(buf, uint32(len(buf)), Tcreate, tag)
	return e.write(buf)
}

// Rcreate writes an Rcreate message.
func (e *Encoder) Rcreate(tag uint16, qid Qid, iounit uint32) error {
	buf := make([]byte, HeaderSize, HeaderSize+QidLen+4)
	buf = qid.encode(buf)
	buf = appendUint32(buf, iounit)
	putHeader(buf, uint32(len(buf)), Rcreate, tag)
	return e.write(buf)
}

// Tread writes a Tread message. It returns ErrCountTooLarge if count
// exceeds the range of a uint32.
func (e *Encoder) Tread(tag uint16, fid uint32, offset uint64, count int64) error {
	if count > math.MaxUint32 {
		return ErrCountTooLarge
	}
	buf := make([]byte, HeaderSize, HeaderSize+4+8+4)
	buf = appendUint32(buf, fid)
	buf = appendUint64(buf, offset)
	buf = appendUint32(buf, uint32(count))
	putHeader(buf, uint32(len(buf)), Tread, tag)
	return e.write(buf)
}

// Rread writes an Rread message carrying data.
func (e *Encoder) Rread(tag uint16, data []byte) error {
	if uint64(len(data)) > math.MaxUint32-ReadHeaderOverhead {
		return ErrMessageTooLarge
	}
	buf := make([]byte, HeaderSize, HeaderSize+4+len(data))
	buf = appendUint32(buf, uint32(len(data)))
	buf = append(buf, data...)
	putHeader(buf, uint32(len(buf)), Rread, tag)
	return e.write(buf)
}

// Twrite writes a Twrite message carrying data.
func (e *Encoder) Twrite(tag uint16, fid uint32, offset uint64, data []byte) error {
	if uint64(len(data)) > math.MaxUint32-WriteHeaderOverhead {
		return ErrMessageTooLarge
	}
	buf := make([]byte, HeaderSize, HeaderSize+4+8+4+len(data))
	buf = appendUint32(buf, fid)
	buf = appendUint64(buf, offset)
	buf = appendUint32(buf, uint32(len(data)))
	buf = append(buf, data...)
	putHeader(buf, uint32(len(buf)), Twrite, tag)
	return e.write(buf)
}

// Rwrite writes an Rwrite message.
func (e *Encoder) Rwrite(tag uint16, count uint32) error {
	buf := make([]byte, HeaderSize, HeaderSize+4)
	buf = appendUint32(buf, count)
	putHeader(buf, uint32(len(buf)), Rwrite, tag)
	return e.write(buf)
}

// Tclunk writes a Tclunk message.
func (e *Encoder) Tclunk(tag uint16, fid uint32) error {
	buf := make([]byte, HeaderSize, HeaderSize+4)
	buf = appendUint32(buf, fid)
	putHeader(buf, uint32(len(buf)), Tclunk, tag)
	return e.write(buf)
}

// Rclunk writes an Rclunk message.
func (e *Encoder) Rclunk(tag uint16) error {
	buf := make([]byte, HeaderSize)
	putHeader(buf, HeaderSize, Rclunk, tag)
	return e.write(buf)
}

// Tremove writes a Tremove message.
func (e *Encoder) Tremove(tag uint16, fid uint32) error {
	buf := make([]byte, HeaderSize, HeaderSize+4)
	buf = appendUint32(buf, fid)
	putHeader(buf, uint32(len(buf)), Tremove, tag)
	return e.write(buf)
}

// Rremove writes an Rremove message.
func (e *Encoder) Rremove(tag uint16) error {
	buf := make([]byte, HeaderSize)
	putHeader(buf, HeaderSize, Rremove, tag)
	return e.write(buf)
}

// Tstat writes a Tstat message.
func (e *Encoder) Tstat(tag uint16, fid uint32) error {
	buf := make([]byte, HeaderSize, HeaderSize+4)
	buf = appendUint32(buf, fid)
	putHeader(buf, uint32(len(buf)), Tstat, tag)
	return e.write(buf)
}

// Rstat writes an Rstat message.
func (e *Encoder) Rstat(tag uint16, stat Stat) error {
	buf := make([]byte, HeaderSize, HeaderSize+stat.EncodedLen())
	var err error
	buf, err = stat.Marshal(buf)
	if err != nil {
		return err
	}
	putHeader(buf, uint32(len(buf)), Rstat, tag)
	return e.write(buf)
}

// Twstat writes a Twstat message.
func (e *Encoder) Twstat(tag uint16, fid uint32, stat Stat) error {
	buf := make([]byte, HeaderSize, HeaderSize+4+stat.EncodedLen())
	buf = appendUint32(buf, fid)
	var err error
	buf, err = stat.Marshal(buf)
	if err != nil {
		return err
	}
	putHeader(buf, uint32(len(buf)), Twstat, tag)
	return e.write(buf)
}

// Rwstat writes an Rwstat message.
func (e *Encoder) Rwstat(tag uint16) error {
	buf := make([]byte, HeaderSize)
	putHeader(buf, HeaderSize, Rwstat, tag)
	return e.write(buf)
}

func appendUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v), byte(v>>8))
}

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendUint64(buf []byte, v uint64) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}
