package wire

import (
	"encoding/binary"
	"io"
)

// A Decoder reads a stream of framed 9P messages from an underlying
// io.Reader. Call Next to advance to the following message, then Msg to
// retrieve it; Next returns false at EOF or on the first parse error,
// after which Err reports the cause.
//
// Unlike styx's Decoder, which exposes messages as views over a shared
// scan buffer that are only valid until the next Next call, this
// Decoder fully decodes each frame into an independent Msg value before
// returning it, trading a little throughput for a simpler, harder to
// misuse API; ninep's connections are not so hot a path that this
// matters.
type Decoder struct {
	r       io.Reader
	maxSize uint32
	buf     []byte
	msg     Msg
	err     error
}

// NewDecoder returns a Decoder reading from r. The decoder enforces
// MaxMessageSize until SetMaxSize is called with a negotiated value.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, maxSize: MaxMessageSize}
}

// SetMaxSize updates the maximum frame size the Decoder will accept,
// normally called once Tversion/Rversion negotiation completes.
func (d *Decoder) SetMaxSize(n uint32) {
	d.maxSize = n
}

// Err returns the first error encountered by Next, or nil if none has
// occurred (including when the stream ended cleanly at a frame boundary).
func (d *Decoder) Err() error {
	if d.err == io.EOF {
		return nil
	}
	return d.err
}

// Msg returns the message decoded by the most recent successful call to
// Next.
func (d *Decoder) Msg() Msg {
	return d.msg
}

// Next reads and decodes the next frame, reporting whether one was
// successfully decoded. It returns false at a clean EOF (Err returns
// nil) or after the first malformed frame (Err returns the cause); the
// Decoder must not be used again once Next returns false.
func (d *Decoder) Next() bool {
	if d.err != nil {
		return false
	}
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = ErrShortHeader
		}
		d.err = err
		return false
	}
	h := parseHeader(hdr[:])
	if h.Size < HeaderSize {
		d.err = ErrFrameTooSmall
		return false
	}
	if h.Size > d.maxSize {
		d.err = ErrFrameTooLarge
		return false
	}
	bodyLen := int(h.Size) - HeaderSize
	if cap(d.buf) < bodyLen {
		d.buf = make([]byte, bodyLen)
	} else {
		d.buf = d.buf[:bodyLen]
	}
	if bodyLen > 0 {
		if _, err := io.ReadFull(d.r, d.buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				err = ErrShortBody
			}
			d.err = err
			return false
		}
	}
	msg, err := decodeBody(h.Type, h.Tag, d.buf)
	if err != nil {
		d.err = err
		return false
	}
	d.msg = msg
	return true
}

func decodeBody(mtype uint8, tag uint16, body []byte) (Msg, error) {
	switch mtype {
	case Tversion:
		msize, rest, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		version, _, err := readString(rest)
		if err != nil {
			return nil, err
		}
		return Tversion{Msize: msize, Version: version}, nil
	case Rversion:
		msize, rest, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		version, _, err := readString(rest)
		if err != nil {
			return nil, err
		}
		return Rversion{Msize: msize, Version: version}, nil
	case Tauth:
		afid, rest, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		uname, rest, err := readString(rest)
		if err != nil {
			return nil, err
		}
		aname, _, err := readString(rest)
		if err != nil {
			return nil, err
		}
		return Tauth{FTag: tag, Afid: afid, Uname: uname, Aname: aname}, nil
	case Rauth:
		if len(body) < QidLen {
			return nil, ErrShortBody
		}
		qid, _ := decodeQid(body)
		return Rauth{FTag: tag, Aqid: qid}, nil
	case Tattach:
		fid, rest, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		afid, rest, err := readUint32(rest)
		if err != nil {
			return nil, err
		}
		uname, rest, err := readString(rest)
		if err != nil {
			return nil, err
		}
		aname, _, err := readString(rest)
		if err != nil {
			return nil, err
		}
		return Tattach{FTag: tag, Fid: fid, Afid: afid, Uname: uname, Aname: aname}, nil
	case Rattach:
		if len(body) < QidLen {
			return nil, ErrShortBody
		}
		qid, _ := decodeQid(body)
		return Rattach{FTag: tag, Qid: qid}, nil
	case Rerror:
		ename, _, err := readString(body)
		if err != nil {
			return nil, err
		}
		return Rerror{FTag: tag, Ename: ename}, nil
	case Tflush:
		oldtag, _, err := readUint16(body)
		if err != nil {
			return nil, err
		}
		return Tflush{FTag: tag, Oldtag: oldtag}, nil
	case Rflush:
		return Rflush{FTag: tag}, nil
	case Twalk:
		fid, rest, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		newfid, rest, err := readUint32(rest)
		if err != nil {
			return nil, err
		}
		n, rest, err := readUint16(rest)
		if err != nil {
			return nil, err
		}
		if int(n) > MaxWElem {
			return nil, ErrTooManyWElem
		}
		wname := make([]string, n)
		for i := range wname {
			wname[i], rest, err = readString(rest)
			if err != nil {
				return nil, err
			}
		}
		return Twalk{FTag: tag, Fid: fid, Newfid: newfid, Wname: wname}, nil
	case Rwalk:
		n, rest, err := readUint16(body)
		if err != nil {
			return nil, err
		}
		if int(n) > MaxWElem {
			return nil, ErrTooManyWElem
		}
		if len(rest) < int(n)*QidLen {
			return nil, ErrShortBody
		}
		wqid := make([]Qid, n)
		for i := range wqid {
			wqid[i], rest = decodeQid(rest)
		}
		return Rwalk{FTag: tag, Wqid: wqid}, nil
	case Topen:
		fid, rest, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		if len(rest) < 1 {
			return nil, ErrShortBody
		}
		return Topen{FTag: tag, Fid: fid, Mode: rest[0]}, nil
	case Ropen:
		if len(body) < QidLen+4 {
			return nil, ErrShortBody
		}
		qid, rest := decodeQid(body)
		iounit, _, err := readUint32(rest)
		if err != nil {
			return nil, err
		}
		return Ropen{FTag: tag, Qid: qid, Iounit: iounit}, nil
	case Tcreate:
		fid, rest, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		name, rest, err := readString(rest)
		if err != nil {
			return nil, err
		}
		perm, rest, err := readUint32(rest)
		if err != nil {
			return nil, err
		}
		if len(rest) < 1 {
			return nil, ErrShortBody
		}
		return Tcreate{FTag: tag, Fid: fid, Name: name, Perm: perm, Mode: rest[0]}, nil
	case Rcreate:
		if len(body) < QidLen+4 {
			return nil, ErrShortBody
		}
		qid, rest := decodeQid(body)
		iounit, _, err := readUint32(rest)
		if err != nil {
			return nil, err
		}
		return Rcreate{FTag: tag, Qid: qid, Iounit: iounit}, nil
	case Tread:
		fid, rest, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		offset, rest, err := readUint64(rest)
		if err != nil {
			return nil, err
		}
		count, _, err := readUint32(rest)
		if err != nil {
			return nil, err
		}
		return Tread{FTag: tag, Fid: fid, Offset: offset, Count: count}, nil
	case Rread:
		count, rest, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		if len(rest) < int(count) {
			return nil, ErrShortBody
		}
		data := make([]byte, count)
		copy(data, rest[:count])
		return Rread{FTag: tag, Data: data}, nil
	case Twrite:
		fid, rest, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		offset, rest, err := readUint64(rest)
		if err != nil {
			return nil, err
		}
		count, rest, err := readUint32(rest)
		if err != nil {
			return nil, err
		}
		if len(rest) < int(count) {
			return nil, ErrShortBody
		}
		data := make([]byte, count)
		copy(data, rest[:count])
		return Twrite{FTag: tag, Fid: fid, Offset: offset, Data: data}, nil
	case Rwrite:
		count, _, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		return Rwrite{FTag: tag, Count: count}, nil
	case Tclunk:
		fid, _, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		return Tclunk{FTag: tag, Fid: fid}, nil
	case Rclunk:
		return Rclunk{FTag: tag}, nil
	case Tremove:
		fid, _, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		return Tremove{FTag: tag, Fid: fid}, nil
	case Rremove:
		return Rremove{FTag: tag}, nil
	case Tstat:
		fid, _, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		return Tstat{FTag: tag, Fid: fid}, nil
	case Rstat:
		stat, _, err := UnmarshalStat(body)
		if err != nil {
			return nil, err
		}
		return Rstat{FTag: tag, Stat: stat}, nil
	case Twstat:
		fid, rest, err := readUint32(body)
		if err != nil {
			return nil, err
		}
		stat, _, err := UnmarshalStat(rest)
		if err != nil {
			return nil, err
		}
		return Twstat{FTag: tag, Fid: fid, Stat: stat}, nil
	case Rwstat:
		return Rwstat{FTag: tag}, nil
	default:
		return nil, ErrUnknownType
	}
}

func readUint16(buf []byte) (uint16, []byte, error) {
	if len(buf) < 2 {
		return 0, buf, ErrShortBody
	}
	return binary.LittleEndian.Uint16(buf[0:2]), buf[2:], nil
}

func readUint32(buf []byte) (uint32, []byte, error) {
	if len(buf) < 4 {
		return 0, buf, ErrShortBody
	}
	return binary.LittleEndian.Uint32(buf[0:4]), buf[4:], nil
}

func readUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, buf, ErrShortBody
	}
	return binary.LittleEndian.Uint64(buf[0:8]), buf[8:], nil
}
