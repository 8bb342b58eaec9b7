package wire

import "encoding/binary"

// appendString appends a 16-bit length-prefixed string to buf. Callers
// are responsible for checking s fits within whatever limit applies to
// the field being written; appendString itself does not truncate.
func appendString(buf []byte, s string) []byte {
	var n [2]byte
	binary.LittleEndian.PutUint16(n[:], uint16(len(s)))
	buf = append(buf, n[:]...)
	return append(buf, s...)
}

// readString reads a 16-bit length-prefixed string from the front of
// buf, returning the string and the remaining bytes.
func readString(buf []byte) (string, []byte, error) {
	if len(buf) < 2 {
		return "", buf, ErrShortBody
	}
	n := int(binary.LittleEndian.Uint16(buf[0:2]))
	buf = buf[2:]
	if len(buf) < n {
		return "", buf, ErrShortBody
	}
	return string(buf[:n]), buf[n:], nil
}

// header is the fixed 7-byte preamble of every 9P message.
type header struct {
	Size uint32
	Type uint8
	Tag  uint16
}

func putHeader(buf []byte, size uint32, mtype uint8, tag uint16) {
	binary.LittleEndian.PutUint32(buf[0:4], size)
	buf[4] = mtype
	binary.LittleEndian.PutUint16(buf[5:7], tag)
}

func parseHeader(buf []byte) header {
	return header{
		Size: binary.LittleEndian.Uint32(buf[0:4]),
		Type: buf[4],
		Tag:  binary.LittleEndian.Uint16(buf[5:7]),
	}
}
