// Package wire implements the 9P2000.x wire codec: message framing,
// primitive encoding, and the Qid/Stat record formats. Encoder writes
// fully-formed frames directly to an io.Writer; Decoder reads a frame at
// a time off an io.Reader and hands back a decoded Msg value. Callers
// that only need to dispatch on message type can do so on the returned
// value's dynamic type without touching the wire representation again.
package wire
