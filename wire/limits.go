package wire

// HeaderSize is the size, in bytes, of the size[4] type[1] tag[2] frame
// header that precedes every 9P message body.
const HeaderSize = 4 + 1 + 2

// MaxMessageSize is the compile-time upper bound on a single 9P message,
// matching the reference 9P2000 implementation. Larger values may be
// negotiated via Tversion/Rversion; this is only the default a fresh
// Client or Server advertises before any negotiation takes place.
const MaxMessageSize = 4096

// MinMessageSize is the smallest legal message: the header plus nothing,
// which is only valid for messages with an empty body (Rclunk, Rflush,
// Rremove, Rwstat).
const MinMessageSize = HeaderSize

// MaxVersionLen is the maximum length of the protocol version string.
const MaxVersionLen = 20

// MaxWElem is the maximum number of path elements in a single Twalk
// request. Longer paths require multiple Twalk requests, each reusing
// the destination fid of the previous one.
const MaxWElem = 16

// MaxFilenameLen is the maximum length, in bytes, of a single path
// element or Stat name.
const MaxFilenameLen = 512

// MaxUidLen is the maximum length, in bytes, of a uid/gid/muid string.
const MaxUidLen = 45

// MaxAttachLen is the maximum length, in bytes, of the aname field of
// Tattach and Tauth.
const MaxAttachLen = 255

// MaxErrorLen is the maximum length, in bytes, of an Rerror ename.
const MaxErrorLen = 512

// QidLen is the encoded length, in bytes, of a Qid: type[1] version[4] path[8].
const QidLen = 13

// minStatLen is the smallest legal encoded Stat, with all four strings
// empty: size[2] type[2] dev[4] qid[13] mode[4] atime[4] mtime[4]
// length[8] + 4 empty length-prefixed strings (2 bytes each).
const minStatLen = 2 + 2 + 4 + QidLen + 4 + 4 + 4 + 8 + 2 + 2 + 2 + 2

// MaxStatLen is the largest legal encoded Stat.
const MaxStatLen = minStatLen + MaxFilenameLen + 3*MaxUidLen

// ReadHeaderOverhead is the number of bytes of framing overhead in an
// Rread message, not counting the data itself: size[4] type[1] tag[2]
// count[4].
const ReadHeaderOverhead = HeaderSize + 4

// WriteHeaderOverhead is the number of bytes of framing overhead in a
// Twrite message, not counting the data itself: size[4] type[1] tag[2]
// fid[4] offset[8] count[4].
const WriteHeaderOverhead = HeaderSize + 4 + 8 + 4

// NoTag is the reserved tag value used for Tversion/Rversion, the only
// exchange that precedes tag allocation.
const NoTag uint16 = 0xFFFF

// NoFid is the sentinel meaning "no fid", used in Tattach/Tauth's afid
// field when the client does not want to authenticate.
const NoFid uint32 = 0xFFFFFFFF
