package nsfs

import "github.com/ninelib/ninep/wire"

// StatOf builds the wire.Stat record describing node as it appears
// under name in its parent directory. It is the Go counterpart of the
// reference server's free-standing nodeStats(name, node) helper: Stat
// construction is kept out of the Node interface itself, since it is
// purely a function of a node's own Qid/Mode/Length and the name its
// parent binds it under, never of anything the node itself needs to
// track.
func StatOf(name string, n Node) wire.Stat {
	return wire.Stat{
		Qid:    n.Qid(),
		Mode:   n.Mode(),
		Length: n.Length(),
		Name:   name,
		Uid:    "none",
		Gid:    "none",
		Muid:   "none",
	}
}
