package ninep

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/ninelib/ninep/nsfs"
	"github.com/ninelib/ninep/wire"
)

// openFid is the state a connection keeps for each fid a client has
// bound: which namespace node it names, and whether/how it has been
// opened.
type openFid struct {
	handle nsfs.Handle
	opened bool
	mode   uint8
}

// conn is one connection's session: version state, its fid table, and
// the sequential read-dispatch-reply loop that processes every request
// in the order it arrived, replying to each before reading the next.
// Because no two requests on the same connection are ever in flight at
// once, a Tflush naming an earlier tag always finds that request
// already answered — Rflush is unconditional here, matching spec's
// allowance that flush of an already-completed request is not an error.
type conn struct {
	srv   *Server
	rwc   net.Conn
	enc   *wire.Encoder
	msize uint32

	fids map[uint32]*openFid
}

func newConn(srv *Server, rwc net.Conn) *conn {
	return &conn{
		srv:  srv,
		rwc:  rwc,
		enc:  wire.NewEncoder(rwc),
		fids: make(map[uint32]*openFid),
	}
}

func (c *conn) serve(ctx context.Context) {
	defer c.rwc.Close()

	maxSize := c.srv.MaxMessageSize
	if maxSize == 0 {
		maxSize = wire.MaxMessageSize
	}
	dec := wire.NewDecoder(c.rwc)

	if !dec.Next() {
		return
	}
	tversion, ok := dec.Msg().(wire.Tversion)
	if !ok {
		c.srv.logf("ninep: expected Tversion, got %T", dec.Msg())
		return
	}
	negotiated := tversion.Msize
	if negotiated > maxSize {
		negotiated = maxSize
	}
	version := wire.NegotiateVersion(wire.Version, tversion.Version)
	if err := c.enc.Rversion(negotiated, version); err != nil {
		c.srv.logf("ninep: Rversion: %v", err)
		return
	}
	if version == wire.Unknown {
		return
	}
	c.msize = negotiated
	dec.SetMaxSize(negotiated)

	for dec.Next() {
		if err := c.dispatch(dec.Msg()); err != nil {
			c.srv.logf("ninep: %v", err)
			return
		}
	}
	if err := dec.Err(); err != nil {
		c.srv.logf("ninep: connection from %v: %v", c.rwc.RemoteAddr(), err)
	}
}

func (c *conn) dispatch(msg wire.Msg) error {
	switch m := msg.(type) {
	case wire.Tattach:
		return c.handleAttach(m)
	case wire.Tauth:
		return c.enc.Rerror(m.Tag(), "authentication not required")
	case wire.Twalk:
		return c.handleWalk(m)
	case wire.Topen:
		return c.handleOpen(m)
	case wire.Tcreate:
		return c.handleCreate(m)
	case wire.Tread:
		return c.handleRead(m)
	case wire.Twrite:
		return c.handleWrite(m)
	case wire.Tstat:
		return c.handleStat(m)
	case wire.Twstat:
		return c.handleWstat(m)
	case wire.Tclunk:
		return c.handleClunk(m)
	case wire.Tremove:
		return c.handleRemove(m)
	case wire.Tflush:
		return c.enc.Rflush(m.Tag())
	case wire.Tversion:
		return c.enc.Rerror(wire.NoTag, "Tversion not valid mid-session")
	default:
		return fmt.Errorf("unexpected message type %T", msg)
	}
}

func (c *conn) handleAttach(m wire.Tattach) error {
	handle := c.srv.Tree.Root()
	if aname := strings.Trim(m.Aname, "/"); aname != "" {
		h, err := c.srv.Tree.Resolve(handle, strings.Split(aname, "/"))
		if err != nil {
			return c.enc.Rerror(m.Tag(), err.Error())
		}
		handle = h
	}
	node := c.srv.Tree.Node(handle)
	if err := node.Open(m.Uname, wire.OREAD); err != nil {
		return c.enc.Rerror(m.Tag(), err.Error())
	}
	c.fids[m.Fid] = &openFid{handle: handle}
	return c.enc.Rattach(m.Tag(), node.Qid())
}
