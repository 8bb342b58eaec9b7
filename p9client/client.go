// Package p9client implements the client side of the protocol: version
// negotiation, attachment, and the request/response operations
// (Walk, Open, Read, Write, Clunk, Stat) a caller drives a connected
// resource server with. Tflush is not a caller-facing operation: a
// request whose context is canceled sends one automatically.
//
// The shape is carried over from the reference AsyncClient: one fid
// per outstanding resource handle (internal/fidpool), one tag per
// outstanding request (internal/txtable), and a single read loop that
// demultiplexes replies onto whichever goroutine is waiting for them —
// Go's goroutines and channels standing in for the reference
// implementation's future/promise chains and this package's own mutex
// standing in for its single-threaded reactor loop.
package p9client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/ninelib/ninep/internal/fidpool"
	"github.com/ninelib/ninep/internal/txtable"
	"github.com/ninelib/ninep/wire"
)

// ErrClosed is returned by any operation attempted after the Client's
// underlying connection has been closed.
var ErrClosed = errors.New("p9client: client closed")

// DefaultTags bounds how many requests a Client may have outstanding at
// once, matching the concurrencyHint constructor argument of the
// reference AsyncClient.
const DefaultTags = 64

// DefaultFids bounds how many resource handles a Client may hold open at
// once.
const DefaultFids = 1024

// A Client is a single connection to a resource server, after version
// negotiation and attachment.
type Client struct {
	conn    net.Conn
	enc     *wire.Encoder
	writeMu sync.Mutex

	tags *txtable.Table
	fids *fidpool.Pool

	msize uint32
	// rootFid is the fid bound to the attached tree's root by Attach.
	rootFid uint32

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// Dial negotiates a connection to rwc, then attaches uname to the tree
// named aname (the empty string selects the server's default tree).
// msize is the maximum message size the caller is willing to use; the
// negotiated size, which may be smaller, is recorded on the returned
// Client.
func Dial(ctx context.Context, rwc net.Conn, msize uint32, uname, aname string) (*Client, error) {
	if msize == 0 {
		msize = wire.MaxMessageSize
	}
	c := &Client{
		conn:   rwc,
		enc:    wire.NewEncoder(rwc),
		tags:   txtable.New(DefaultTags),
		fids:   fidpool.New(DefaultFids),
		closed: make(chan struct{}),
	}

	dec := wire.NewDecoder(rwc)

	// Version negotiation uses the reserved NoTag and must complete
	// before any other request is outstanding, so it is done
	// synchronously here, before the demultiplexing read loop starts.
	negotiated, err := c.version(msize, dec)
	if err != nil {
		c.conn.Close()
		return nil, err
	}
	c.msize = negotiated
	dec.SetMaxSize(negotiated)

	go c.readLoop(dec)

	if err := c.attach(ctx, uname, aname); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// RootFid returns the fid bound to the root of the attached tree.
func (c *Client) RootFid() uint32 { return c.rootFid }

// Msize returns the negotiated maximum message size.
func (c *Client) Msize() uint32 { return c.msize }

// IOUnit returns the largest amount of data a single Read can return,
// derived from the negotiated message size the way the reference
// client computes its default iounit when the server did not advertise
// one via Ropen/Rcreate. A Twrite carries wire.WriteHeaderOverhead bytes
// of framing, more than an Rread's, so a Write of IOUnit bytes does not
// fit in the negotiated message size.
func (c *Client) IOUnit() uint32 {
	return c.msize - wire.ReadHeaderOverhead
}

// Close shuts down the underlying connection and wakes any goroutine
// blocked on a pending request.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *Client) readLoop(dec *wire.Decoder) {
	for dec.Next() {
		c.tags.Deliver(dec.Msg())
	}
	c.Close()
}

// call allocates a tag, writes a request built from encode, and waits
// for either the matching reply or ctx's cancellation, returning
// ErrClosed if the connection goes away first.
func (c *Client) call(ctx context.Context, encode func(tag uint16) error) (wire.Msg, error) {
	tag, done, err := c.tags.Alloc()
	if err != nil {
		return nil, fmt.Errorf("p9client: %w", err)
	}
	defer c.tags.Release(tag)

	c.writeMu.Lock()
	err = encode(tag)
	c.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	select {
	case msg := <-done:
		if rerr, ok := msg.(wire.Rerror); ok {
			return nil, rerr
		}
		return msg, nil
	case <-ctx.Done():
		c.flush(tag)
		return nil, ctx.Err()
	case <-c.closed:
		return nil, ErrClosed
	}
}

// flush issues a best-effort Tflush for a request the caller is no
// longer waiting on, so the server stops doing work for it; the
// response, whenever it arrives, is dropped silently by the tag table
// since the caller has already moved on.
func (c *Client) flush(oldtag uint16) {
	flushTag, done, err := c.tags.Alloc()
	if err != nil {
		return
	}
	defer c.tags.Release(flushTag)

	c.writeMu.Lock()
	err = c.enc.Tflush(flushTag, oldtag)
	c.writeMu.Unlock()
	if err != nil {
		return
	}
	select {
	case <-done:
	case <-c.closed:
	}
}

// version performs the Tversion/Rversion exchange directly against dec,
// ahead of the demultiplexing read loop: Tversion and Rversion are
// always tagged NoTag, a value the transaction table never hands out,
// so there is nothing for the table to correlate here.
func (c *Client) version(msize uint32, dec *wire.Decoder) (uint32, error) {
	if err := c.enc.Tversion(msize, wire.Version); err != nil {
		return 0, err
	}
	if !dec.Next() {
		if err := dec.Err(); err != nil {
			return 0, err
		}
		return 0, io.ErrUnexpectedEOF
	}
	reply, ok := dec.Msg().(wire.Rversion)
	if !ok {
		return 0, fmt.Errorf("p9client: unexpected reply %T to Tversion", dec.Msg())
	}
	if reply.Msize > msize {
		return 0, fmt.Errorf("p9client: server proposed larger msize %d than requested %d", reply.Msize, msize)
	}
	// The server may have negotiated down to a true prefix of the version
	// this client proposed (e.g. a legacy "9P2000" server answering our
	// "9P2000.x"); anything else, including "unknown", is not usable.
	if reply.Version == wire.Unknown || !strings.HasPrefix(wire.Version, reply.Version) {
		return 0, fmt.Errorf("p9client: server speaks unsupported version %q", reply.Version)
	}
	return reply.Msize, nil
}

func (c *Client) attach(ctx context.Context, uname, aname string) error {
	fid, err := c.fids.Get()
	if err != nil {
		return fmt.Errorf("p9client: %w", err)
	}
	reply, err := c.call(ctx, func(tag uint16) error {
		return c.enc.Tattach(tag, fid, wire.NoFid, uname, aname)
	})
	if err != nil {
		c.fids.Put(fid)
		return err
	}
	if _, ok := reply.(wire.Rattach); !ok {
		c.fids.Put(fid)
		return fmt.Errorf("p9client: unexpected reply %T to Tattach", reply)
	}
	c.rootFid = fid
	return nil
}

// Walk resolves names starting from fid, binding the final resolved
// element to a freshly allocated fid, which it returns along with the
// Qid of every successfully traversed element. A short Qid list
// (relative to names) means a partial walk: the new fid is only bound
// if every element resolved.
func (c *Client) Walk(ctx context.Context, fid uint32, names []string) (newfid uint32, qids []wire.Qid, err error) {
	newfid, err = c.fids.Get()
	if err != nil {
		return 0, nil, fmt.Errorf("p9client: %w", err)
	}
	reply, err := c.call(ctx, func(tag uint16) error {
		return c.enc.Twalk(tag, fid, newfid, names)
	})
	if err != nil {
		c.fids.Put(newfid)
		return 0, nil, err
	}
	rwalk, ok := reply.(wire.Rwalk)
	if !ok {
		c.fids.Put(newfid)
		return 0, nil, fmt.Errorf("p9client: unexpected reply %T to Twalk", reply)
	}
	if len(rwalk.Wqid) != len(names) {
		c.fids.Put(newfid)
		return 0, rwalk.Wqid, fmt.Errorf("p9client: partial walk: resolved %d of %d elements", len(rwalk.Wqid), len(names))
	}
	return newfid, rwalk.Wqid, nil
}

// Open prepares fid for I/O in the given mode, returning the server's
// advised maximum atomic transfer size (falling back to IOUnit if the
// server advertised none).
func (c *Client) Open(ctx context.Context, fid uint32, mode uint8) (wire.Qid, uint32, error) {
	reply, err := c.call(ctx, func(tag uint16) error {
		return c.enc.Topen(tag, fid, mode)
	})
	if err != nil {
		return wire.Qid{}, 0, err
	}
	ropen, ok := reply.(wire.Ropen)
	if !ok {
		return wire.Qid{}, 0, fmt.Errorf("p9client: unexpected reply %T to Topen", reply)
	}
	iounit := ropen.Iounit
	if iounit == 0 {
		iounit = c.IOUnit()
	}
	return ropen.Qid, iounit, nil
}

// Create creates name under the directory bound to fid, opens it in
// mode, and rebinds fid to the new resource, returning its Qid and
// iounit.
func (c *Client) Create(ctx context.Context, fid uint32, name string, perm uint32, mode uint8) (wire.Qid, uint32, error) {
	reply, err := c.call(ctx, func(tag uint16) error {
		return c.enc.Tcreate(tag, fid, name, perm, mode)
	})
	if err != nil {
		return wire.Qid{}, 0, err
	}
	rcreate, ok := reply.(wire.Rcreate)
	if !ok {
		return wire.Qid{}, 0, fmt.Errorf("p9client: unexpected reply %T to Tcreate", reply)
	}
	iounit := rcreate.Iounit
	if iounit == 0 {
		iounit = c.IOUnit()
	}
	return rcreate.Qid, iounit, nil
}

// Read reads up to len(p) bytes from fid starting at offset, returning
// the number of bytes actually read. When the server returns no data,
// Read returns 0 and io.EOF.
func (c *Client) Read(ctx context.Context, fid uint32, offset uint64, p []byte) (int, error) {
	reply, err := c.call(ctx, func(tag uint16) error {
		return c.enc.Tread(tag, fid, offset, int64(len(p)))
	})
	if err != nil {
		return 0, err
	}
	rread, ok := reply.(wire.Rread)
	if !ok {
		return 0, fmt.Errorf("p9client: unexpected reply %T to Tread", reply)
	}
	n := copy(p, rread.Data)
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes data to fid at offset, returning the number of bytes the
// server accepted.
func (c *Client) Write(ctx context.Context, fid uint32, offset uint64, data []byte) (int, error) {
	reply, err := c.call(ctx, func(tag uint16) error {
		return c.enc.Twrite(tag, fid, offset, data)
	})
	if err != nil {
		return 0, err
	}
	rwrite, ok := reply.(wire.Rwrite)
	if !ok {
		return 0, fmt.Errorf("p9client: unexpected reply %T to Twrite", reply)
	}
	return int(rwrite.Count), nil
}

// Stat fetches the metadata of the resource bound to fid.
func (c *Client) Stat(ctx context.Context, fid uint32) (wire.Stat, error) {
	reply, err := c.call(ctx, func(tag uint16) error {
		return c.enc.Tstat(tag, fid)
	})
	if err != nil {
		return wire.Stat{}, err
	}
	rstat, ok := reply.(wire.Rstat)
	if !ok {
		return wire.Stat{}, fmt.Errorf("p9client: unexpected reply %T to Tstat", reply)
	}
	return rstat.Stat, nil
}

// Wstat updates the metadata of the resource bound to fid.
func (c *Client) Wstat(ctx context.Context, fid uint32, stat wire.Stat) error {
	reply, err := c.call(ctx, func(tag uint16) error {
		return c.enc.Twstat(tag, fid, stat)
	})
	if err != nil {
		return err
	}
	if _, ok := reply.(wire.Rwstat); !ok {
		return fmt.Errorf("p9client: unexpected reply %T to Twstat", reply)
	}
	return nil
}

// Clunk releases fid. The resource it named is unaffected.
func (c *Client) Clunk(ctx context.Context, fid uint32) error {
	defer c.fids.Put(fid)
	reply, err := c.call(ctx, func(tag uint16) error {
		return c.enc.Tclunk(tag, fid)
	})
	if err != nil {
		return err
	}
	if _, ok := reply.(wire.Rclunk); !ok {
		return fmt.Errorf("p9client: unexpected reply %T to Tclunk", reply)
	}
	return nil
}

// Remove releases fid and deletes the resource it names.
func (c *Client) Remove(ctx context.Context, fid uint32) error {
	defer c.fids.Put(fid)
	reply, err := c.call(ctx, func(tag uint16) error {
		return c.enc.Tremove(tag, fid)
	})
	if err != nil {
		return err
	}
	if _, ok := reply.(wire.Rremove); !ok {
		return fmt.Errorf("p9client: unexpected reply %T to Tremove", reply)
	}
	return nil
}

// ReadFile walks to path from the attached root, opens it for reading,
// reads its entire content in iounit-sized chunks, and clunks the fid —
// the composite read(path) operation spec's client engine names
// alongside list(path). Any fid this allocates is clunked even if an
// intermediate step fails.
func (c *Client) ReadFile(ctx context.Context, path []string) ([]byte, error) {
	fid, _, err := c.Walk(ctx, c.rootFid, path)
	if err != nil {
		return nil, err
	}
	defer c.Clunk(ctx, fid)

	_, iounit, err := c.Open(ctx, fid, wire.OREAD)
	if err != nil {
		return nil, err
	}
	if iounit == 0 {
		iounit = c.IOUnit()
	}

	var content []byte
	buf := make([]byte, iounit)
	var offset uint64
	for {
		n, err := c.Read(ctx, fid, offset, buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		content = append(content, buf[:n]...)
		offset += uint64(n)
	}
	return content, nil
}

// WriteFile walks to path from the attached root, opens it for writing,
// writes data starting at offset zero in chunks no larger than the
// iounit and small enough for each Twrite to fit the negotiated message
// size, and
// clunks the fid — the composite write(path, data) operation spec's
// client engine names alongside read(path). Any fid this allocates is
// clunked even if an intermediate step fails.
func (c *Client) WriteFile(ctx context.Context, path []string, data []byte) error {
	fid, _, err := c.Walk(ctx, c.rootFid, path)
	if err != nil {
		return err
	}
	defer c.Clunk(ctx, fid)

	_, iounit, err := c.Open(ctx, fid, wire.OWRITE)
	if err != nil {
		return err
	}
	if iounit == 0 {
		iounit = c.IOUnit()
	}
	if limit := c.msize - wire.WriteHeaderOverhead; iounit > limit {
		iounit = limit
	}

	var offset uint64
	for len(data) > 0 {
		chunk := data
		if uint32(len(chunk)) > iounit {
			chunk = chunk[:iounit]
		}
		n, err := c.Write(ctx, fid, offset, chunk)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		offset += uint64(n)
		data = data[n:]
	}
	return nil
}

// List walks to path from the attached root, opens it for reading, and
// returns the Stat of every entry — the composite convenience operation
// the reference AsyncClient exposes as list(path), built here from the
// same Walk+Open+Read primitives every other client operation uses.
func (c *Client) List(ctx context.Context, path []string) ([]wire.Stat, error) {
	fid, _, err := c.Walk(ctx, c.rootFid, path)
	if err != nil {
		return nil, err
	}
	defer c.Clunk(ctx, fid)

	if _, _, err := c.Open(ctx, fid, wire.OREAD); err != nil {
		return nil, err
	}

	var stats []wire.Stat
	buf := make([]byte, c.IOUnit())
	var offset uint64
	for {
		n, err := c.Read(ctx, fid, offset, buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rest := buf[:n]
		for len(rest) > 0 {
			var stat wire.Stat
			stat, rest, err = wire.UnmarshalStat(rest)
			if err != nil {
				return nil, err
			}
			stats = append(stats, stat)
		}
		offset += uint64(n)
	}
	return stats, nil
}
