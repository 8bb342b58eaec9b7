package p9client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ninelib/ninep"
	"github.com/ninelib/ninep/internal/fidpool"
	"github.com/ninelib/ninep/nsfs"
	"github.com/ninelib/ninep/transport"
	"github.com/ninelib/ninep/wire"
)

func newTestServer(t *testing.T) (*transport.PipeListener, func()) {
	t.Helper()
	tree := nsfs.NewTree()
	root := tree.Root()
	if _, err := tree.MountData(root, "motd", []byte("hello"), 0444); err != nil {
		t.Fatalf("MountData: %s", err)
	}
	srv := ninep.NewServer(tree)

	var ln transport.PipeListener
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx, &ln)
	return &ln, func() {
		cancel()
		ln.Close()
	}
}

func dialTestClient(t *testing.T, ln *transport.PipeListener) *Client {
	t.Helper()
	rwc, err := ln.Dial()
	if err != nil {
		t.Fatalf("Dial: %s", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, rwc, 8192, "gopher", "")
	if err != nil {
		t.Fatalf("p9client.Dial: %s", err)
	}
	return c
}

// TestFidHygiene walks into, opens, reads, and clunks the same resource
// repeatedly and checks that the client's fid pool always returns to its
// pre-sequence size — a leaked fid here would mean Clunk's defer
// c.fids.Put(fid) isn't actually running on every exit path.
func TestFidHygiene(t *testing.T) {
	ln, stop := newTestServer(t)
	defer stop()

	c := dialTestClient(t, ln)
	defer c.Close()

	baseline := c.fids.Len()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		fid, _, err := c.Walk(ctx, c.RootFid(), []string{"motd"})
		if err != nil {
			t.Fatalf("iteration %d: Walk: %s", i, err)
		}
		if _, _, err := c.Open(ctx, fid, wire.OREAD); err != nil {
			t.Fatalf("iteration %d: Open: %s", i, err)
		}
		buf := make([]byte, 32)
		if _, err := c.Read(ctx, fid, 0, buf); err != nil {
			t.Fatalf("iteration %d: Read: %s", i, err)
		}
		if err := c.Clunk(ctx, fid); err != nil {
			t.Fatalf("iteration %d: Clunk: %s", i, err)
		}
		if got := c.fids.Len(); got != baseline {
			t.Fatalf("iteration %d: fids.Len() = %d, want %d (baseline)", i, got, baseline)
		}
	}
}

// TestTagHygiene issues many sequential requests and checks the
// transaction table's busy count is zero between calls — every call()
// must Release its tag on every return path, not just the success path.
func TestTagHygiene(t *testing.T) {
	ln, stop := newTestServer(t)
	defer stop()

	c := dialTestClient(t, ln)
	defer c.Close()

	ctx := context.Background()
	if got := c.tags.Len(); got != 0 {
		t.Fatalf("tags.Len() after Dial = %d, want 0", got)
	}

	for i := 0; i < 20; i++ {
		if _, err := c.Stat(ctx, c.RootFid()); err != nil {
			t.Fatalf("iteration %d: Stat: %s", i, err)
		}
		if got := c.tags.Len(); got != 0 {
			t.Fatalf("iteration %d: tags.Len() = %d, want 0", i, got)
		}
	}

	// A request naming a fid the server will reject still has to release
	// its tag on the error path.
	if _, err := c.Stat(ctx, 99999); err == nil {
		t.Fatalf("Stat on unbound fid: want error, got nil")
	}
	if got := c.tags.Len(); got != 0 {
		t.Fatalf("tags.Len() after rejected Stat = %d, want 0", got)
	}
}

// TestFidPoolExhausted drives Client.Walk until the fid pool's bounded
// ceiling is reached, confirming ErrExhausted surfaces through the real
// call path rather than only being reachable by exercising
// internal/fidpool directly.
func TestFidPoolExhausted(t *testing.T) {
	ln, stop := newTestServer(t)
	defer stop()

	c := dialTestClient(t, ln)
	defer c.Close()

	ctx := context.Background()
	if got := c.fids.Len(); got != 1 {
		t.Fatalf("fids.Len() after Dial = %d, want 1 (root fid)", got)
	}

	var exhaustedAt = -1
	for i := 0; i < DefaultFids+1; i++ {
		// An empty Wname list walks to the same resource base already
		// names, minting a fresh fid without needing distinct paths.
		if _, _, err := c.Walk(ctx, c.RootFid(), nil); err != nil {
			if !errors.Is(err, fidpool.ErrExhausted) {
				t.Fatalf("iteration %d: Walk error = %v, want wrapped %v", i, err, fidpool.ErrExhausted)
			}
			exhaustedAt = i
			break
		}
	}
	if exhaustedAt == -1 {
		t.Fatalf("fid pool never reported exhaustion after %d walks", DefaultFids+1)
	}
	if got := c.fids.Len(); got != DefaultFids {
		t.Fatalf("fids.Len() at exhaustion = %d, want %d", got, DefaultFids)
	}
}

// fakePeer is a minimal hand-decoded 9P server used only to control
// exactly when (or whether) a reply is sent, something the real
// sequential ninep.Server can't be made to stall on demand.
type fakePeer struct {
	dec *wire.Decoder
	enc *wire.Encoder
}

func newFakePeer(rwc net.Conn) *fakePeer {
	return &fakePeer{dec: wire.NewDecoder(rwc), enc: wire.NewEncoder(rwc)}
}

func (p *fakePeer) next(t *testing.T) wire.Msg {
	t.Helper()
	if !p.dec.Next() {
		t.Fatalf("fakePeer: decode failed: %v", p.dec.Err())
	}
	return p.dec.Msg()
}

func (p *fakePeer) nextTversion(t *testing.T) wire.Tversion {
	t.Helper()
	raw := p.next(t)
	m, ok := raw.(wire.Tversion)
	if !ok {
		t.Fatalf("fakePeer: got %T, want Tversion", raw)
	}
	return m
}

func (p *fakePeer) nextTattach(t *testing.T) wire.Tattach {
	t.Helper()
	raw := p.next(t)
	m, ok := raw.(wire.Tattach)
	if !ok {
		t.Fatalf("fakePeer: got %T, want Tattach", raw)
	}
	return m
}

func (p *fakePeer) nextTstat(t *testing.T) wire.Tstat {
	t.Helper()
	raw := p.next(t)
	m, ok := raw.(wire.Tstat)
	if !ok {
		t.Fatalf("fakePeer: got %T, want Tstat", raw)
	}
	return m
}

func (p *fakePeer) nextTflush(t *testing.T) wire.Tflush {
	t.Helper()
	raw := p.next(t)
	m, ok := raw.(wire.Tflush)
	if !ok {
		t.Fatalf("fakePeer: got %T, want Tflush", raw)
	}
	return m
}

// TestCallContextCancellationFlushesTag drives a cancellation mid-call
// through a fake peer that never answers the stalled request, and
// confirms: call() returns ctx's error rather than hanging, the client
// actually emits a Tflush naming the stalled tag (call()'s ctx.Done()
// branch really does invoke flush(), it isn't dead code), and the tag
// is released back to the table once flush() observes Rflush — even
// when a late reply for the original, already-abandoned tag arrives
// afterward.
func TestCallContextCancellationFlushesTag(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	peerReady := make(chan struct{})
	gotStall := make(chan wire.Tstat, 1)
	flushed := make(chan struct{})

	go func() {
		peer := newFakePeer(serverConn)

		tversion := peer.nextTversion(t)
		if err := peer.enc.Rversion(tversion.Msize, wire.Version); err != nil {
			t.Errorf("fakePeer: Rversion: %s", err)
			return
		}

		tattach := peer.nextTattach(t)
		if err := peer.enc.Rattach(tattach.Tag(), wire.Qid{}); err != nil {
			t.Errorf("fakePeer: Rattach: %s", err)
			return
		}
		close(peerReady)

		tstat := peer.nextTstat(t)
		gotStall <- tstat

		tflush := peer.nextTflush(t)
		if tflush.Oldtag != tstat.Tag() {
			t.Errorf("fakePeer: Tflush.Oldtag = %d, want %d", tflush.Oldtag, tstat.Tag())
		}
		if err := peer.enc.Rflush(tflush.Tag()); err != nil {
			t.Errorf("fakePeer: Rflush: %s", err)
			return
		}
		close(flushed)

		// A late reply for the stalled, already-abandoned tag must not
		// wedge or crash the client's read loop.
		_ = peer.enc.Rstat(tstat.Tag(), wire.Stat{Name: "late"})
	}()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	c, err := Dial(dialCtx, clientConn, 8192, "gopher", "")
	if err != nil {
		t.Fatalf("Dial: %s", err)
	}
	defer c.Close()

	<-peerReady

	callCtx, callCancel := context.WithCancel(context.Background())
	go func() {
		<-gotStall
		callCancel()
	}()

	_, err = c.Stat(callCtx, c.RootFid())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Stat() error = %v, want %v", err, context.Canceled)
	}

	select {
	case <-flushed:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Tflush round trip")
	}

	if got := c.tags.Len(); got != 0 {
		t.Fatalf("tags.Len() after cancellation = %d, want 0", got)
	}
}
