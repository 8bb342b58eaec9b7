// Package ninep implements the server side of the protocol: a Server
// accepts connections, negotiates a version per connection, and
// dispatches each incoming request against a namespace tree, replying
// sequentially in the order requests were received, as spec'd for a
// single connection's session loop.
//
// The accept loop's exponential-backoff retry on transient Accept
// errors is carried over from droyo-styx's (*server).serve, down to
// using the same aqwari.net/retry package; logging goes through a
// Printf-only Logger interface, the same shape as droyo-styx's, which
// *logrus.Logger satisfies.
package ninep

import (
	"context"
	"net"
	"time"

	"aqwari.net/retry"

	"github.com/ninelib/ninep/nsfs"
)

// Logger is satisfied by *logrus.Logger (and *logrus.Entry), and by any
// other structured logger exposing the same minimal surface.
type Logger interface {
	Printf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...interface{}) {}

// A Server dispatches incoming 9P requests against a namespace Tree.
type Server struct {
	Tree   *nsfs.Tree
	Logger Logger

	// MaxMessageSize bounds the msize a connection may negotiate. Zero
	// selects wire.MaxMessageSize.
	MaxMessageSize uint32
}

// NewServer returns a Server exposing tree's namespace.
func NewServer(tree *nsfs.Tree) *Server {
	return &Server{Tree: tree}
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

type temporaryError interface {
	Temporary() bool
}

// Serve accepts connections on ln until it returns a non-temporary
// error or ctx is canceled, handling each connection in its own
// goroutine. Temporary Accept errors (e.g. a transient file descriptor
// exhaustion) are retried with exponential backoff rather than killing
// the listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	backoff := retry.Exponential(5 * time.Millisecond).Max(time.Second)
	try := 0

	for {
		rwc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if te, ok := err.(temporaryError); ok && te.Temporary() {
				try++
				d := backoff(try)
				s.logf("ninep: accept error: %v; retrying in %v", err, d)
				select {
				case <-time.After(d):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return err
		}
		try = 0
		c := newConn(s, rwc)
		go c.serve(ctx)
	}
}
