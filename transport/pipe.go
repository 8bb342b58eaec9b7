package transport

import (
	"errors"
	"net"
	"sync"
)

// errListenerClosed is returned by Accept after Close.
var errListenerClosed = errors.New("transport: listener closed")

// A PipeListener is a net.Listener backed by net.Pipe, requiring no
// socket or port, for use in tests that want a real Server/Client pair
// talking over something that behaves like a stream connection. It is
// adapted from the same pattern droyo-styx's internal/netutil package
// uses for its own server tests.
type PipeListener struct {
	once     sync.Once
	incoming chan net.Conn
	shutdown chan struct{}
}

func (l *PipeListener) init() {
	l.once.Do(func() {
		l.incoming = make(chan net.Conn)
		l.shutdown = make(chan struct{})
	})
}

// Accept blocks until Dial is called on the same PipeListener, or the
// listener is closed.
func (l *PipeListener) Accept() (net.Conn, error) {
	l.init()
	select {
	case c := <-l.incoming:
		return c, nil
	case <-l.shutdown:
		return nil, errListenerClosed
	}
}

// Dial returns the client half of a fresh in-process pipe connection,
// handing the server half to a concurrent Accept call.
func (l *PipeListener) Dial() (net.Conn, error) {
	l.init()
	client, server := net.Pipe()
	select {
	case <-l.shutdown:
		client.Close()
		server.Close()
		return nil, errListenerClosed
	case l.incoming <- server:
		return client, nil
	}
}

// Close causes pending and future Accept calls to return
// errListenerClosed.
func (l *PipeListener) Close() error {
	l.init()
	select {
	case <-l.shutdown:
	default:
		close(l.shutdown)
	}
	return nil
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }

// Addr returns a placeholder net.Addr; PipeListener connections have no
// real network address.
func (l *PipeListener) Addr() net.Addr {
	return pipeAddr{}
}
