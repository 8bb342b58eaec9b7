// Package transport abstracts the byte-stream connections a Client
// dials and a Server listens on, in the two flavors the reference
// implementation's NetworkEndpoint hierarchy (IPEndpoint,
// UnixEndpoint) supports: TCP/IP and Unix domain sockets. Unlike that
// hierarchy, this package does not wrap net.Conn/net.Listener in a new
// facade — Go's standard library already gives both of those idiomatic,
// minimal interfaces — it only supplies the Endpoint value that picks a
// network family and address, plus a PipeListener for in-process tests.
package transport

import (
	"context"
	"fmt"
	"net"
)

// Network identifies the transport family an Endpoint names.
type Network int

const (
	// TCP is a TCP/IP endpoint, dual-stack across IPv4 and IPv6 the way
	// Go's "tcp" network already is.
	TCP Network = iota
	// Unix is a Unix domain socket endpoint.
	Unix
)

func (n Network) String() string {
	switch n {
	case TCP:
		return "tcp"
	case Unix:
		return "unix"
	default:
		return fmt.Sprintf("transport.Network(%d)", n)
	}
}

// An Endpoint names where a Server listens or a Client dials: either a
// host:port pair reachable over TCP, or a filesystem path naming a Unix
// domain socket.
type Endpoint struct {
	Net     Network
	Address string // "host:port" for TCP, a socket path for Unix
}

// TCPEndpoint returns an Endpoint naming a TCP host:port address.
func TCPEndpoint(address string) Endpoint {
	return Endpoint{Net: TCP, Address: address}
}

// UnixEndpoint returns an Endpoint naming a Unix domain socket path.
func UnixEndpoint(path string) Endpoint {
	return Endpoint{Net: Unix, Address: path}
}

func (e Endpoint) String() string {
	return e.Net.String() + "!" + e.Address
}

// Dial connects to e, honoring ctx's deadline and cancellation.
func (e Endpoint) Dial(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, e.Net.String(), e.Address)
}

// Listen opens a listener bound to e.
func (e Endpoint) Listen(ctx context.Context) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, e.Net.String(), e.Address)
}
