package transport

import (
	"context"
	"testing"
	"time"
)

func TestEndpointString(t *testing.T) {
	cases := []struct {
		ep   Endpoint
		want string
	}{
		{TCPEndpoint("localhost:564"), "tcp!localhost:564"},
		{UnixEndpoint("/tmp/ninep.sock"), "unix!/tmp/ninep.sock"},
	}
	for _, c := range cases {
		if got := c.ep.String(); got != c.want {
			t.Errorf("Endpoint.String() = %q, want %q", got, c.want)
		}
	}
}

func TestTCPEndpointRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ln, err := TCPEndpoint("127.0.0.1:0").Listen(ctx)
	if err != nil {
		t.Fatalf("Listen: %s", err)
	}
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 5)
		conn.Read(buf)
	}()

	client, err := TCPEndpoint(ln.Addr().String()).Dial(ctx)
	if err != nil {
		t.Fatalf("Dial: %s", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %s", err)
	}
	<-done
}

func TestPipeListener(t *testing.T) {
	var l PipeListener
	defer l.Close()

	serverDone := make(chan string, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			serverDone <- ""
			return
		}
		defer conn.Close()
		buf := make([]byte, 16)
		n, _ := conn.Read(buf)
		serverDone <- string(buf[:n])
	}()

	client, err := l.Dial()
	if err != nil {
		t.Fatalf("Dial: %s", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatalf("Write: %s", err)
	}
	if got := <-serverDone; got != "ping" {
		t.Errorf("server received %q, want %q", got, "ping")
	}
}

func TestPipeListenerCloseUnblocksAccept(t *testing.T) {
	var l PipeListener
	done := make(chan error, 1)
	go func() {
		_, err := l.Accept()
		done <- err
	}()
	l.Close()
	if err := <-done; err != errListenerClosed {
		t.Fatalf("got %v, want errListenerClosed", err)
	}
}
