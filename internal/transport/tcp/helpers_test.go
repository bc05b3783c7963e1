package tcp

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.WriteTimeout = time.Second
	return cfg
}

func startTestServer(t *testing.T, cfg config.Config) (string, *core.Hub, *Server) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	hub := core.NewHub(nil)
	srv := NewServer(hub, cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		<-served
		srv.Wait(2 * time.Second)
	})
	return ln.Addr().String(), hub, srv
}

type testConn struct {
	t    *testing.T
	conn net.Conn
	dec  *proto.Decoder
	name string
}

func dial(t *testing.T, addr, name string) *testConn {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &testConn{t: t, conn: conn, dec: proto.NewDecoder(conn, 0), name: name}
}

func (c *testConn) send(cmd proto.Command, room, receiver, message string) {
	c.t.Helper()

	req := proto.Request{
		Command:    cmd,
		ClientName: c.name,
		RoomName:   room,
		Receiver:   receiver,
		Message:    message,
	}
	if err := proto.WriteRequest(c.conn, req); err != nil {
		c.t.Fatalf("write %s: %v", cmd, err)
	}
}

// expect reads replies until one contains want.
func (c *testConn) expect(want string) string {
	c.t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()
	for {
		text, err := c.dec.NextReply()
		if err != nil {
			c.t.Fatalf("%s: waiting for %q: %v", c.name, want, err)
		}
		if strings.Contains(text, want) {
			return text
		}
	}
}

func (c *testConn) expectNothing() {
	c.t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	defer func() { _ = c.conn.SetReadDeadline(time.Time{}) }()
	if text, err := c.dec.NextReply(); err == nil {
		c.t.Fatalf("%s: unexpected reply %q", c.name, text)
	}
}

// expectClosed waits for the server to close the connection.
func (c *testConn) expectClosed() {
	c.t.Helper()

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, err := c.dec.NextReply()
		if err == nil {
			continue
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			c.t.Fatalf("%s: connection still open", c.name)
		}
		return
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
