package core

import (
	"strings"
	"testing"
	"time"
)

func newConnectedClient(t *testing.T, hub *Hub, name string) *Client {
	t.Helper()

	c := NewClient(name+"-conn", "pipe", 32)
	hub.Dispatch(c, Command{Kind: CommandInit, Sender: name})
	return c
}

func mustReply(t *testing.T, c *Client, want string) Reply {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-c.Outbound():
			if strings.Contains(r.Text, want) {
				return r
			}
		case <-deadline:
			t.Fatalf("expected reply containing %q not received", want)
			return Reply{}
		}
	}
}

func expectNoReply(t *testing.T, c *Client) {
	t.Helper()

	select {
	case r := <-c.Outbound():
		t.Fatalf("unexpected reply: %+v", r)
	case <-time.After(20 * time.Millisecond):
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.Outbound():
		default:
			return
		}
	}
}

// checkMembership asserts client in rooms[R] <=> R in clientRooms[client].
func checkMembership(t *testing.T, r *Registry) {
	t.Helper()

	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, room := range r.rooms {
		for member := range room.members {
			if _, ok := r.clientRooms[member][name]; !ok {
				t.Fatalf("%s is in room %s but the reverse index disagrees", member, name)
			}
		}
	}
	for client, joined := range r.clientRooms {
		for name := range joined {
			room, ok := r.rooms[name]
			if !ok || !room.Has(client) {
				t.Fatalf("reverse index puts %s in %s but the room disagrees", client, name)
			}
		}
	}
}
