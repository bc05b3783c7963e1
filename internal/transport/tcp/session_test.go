package tcp

import (
	"encoding/binary"
	"reflect"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func TestSessionChatScenario(t *testing.T) {
	addr, _, _ := startTestServer(t, testConfig())

	alice := dial(t, addr, "alice")
	bob := dial(t, addr, "bob")

	alice.send(proto.CommandInit, "", "", "")
	bob.send(proto.CommandInit, "", "", "")

	alice.send(proto.CommandCreateRoom, "lobby", "", "")
	alice.expect("Successfully created chatroom lobby")

	bob.send(proto.CommandJoinRoom, "lobby", "", "")
	bob.expect("Successfully joined chatroom lobby")
	alice.expect("bob joined chatroom lobby")

	bob.send(proto.CommandRoomMessage, "lobby", "", "hello")
	alice.expect("bob from lobby says: hello")
	bob.expectNothing()

	alice.send(proto.CommandDirectMessage, "", "bob", "psst")
	bob.expect("alice says to you: psst")

	alice.send(proto.CommandListRooms, "", "", "")
	alice.expect("Chatrooms: lobby")

	bob.send(proto.CommandListMembers, "lobby", "", "")
	bob.expect("Members of lobby: alice, bob")
}

func TestSessionFragmentedFrame(t *testing.T) {
	addr, hub, _ := startTestServer(t, testConfig())
	alice := dial(t, addr, "alice")

	frame, err := proto.EncodeRequest(proto.Request{
		Command:    proto.CommandCreateRoom,
		ClientName: "alice",
		RoomName:   "slow",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, b := range frame {
		if _, err := alice.conn.Write([]byte{b}); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	alice.expect("Successfully created chatroom slow")
	if rooms := hub.Registry().ListRooms(); !reflect.DeepEqual(rooms, []string{"slow"}) {
		t.Fatalf("unexpected rooms %v", rooms)
	}
}

func TestSessionProtocolErrorClosesOnlyThatConnection(t *testing.T) {
	addr, hub, _ := startTestServer(t, testConfig())

	good := dial(t, addr, "good")
	good.send(proto.CommandCreateRoom, "lobby", "", "")
	good.expect("Successfully created chatroom lobby")

	bad := dial(t, addr, "bad")
	bad.send(proto.CommandJoinRoom, "lobby", "", "")
	good.expect("bad joined chatroom lobby")

	payload := []byte("not json")
	header := make([]byte, proto.HeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))
	if _, err := bad.conn.Write(append(header, payload...)); err != nil {
		t.Fatalf("write: %v", err)
	}
	bad.expect("Protocol error")
	bad.expectClosed()

	good.expect("bad left chatroom lobby")
	waitFor(t, "bad to be unregistered", func() bool {
		_, err := hub.Registry().Lookup("bad")
		return err != nil
	})

	good.send(proto.CommandListRooms, "", "", "")
	good.expect("Chatrooms: lobby")
}

func TestSessionOversizedFrameIsRejected(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFrameSize = 64
	addr, _, _ := startTestServer(t, cfg)

	c := dial(t, addr, "big")
	header := make([]byte, proto.HeaderSize)
	binary.BigEndian.PutUint32(header, 1<<20)
	if _, err := c.conn.Write(header); err != nil {
		t.Fatalf("write: %v", err)
	}
	c.expectClosed()
}

func TestSessionEOFRemovesClientFromRooms(t *testing.T) {
	addr, hub, srv := startTestServer(t, testConfig())

	alice := dial(t, addr, "alice")
	bob := dial(t, addr, "bob")
	alice.send(proto.CommandCreateRoom, "lobby", "", "")
	alice.expect("Successfully created chatroom lobby")
	bob.send(proto.CommandJoinRoom, "lobby", "", "")
	alice.expect("bob joined chatroom lobby")

	_ = bob.conn.Close()

	alice.expect("bob left chatroom lobby")
	waitFor(t, "bob session to end", func() bool { return srv.ActiveSessions() == 1 })
	if rooms := hub.Registry().RoomsOf("bob"); len(rooms) != 0 {
		t.Fatalf("bob still in %v", rooms)
	}
	if clients := hub.Registry().Clients(); !reflect.DeepEqual(clients, []string{"alice"}) {
		t.Fatalf("unexpected clients %v", clients)
	}
}

func TestSessionDisconnectCommand(t *testing.T) {
	addr, hub, _ := startTestServer(t, testConfig())

	alice := dial(t, addr, "alice")
	bob := dial(t, addr, "bob")
	alice.send(proto.CommandCreateRoom, "lobby", "", "")
	alice.expect("Successfully created chatroom lobby")
	bob.send(proto.CommandJoinRoom, "lobby", "", "")
	alice.expect("bob joined chatroom lobby")

	bob.send(proto.CommandDisconnect, "", "", "bob has left the server")
	bob.expectClosed()
	alice.expect("bob left chatroom lobby")

	members, err := hub.Registry().ListMembers("lobby", "alice")
	if err != nil || !reflect.DeepEqual(members, []string{"alice"}) {
		t.Fatalf("members: %v %v", members, err)
	}
}

func TestSessionUnknownCommandKeepsConnection(t *testing.T) {
	addr, _, _ := startTestServer(t, testConfig())

	c := dial(t, addr, "alice")
	c.send(proto.Command("SHOUT"), "", "", "")
	c.expect("Unknown command SHOUT")

	c.send(proto.CommandListRooms, "", "", "")
	c.expect("No chatrooms available")
}

func TestSessionTakeoverKeepsNewOwner(t *testing.T) {
	addr, hub, _ := startTestServer(t, testConfig())

	first := dial(t, addr, "alice")
	first.send(proto.CommandCreateRoom, "lobby", "", "")
	first.expect("Successfully created chatroom lobby")

	second := dial(t, addr, "alice")
	second.send(proto.CommandListRooms, "", "", "")
	second.expect("Chatrooms: lobby")

	_ = first.conn.Close()
	time.Sleep(50 * time.Millisecond)

	if rooms := hub.Registry().RoomsOf("alice"); !reflect.DeepEqual(rooms, []string{"lobby"}) {
		t.Fatalf("stale connection evicted the new owner, rooms=%v", rooms)
	}
	second.send(proto.CommandListMembers, "lobby", "", "")
	second.expect("Members of lobby: alice")
}

func TestSessionIdentityPerConnection(t *testing.T) {
	cfg := testConfig()
	cfg.IdentityMode = config.IdentityPerConnection
	addr, hub, _ := startTestServer(t, cfg)

	alice := dial(t, addr, "alice")
	alice.send(proto.CommandInit, "", "", "")
	alice.send(proto.CommandCreateRoom, "lobby", "", "")
	alice.expect("Successfully created chatroom lobby")

	impostor := dial(t, addr, "alice")
	impostor.send(proto.CommandInit, "", "", "")
	impostor.expect("Name alice is already in use")

	// The rejected connection may still pick a free name.
	impostor.name = "mallory"
	impostor.send(proto.CommandInit, "", "", "")
	impostor.send(proto.CommandListRooms, "", "", "")
	impostor.expect("Chatrooms: lobby")

	impostor.name = "bob"
	impostor.send(proto.CommandListRooms, "", "", "")
	impostor.expect("You are connected as mallory")

	if client, err := hub.Registry().Lookup("alice"); err != nil || client == nil {
		t.Fatalf("alice lost the name: %v", err)
	}
	if _, err := hub.Registry().Lookup("bob"); err == nil {
		t.Fatalf("bob must not be registered")
	}
}

func TestSessionRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 2
	addr, _, _ := startTestServer(t, cfg)

	c := dial(t, addr, "alice")
	c.send(proto.CommandListRooms, "", "", "")
	c.send(proto.CommandListRooms, "", "", "")
	c.send(proto.CommandListRooms, "", "", "")
	c.expect("No chatrooms available")
	c.expect("No chatrooms available")
	c.expect("Rate limit exceeded")
}

func TestSessionIdleTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 50 * time.Millisecond
	addr, _, srv := startTestServer(t, cfg)

	c := dial(t, addr, "alice")
	c.send(proto.CommandInit, "", "", "")
	c.expectClosed()
	waitFor(t, "session to end", func() bool { return srv.ActiveSessions() == 0 })
}
