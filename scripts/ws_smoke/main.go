package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "client name")
	room := flag.String("room", "general", "room name")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	conn := websocket.NetConn(ctx, ws, websocket.MessageBinary)
	defer conn.Close()

	requests := []proto.Request{
		{Command: proto.CommandInit, ClientName: *user},
		{Command: proto.CommandCreateRoom, ClientName: *user, RoomName: *room},
		{Command: proto.CommandJoinRoom, ClientName: *user, RoomName: *room},
		{Command: proto.CommandListMembers, ClientName: *user, RoomName: *room},
	}
	for _, req := range requests {
		if err := proto.WriteRequest(conn, req); err != nil {
			return fmt.Errorf("send %s: %w", req.Command, err)
		}
	}

	dec := proto.NewDecoder(conn, 0)
	for {
		text, err := dec.NextReply()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("Received: %s\n", text)

		if strings.HasPrefix(text, "Members of "+*room) {
			return proto.WriteRequest(conn, proto.Request{
				Command:    proto.CommandDisconnect,
				ClientName: *user,
				Message:    *user + " has left the server",
			})
		}
	}
}
