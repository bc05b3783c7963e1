package proto

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyLine is returned by ParseLine for blank input.
var ErrEmptyLine = errors.New("empty line")

// ParseLine turns an interactive command line such as
// "SENDMESSAGE lobby hello there" into a request from client.
func ParseLine(client, line string) (Request, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Request{}, ErrEmptyLine
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	req := Request{Command: Command(strings.ToUpper(cmd)), ClientName: client}

	switch req.Command {
	case CommandCreateRoom, CommandJoinRoom, CommandLeaveRoom, CommandListMembers:
		if rest == "" {
			return Request{}, fmt.Errorf("usage: %s <room>", req.Command)
		}
		req.RoomName = rest
	case CommandRoomMessage:
		room, text, ok := strings.Cut(rest, " ")
		if !ok || room == "" || strings.TrimSpace(text) == "" {
			return Request{}, fmt.Errorf("usage: %s <room> <message>", req.Command)
		}
		req.RoomName = room
		req.Message = strings.TrimSpace(text)
	case CommandDirectMessage:
		receiver, text, ok := strings.Cut(rest, " ")
		if !ok || receiver == "" || strings.TrimSpace(text) == "" {
			return Request{}, fmt.Errorf("usage: %s <receiver> <message>", req.Command)
		}
		req.Receiver = receiver
		req.Message = strings.TrimSpace(text)
	case CommandListRooms, CommandInit:
	case CommandDisconnect:
		req.Message = client + " has left the server"
	default:
		return Request{}, fmt.Errorf("invalid command %q", cmd)
	}
	return req, nil
}
