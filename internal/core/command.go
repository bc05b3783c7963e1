package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandUnknown carries a command name the server does not understand.
	CommandUnknown CommandKind = iota
	// CommandInit registers the sender.
	CommandInit
	// CommandCreateRoom creates a room with the sender as first member.
	CommandCreateRoom
	// CommandJoinRoom subscribes the client to a room.
	CommandJoinRoom
	// CommandLeaveRoom unsubscribes the client from a room.
	CommandLeaveRoom
	// CommandSendRoomMessage delivers a chat message to room participants.
	CommandSendRoomMessage
	// CommandSendDirectMessage delivers a chat message to one client.
	CommandSendDirectMessage
	// CommandListRooms replies with every room name.
	CommandListRooms
	// CommandListRoomMembers replies with the members of a room.
	CommandListRoomMembers
	// CommandDisconnect ends the session.
	CommandDisconnect
)

var commandKindNames = map[CommandKind]string{
	CommandUnknown:           "unknown",
	CommandInit:              "init",
	CommandCreateRoom:        "create_room",
	CommandJoinRoom:          "join_room",
	CommandLeaveRoom:         "leave_room",
	CommandSendRoomMessage:   "room_message",
	CommandSendDirectMessage: "direct_message",
	CommandListRooms:         "list_rooms",
	CommandListRoomMembers:   "list_room_members",
	CommandDisconnect:        "disconnect",
}

func (k CommandKind) String() string {
	if name, ok := commandKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Sender   string
	Room     string
	Receiver string
	Text     string
	// Name is the wire command name, kept for unknown commands.
	Name string
}
