package proto

// Command names a client instruction on the wire.
type Command string

const (
	CommandInit          Command = "CLIENTINIT"
	CommandCreateRoom    Command = "CREATECHATROOM"
	CommandJoinRoom      Command = "JOINCHATROOM"
	CommandLeaveRoom     Command = "LEAVECHATROOM"
	CommandRoomMessage   Command = "SENDMESSAGE"
	CommandDirectMessage Command = "SENDDIRECTMESSAGE"
	CommandListRooms     Command = "LISTCHATROOMS"
	CommandListMembers   Command = "LISTCHATROOMCLIENTS"
	CommandDisconnect    Command = "DISCONNECT"
)

// Commands lists every command the server understands.
var Commands = []Command{
	CommandInit,
	CommandCreateRoom,
	CommandJoinRoom,
	CommandLeaveRoom,
	CommandRoomMessage,
	CommandDirectMessage,
	CommandListRooms,
	CommandListMembers,
	CommandDisconnect,
}

// Known reports whether c is one of Commands.
func (c Command) Known() bool {
	for _, known := range Commands {
		if c == known {
			return true
		}
	}
	return false
}

// Request is the body of one inbound frame.
type Request struct {
	Command    Command `json:"command"`
	ClientName string  `json:"clientname"`
	Message    string  `json:"message,omitempty"`
	RoomName   string  `json:"room_name,omitempty"`
	Receiver   string  `json:"receiver,omitempty"`
}
