package tcp

import (
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

var commandKinds = map[proto.Command]core.CommandKind{
	proto.CommandInit:          core.CommandInit,
	proto.CommandCreateRoom:    core.CommandCreateRoom,
	proto.CommandJoinRoom:      core.CommandJoinRoom,
	proto.CommandLeaveRoom:     core.CommandLeaveRoom,
	proto.CommandRoomMessage:   core.CommandSendRoomMessage,
	proto.CommandDirectMessage: core.CommandSendDirectMessage,
	proto.CommandListRooms:     core.CommandListRooms,
	proto.CommandListMembers:   core.CommandListRoomMembers,
	proto.CommandDisconnect:    core.CommandDisconnect,
}

func requestToCommand(sender string, req proto.Request) core.Command {
	kind, ok := commandKinds[req.Command]
	if !ok {
		kind = core.CommandUnknown
	}
	return core.Command{
		Kind:     kind,
		Sender:   sender,
		Room:     req.RoomName,
		Receiver: req.Receiver,
		Text:     req.Message,
		Name:     string(req.Command),
	}
}
