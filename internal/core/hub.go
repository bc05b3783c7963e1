package core

import (
	"errors"

	"github.com/rs/zerolog"
)

// Hub owns the client and room registries for the life of the server and
// routes commands from every session against them.
type Hub struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewHub creates a new chat hub instance. A nil logger disables logging.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		registry: NewRegistry(),
		log:      logger,
	}
}

// Registry exposes the hub state.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Register binds name to the origin connection.
func (h *Hub) Register(name string, origin *Client) {
	if prev := h.registry.Register(name, origin); prev != nil {
		h.log.Warn().
			Str("client", name).
			Str("conn_id", origin.ID).
			Str("previous_conn_id", prev.ID).
			Msg("client name taken over by another connection")
	}
}

// Claim binds name to origin unless another connection already holds it.
func (h *Hub) Claim(name string, origin *Client) bool {
	if !h.registry.Claim(name, origin) {
		h.log.Warn().Str("client", name).Str("conn_id", origin.ID).Msg("client name already in use")
		return false
	}
	return true
}

// Dispatch executes cmd on behalf of cmd.Sender, who issued it over origin.
// Replies are queued as a side effect. It returns true when the session
// must close.
func (h *Hub) Dispatch(origin *Client, cmd Command) bool {
	h.log.Debug().
		Str("client", cmd.Sender).
		Str("command", cmd.Kind.String()).
		Str("room", cmd.Room).
		Msg("dispatch")

	if ce := validate(cmd); ce != nil {
		h.replyError(origin, cmd.Sender, ce)
		return false
	}

	switch cmd.Kind {
	case CommandInit:
		h.Register(cmd.Sender, origin)
	case CommandCreateRoom:
		h.createRoom(origin, cmd)
	case CommandJoinRoom:
		h.joinRoom(origin, cmd)
	case CommandLeaveRoom:
		h.leaveRoom(origin, cmd)
	case CommandSendRoomMessage:
		h.sendRoomMessage(origin, cmd)
	case CommandSendDirectMessage:
		h.sendDirectMessage(cmd)
	case CommandListRooms:
		h.reply(origin, cmd.Sender, roomListText(h.registry.ListRooms()))
	case CommandListRoomMembers:
		h.listMembers(origin, cmd)
	case CommandDisconnect:
		h.Disconnect(cmd.Sender, origin)
		return true
	default:
		h.replyError(origin, cmd.Sender, coreError(ErrCodeUnknownCommand, "Unknown command "+cmd.Name))
	}
	return false
}

func validate(cmd Command) *CoreError {
	switch cmd.Kind {
	case CommandCreateRoom, CommandJoinRoom, CommandLeaveRoom, CommandSendRoomMessage, CommandListRoomMembers:
		if cmd.Room == "" {
			return coreError(ErrCodeBadRequest, "room_name is required")
		}
	case CommandSendDirectMessage:
		if cmd.Receiver == "" {
			return coreError(ErrCodeBadRequest, "receiver is required")
		}
	}
	return nil
}

func (h *Hub) createRoom(origin *Client, cmd Command) {
	if err := h.registry.CreateRoom(cmd.Room, cmd.Sender); err != nil {
		h.replyError(origin, cmd.Sender, roomError(err, cmd.Room))
		return
	}
	h.log.Info().Str("client", cmd.Sender).Str("room", cmd.Room).Msg("room created")
	h.reply(origin, cmd.Sender, createdRoomText(cmd.Room))
}

func (h *Hub) joinRoom(origin *Client, cmd Command) {
	added, err := h.registry.JoinRoom(cmd.Room, cmd.Sender)
	if err != nil {
		h.replyError(origin, cmd.Sender, roomError(err, cmd.Room))
		return
	}
	if !added {
		h.reply(origin, cmd.Sender, alreadyJoinedText(cmd.Room))
		return
	}
	h.broadcast(cmd.Room, cmd.Sender, joinNoticeText(cmd.Sender, cmd.Room))
	h.reply(origin, cmd.Sender, joinedRoomText(cmd.Room))
}

func (h *Hub) leaveRoom(origin *Client, cmd Command) {
	if err := h.registry.LeaveRoom(cmd.Room, cmd.Sender); err != nil {
		h.replyError(origin, cmd.Sender, roomError(err, cmd.Room))
		return
	}
	h.broadcast(cmd.Room, cmd.Sender, leaveNoticeText(cmd.Sender, cmd.Room))
	h.reply(origin, cmd.Sender, leftRoomText(cmd.Room))
}

func (h *Hub) sendRoomMessage(origin *Client, cmd Command) {
	member, err := h.registry.IsMember(cmd.Room, cmd.Sender)
	if err == nil && !member {
		err = ErrNotInRoom
	}
	if err != nil {
		h.replyError(origin, cmd.Sender, roomError(err, cmd.Room))
		return
	}
	h.broadcast(cmd.Room, cmd.Sender, roomMessageText(cmd.Sender, cmd.Room, cmd.Text))
}

func (h *Hub) sendDirectMessage(cmd Command) {
	if _, err := h.registry.Lookup(cmd.Sender); err != nil {
		// No handle to answer on: the sender never registered.
		h.log.Warn().
			Str("client", cmd.Sender).
			Str("receiver", cmd.Receiver).
			Msg("direct message from unregistered sender dropped")
		return
	}

	err := h.registry.Send(cmd.Receiver, directMessageText(cmd.Sender, cmd.Text))
	switch {
	case err == nil:
	case errors.Is(err, ErrClientNotFound):
		h.replyError(nil, cmd.Sender, coreError(ErrCodeUnknownReceiver, "Client "+cmd.Receiver+" is not online"))
	default:
		h.log.Warn().Err(err).Str("client", cmd.Sender).Str("receiver", cmd.Receiver).Msg("direct message delivery failed")
		h.replyError(nil, cmd.Sender, coreError(ErrCodeUnknownReceiver, "Could not deliver message to "+cmd.Receiver))
	}
}

func (h *Hub) listMembers(origin *Client, cmd Command) {
	members, err := h.registry.ListMembers(cmd.Room, cmd.Sender)
	switch {
	case err == nil:
		h.reply(origin, cmd.Sender, memberListText(cmd.Room, members))
	case errors.Is(err, ErrNotInRoom), errors.Is(err, ErrRoomNotFound):
		// Nobody is a member of a missing room.
		h.replyError(origin, cmd.Sender, coreError(ErrCodeNotInRoom, "You are not a member of chatroom "+cmd.Room+", join first"))
	default:
		h.replyError(origin, cmd.Sender, roomError(err, cmd.Room))
	}
}

// Disconnect removes name from every room and from the client registry,
// provided owner still holds the name. Remaining members are told it left.
func (h *Hub) Disconnect(name string, owner *Client) {
	left, evicted := h.registry.Evict(name, owner)
	if !evicted {
		h.log.Debug().Str("client", name).Msg("name owned by another connection, skipping eviction")
		return
	}
	for _, room := range left {
		h.broadcast(room, name, leaveNoticeText(name, room))
	}
	h.log.Info().Str("client", name).Strs("rooms", left).Msg("client disconnected")
}

func (h *Hub) broadcast(room, skip, text string) int {
	delivered, err := h.registry.Broadcast(room, skip, text, func(member string, err error) {
		h.log.Warn().Err(err).Str("room", room).Str("client", member).Msg("broadcast delivery failed")
	})
	if err != nil {
		h.log.Warn().Err(err).Str("room", room).Msg("broadcast to missing room")
	}
	return delivered
}

// reply addresses text to name, falling back to origin when name is not
// registered to any connection.
func (h *Hub) reply(origin *Client, name, text string) {
	err := h.registry.Send(name, text)
	if errors.Is(err, ErrClientNotFound) && origin != nil {
		err = origin.Deliver(Reply{To: name, Text: text})
	}
	if err != nil {
		h.log.Warn().Err(err).Str("client", name).Msg("reply delivery failed")
	}
}

func (h *Hub) replyError(origin *Client, name string, ce *CoreError) {
	h.log.Debug().Str("client", name).Str("code", ce.Code).Msg(ce.Message)
	h.reply(origin, name, ce.Message)
}

func roomError(err error, room string) *CoreError {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return coreError(ErrCodeRoomNotFound, "Chatroom "+room+" does not exist")
	case errors.Is(err, ErrRoomExists):
		return coreError(ErrCodeRoomExists, "Chatroom "+room+" already exists")
	case errors.Is(err, ErrNotInRoom):
		return coreError(ErrCodeNotInRoom, "You are not a member of chatroom "+room)
	default:
		return coreError(ErrCodeBadRequest, err.Error())
	}
}
