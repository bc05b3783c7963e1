package core

import (
	"fmt"
	"strings"
)

// Reply is an outbound text payload addressed to one client name.
type Reply struct {
	To   string
	Text string
}

func createdRoomText(room string) string {
	return "Successfully created chatroom " + room
}

func joinedRoomText(room string) string {
	return "Successfully joined chatroom " + room
}

func alreadyJoinedText(room string) string {
	return "You are already in chatroom " + room
}

func joinNoticeText(client, room string) string {
	return fmt.Sprintf("%s joined chatroom %s", client, room)
}

func leaveNoticeText(client, room string) string {
	return fmt.Sprintf("%s left chatroom %s", client, room)
}

func leftRoomText(room string) string {
	return "You left chatroom " + room
}

func roomMessageText(sender, room, text string) string {
	return fmt.Sprintf("%s from %s says: %s", sender, room, text)
}

func directMessageText(sender, text string) string {
	return fmt.Sprintf("%s says to you: %s", sender, text)
}

func roomListText(rooms []string) string {
	if len(rooms) == 0 {
		return "No chatrooms available"
	}
	return "Chatrooms: " + strings.Join(rooms, ", ")
}

func memberListText(room string, members []string) string {
	return fmt.Sprintf("Members of %s: %s", room, strings.Join(members, ", "))
}
