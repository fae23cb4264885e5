package transport

import (
	"strings"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

// roomEscaper keeps the separator out of ids so distinct pairs never share a room.
var roomEscaper = strings.NewReplacer("%", "%25", "_", "%5F")

// RoomID returns id as it appears inside a room name.
func RoomID(id string) string { return roomEscaper.Replace(id) }

// DirectRoom returns the room shared by a and b; DirectRoom(a, b) == DirectRoom(b, a).
func DirectRoom(a, b domain.UserID) string {
	if b < a {
		a, b = b, a
	}
	return "dm_" + RoomID(a.String()) + "_" + RoomID(b.String())
}

// GroupRoom returns the room of a group.
func GroupRoom(g domain.GroupID) string { return "group_" + g.String() }

// RoomName returns the room of conv.
func RoomName(conv domain.Conversation) string {
	if conv.Kind == domain.Group {
		return GroupRoom(conv.Group)
	}
	return DirectRoom(conv.Self, conv.Peer)
}
