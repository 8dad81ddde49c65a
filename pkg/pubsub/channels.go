package pubsub

import "fmt"

// Channel naming conventions for chat room fan-out.
const (
	ChannelRoomEvents = "chat:room:%s:events"
)

// Event types carried on room channels.
const (
	EventReceiveMessage = "receive_message"
	EventMessagesRead   = "messages_marked_as_read"
)

// RoomEventsChannel returns the fan-out channel name for a room.
func RoomEventsChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomEvents, roomID)
}

// RoomEventsPattern matches the event channels of every room.
func RoomEventsPattern() string {
	return fmt.Sprintf(ChannelRoomEvents, "*")
}
