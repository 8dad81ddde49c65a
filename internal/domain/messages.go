package domain

// WebSocket message types from client.
const (
	MsgTypeJoinRoom    = "join_room"
	MsgTypeSendMessage = "send_message"
	MsgTypeMarkRead    = "mark_messages_as_read"
	MsgTypePing        = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeRoomJoined     = "room_joined"
	MsgTypeReceiveMessage = "receive_message"
	MsgTypeMessagesRead   = "messages_marked_as_read"
	MsgTypeError          = "error"
	MsgTypePong           = "pong"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

type JoinRoomMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type SendMessageWS struct {
	Type       string `json:"type"`
	RoomID     string `json:"room_id"`
	SenderID   string `json:"sender_id"`
	Content    string `json:"content"`
	SenderRole string `json:"sender_role"`
}

type MarkReadMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// Server -> Client messages

type RoomJoinedMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type ReceiveMessageOut struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id"`
	Message EnrichedMessage `json:"message"`
}

type MessagesReadOut struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
