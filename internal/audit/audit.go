package audit

import (
	"context"

	"github.com/learnsphere/chat-service/pkg/log"
)

// Audit actions for the chat service.
const (
	ActionCreateRoom   = "chat.room_create"
	ActionRelayMessage = "chat.message_relay"
	ActionMarkRead     = "chat.messages_read"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, actorID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, actorID).
		Msg(msg)
}

// LogWithRoom emits an audit log scoped to a room.
func LogWithRoom(ctx context.Context, action string, actorID, roomID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, actorID).
		Str(log.FieldRoomID, roomID).
		Msg(msg)
}
