package service

import (
	"context"

	"github.com/learnsphere/chat-service/internal/domain"
	"github.com/learnsphere/chat-service/internal/hub"
)

// ChatService owns room lifecycle, message relay, read receipts and the
// thin read paths.
type ChatService interface {
	// EnsureRoom idempotently creates the room for a student-tutor pair.
	EnsureRoom(ctx context.Context, studentID, tutorID string) (string, error)

	// WebSocket event handlers.
	HandleJoinRoom(ctx context.Context, client *hub.Client, roomID string) error
	HandleSendMessage(ctx context.Context, client *hub.Client, msg *domain.SendMessageWS) error
	HandleMarkRead(ctx context.Context, client *hub.Client, roomID, userID string) error

	// Read paths.
	GetHistory(ctx context.Context, roomID string) (*domain.HistoryResponse, error)
	ListTutorRooms(ctx context.Context, tutorID string) ([]domain.RoomSummary, error)

	Stop() error
}
