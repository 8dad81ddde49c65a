package repository

import (
	"context"
	"errors"

	"github.com/learnsphere/chat-service/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("chat room not found")
)

// RoomRepository defines the interface for chat room persistence.
type RoomRepository interface {
	// EnsureRoom creates the room for the pair if it does not exist yet.
	// Idempotent: re-creation attempts succeed without touching an
	// existing room or its message list.
	EnsureRoom(ctx context.Context, studentID, tutorID string) (roomID string, created bool, err error)

	// GetByID returns the full room document.
	GetByID(ctx context.Context, roomID string) (*domain.ChatRoom, error)

	// AppendMessage atomically appends one message to the room's list.
	AppendMessage(ctx context.Context, roomID string, msg domain.Message) error

	// MarkMessagesRead flips is_read on every message not authored by
	// actorID. Returns false, and performs no write at all, when no
	// message qualifies.
	MarkMessagesRead(ctx context.Context, roomID, actorID string) (bool, error)

	// ListRoomsByTutor returns every room the tutor participates in,
	// most recently active first.
	ListRoomsByTutor(ctx context.Context, tutorID string) ([]domain.ChatRoom, error)

	Close(ctx context.Context) error
}
