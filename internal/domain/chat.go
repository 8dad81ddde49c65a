package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrMalformedRoomID = errors.New("malformed room id")

// ChatRoom is one student-tutor conversation, stored as a single document
// with an embedded append-only message list.
type ChatRoom struct {
	RoomID    string    `bson:"_id" json:"room_id"`
	StudentID string    `bson:"student_id" json:"student_id"`
	TutorID   string    `bson:"tutor_id" json:"tutor_id"`
	Messages  []Message `bson:"messages" json:"messages"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Message is owned by its parent ChatRoom and never leaves it. Only the
// IsRead flag is ever mutated after creation.
type Message struct {
	ID         string    `bson:"id" json:"id"`
	SenderID   string    `bson:"sender_id" json:"sender_id"`
	SenderRole Role      `bson:"sender_role" json:"sender_role"`
	Content    string    `bson:"content" json:"content"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
	IsRead     bool      `bson:"is_read" json:"is_read"`
}

// NewRoomID derives the canonical room key for a student-tutor pair.
// The student id always comes first, so both the HTTP create path and the
// relay path agree on the key for the same pair.
func NewRoomID(studentID, tutorID string) string {
	return studentID + "_" + tutorID
}

// ParseRoomID splits a room key back into its participants.
func ParseRoomID(roomID string) (studentID, tutorID string, err error) {
	studentID, tutorID, ok := strings.Cut(roomID, "_")
	if !ok || studentID == "" || tutorID == "" || strings.Contains(tutorID, "_") {
		return "", "", ErrMalformedRoomID
	}
	return studentID, tutorID, nil
}

// EnrichedMessage is a Message with its sender resolved to display identity.
// Sender is nil when resolution failed during a history read.
type EnrichedMessage struct {
	ID         string    `json:"id"`
	Sender     *ActorRef `json:"sender"`
	SenderRole Role      `json:"sender_role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	IsRead     bool      `json:"is_read"`
}

// Enrich attaches a resolved sender to the message.
func (m Message) Enrich(sender *ActorRef) EnrichedMessage {
	return EnrichedMessage{
		ID:         m.ID,
		Sender:     sender,
		SenderRole: m.SenderRole,
		Content:    m.Content,
		Timestamp:  m.Timestamp,
		IsRead:     m.IsRead,
	}
}

// LastMessage is the tail-of-conversation preview in a room summary.
type LastMessage struct {
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	SenderName string    `json:"sender_name"`
}

// RoomSummary is the read-only projection returned by the tutor room listing.
type RoomSummary struct {
	RoomID      string       `json:"room_id"`
	Student     *ActorRef    `json:"student"`
	LastMessage *LastMessage `json:"last_message,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CreateRoomRequest is the body of POST /chat/rooms.
type CreateRoomRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	TutorID string `json:"tutor_id" binding:"required"`
}

// CreateRoomResponse is returned by POST /chat/rooms.
type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}

// HistoryResponse is returned by the room history read.
type HistoryResponse struct {
	RoomID    string            `json:"room_id"`
	StudentID string            `json:"student_id"`
	TutorID   string            `json:"tutor_id"`
	Messages  []EnrichedMessage `json:"messages"`
}
