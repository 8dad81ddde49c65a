package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/learnsphere/chat-service/internal/audit"
	"github.com/learnsphere/chat-service/internal/domain"
	"github.com/learnsphere/chat-service/internal/hub"
	"github.com/learnsphere/chat-service/internal/identity"
	"github.com/learnsphere/chat-service/internal/kafka"
	"github.com/learnsphere/chat-service/internal/repository"
	"github.com/learnsphere/chat-service/pkg/log"
	pkgpubsub "github.com/learnsphere/chat-service/pkg/pubsub"
)

var (
	ErrRoomNotFound  = errors.New("chat room not found")
	ErrActorNotFound = errors.New("sender not found")
)

type chatService struct {
	repo     repository.RoomRepository
	resolver identity.Resolver
	bus      pkgpubsub.Publisher
	producer kafka.EventProducer
	sf       singleflight.Group
}

// NewChatService creates the chat service.
func NewChatService(
	repo repository.RoomRepository,
	resolver identity.Resolver,
	bus pkgpubsub.Publisher,
	producer kafka.EventProducer,
) ChatService {
	return &chatService{
		repo:     repo,
		resolver: resolver,
		bus:      bus,
		producer: producer,
	}
}

// EnsureRoom lazily creates the room for a pair. Both the HTTP create path
// and the relay go through here, so there is exactly one creation path and
// no degenerate single-participant rooms.
func (s *chatService) EnsureRoom(ctx context.Context, studentID, tutorID string) (string, error) {
	roomID, created, err := s.repo.EnsureRoom(ctx, studentID, tutorID)
	if err != nil {
		return "", err
	}
	if created {
		audit.LogWithRoom(ctx, audit.ActionCreateRoom, studentID, roomID, "chat room created")
	}
	return roomID, nil
}

func (s *chatService) HandleJoinRoom(ctx context.Context, c *hub.Client, roomID string) error {
	if _, _, err := domain.ParseRoomID(roomID); err != nil {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "malformed room id"))
	}

	c.Hub.JoinRoom(c, roomID)

	return c.SendMessage(&domain.RoomJoinedMessage{
		Type:   domain.MsgTypeRoomJoined,
		RoomID: roomID,
	})
}

// HandleSendMessage is the relay: resolve the sender's display identity,
// persist the message, then fan the enriched copy out to the room. The
// sender is resolved before anything is written, so a failed resolution
// leaves no orphan message. Relay failures after input validation are
// logged only; there is no error event back to the sender.
func (s *chatService) HandleSendMessage(ctx context.Context, c *hub.Client, msg *domain.SendMessageWS) error {
	l := log.Ctx(ctx)

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "message content is required"))
	}

	role, err := domain.ParseRole(msg.SenderRole)
	if err != nil {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "sender role must be student or tutor"))
	}

	studentID, tutorID, err := domain.ParseRoomID(msg.RoomID)
	if err != nil {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "malformed room id"))
	}

	expected := studentID
	if role == domain.RoleTutor {
		expected = tutorID
	}
	if msg.SenderID != expected {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "sender is not a participant of the room"))
	}

	roomID, err := s.EnsureRoom(ctx, studentID, tutorID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("failed to ensure room for relay")
		return err
	}

	sender, err := s.resolver.Resolve(ctx, msg.SenderID, role)
	if err != nil {
		if errors.Is(err, identity.ErrActorNotFound) {
			l.Warn().Str(log.FieldUserID, msg.SenderID).Str(log.FieldRole, string(role)).Msg("relay sender not found, message dropped")
			return ErrActorNotFound
		}
		l.Error().Err(err).Str(log.FieldUserID, msg.SenderID).Msg("failed to resolve relay sender")
		return err
	}

	message := domain.Message{
		ID:         uuid.New().String(),
		SenderID:   msg.SenderID,
		SenderRole: role,
		Content:    content,
		Timestamp:  time.Now().UTC(),
		IsRead:     false,
	}

	if err := s.repo.AppendMessage(ctx, roomID, message); err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to persist message, not broadcast")
		return err
	}

	// Broadcast only after the message is durable.
	out := &domain.ReceiveMessageOut{
		Type:    domain.MsgTypeReceiveMessage,
		RoomID:  roomID,
		Message: message.Enrich(sender),
	}
	s.publish(ctx, pkgpubsub.EventReceiveMessage, roomID, out)

	if err := s.producer.ProduceMessageEvent(ctx, roomID, message); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to export message event")
	}

	audit.LogWithRoom(ctx, audit.ActionRelayMessage, msg.SenderID, roomID, "message relayed")
	return nil
}

// HandleMarkRead marks every message not authored by userID as read. When
// nothing qualifies this is a strict no-op: no write, no broadcast.
func (s *chatService) HandleMarkRead(ctx context.Context, c *hub.Client, roomID, userID string) error {
	l := log.Ctx(ctx)

	if _, _, err := domain.ParseRoomID(roomID); err != nil {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "malformed room id"))
	}

	changed, err := s.repo.MarkMessagesRead(ctx, roomID, userID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to mark messages as read")
		return err
	}
	if !changed {
		return nil
	}

	out := &domain.MessagesReadOut{
		Type:   domain.MsgTypeMessagesRead,
		RoomID: roomID,
		UserID: userID,
	}
	s.publish(ctx, pkgpubsub.EventMessagesRead, roomID, out)

	if err := s.producer.ProduceReadEvent(ctx, roomID, userID); err != nil {
		l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to export read event")
	}

	audit.LogWithRoom(ctx, audit.ActionMarkRead, userID, roomID, "messages marked as read")
	return nil
}

// GetHistory returns all of a room's messages with resolved senders.
// Resolution failures yield a null sender rather than failing the call.
func (s *chatService) GetHistory(ctx context.Context, roomID string) (*domain.HistoryResponse, error) {
	result, err, _ := s.sf.Do(roomID, func() (interface{}, error) {
		return s.fetchHistory(ctx, roomID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.HistoryResponse), nil
}

func (s *chatService) fetchHistory(ctx context.Context, roomID string) (*domain.HistoryResponse, error) {
	room, err := s.repo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	messages := make([]domain.EnrichedMessage, 0, len(room.Messages))
	for _, m := range room.Messages {
		messages = append(messages, m.Enrich(s.resolveQuietly(ctx, m.SenderID, m.SenderRole)))
	}

	return &domain.HistoryResponse{
		RoomID:    room.RoomID,
		StudentID: room.StudentID,
		TutorID:   room.TutorID,
		Messages:  messages,
	}, nil
}

// ListTutorRooms builds the tutor's conversation overview: the student's
// resolved name plus a preview of the last message per room.
func (s *chatService) ListTutorRooms(ctx context.Context, tutorID string) ([]domain.RoomSummary, error) {
	rooms, err := s.repo.ListRoomsByTutor(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summary := domain.RoomSummary{
			RoomID:    room.RoomID,
			Student:   s.resolveQuietly(ctx, room.StudentID, domain.RoleStudent),
			UpdatedAt: room.UpdatedAt,
		}

		if n := len(room.Messages); n > 0 {
			last := room.Messages[n-1]
			preview := domain.LastMessage{
				Content:   last.Content,
				Timestamp: last.Timestamp,
			}
			if sender := s.resolveQuietly(ctx, last.SenderID, last.SenderRole); sender != nil {
				preview.SenderName = sender.Name
			}
			summary.LastMessage = &preview
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (s *chatService) Stop() error {
	if err := s.producer.Close(); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to close kafka producer")
	}
	return nil
}

// resolveQuietly resolves an actor for a read path, degrading to nil on
// any failure.
func (s *chatService) resolveQuietly(ctx context.Context, actorID string, role domain.Role) *domain.ActorRef {
	actor, err := s.resolver.Resolve(ctx, actorID, role)
	if err != nil {
		if !errors.Is(err, identity.ErrActorNotFound) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldUserID, actorID).Msg("actor resolution failed on read path")
		}
		return nil
	}
	return actor
}

func (s *chatService) publish(ctx context.Context, eventType, roomID string, payload interface{}) {
	l := log.Ctx(ctx)

	event, err := pkgpubsub.NewEvent(eventType, roomID, payload)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to build room event")
		return
	}
	if err := s.bus.Publish(ctx, pkgpubsub.RoomEventsChannel(roomID), event); err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to publish room event")
	}
}
