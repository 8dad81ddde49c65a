package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/chat-service/internal/config"
	"github.com/learnsphere/chat-service/internal/domain"
	"github.com/learnsphere/chat-service/internal/hub"
	"github.com/learnsphere/chat-service/internal/identity"
	"github.com/learnsphere/chat-service/internal/repository"
	pkgpubsub "github.com/learnsphere/chat-service/pkg/pubsub"
)

// fakeRoomRepo is an in-memory RoomRepository.
type fakeRoomRepo struct {
	rooms     map[string]*domain.ChatRoom
	appendErr error
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[string]*domain.ChatRoom)}
}

func (r *fakeRoomRepo) EnsureRoom(_ context.Context, studentID, tutorID string) (string, bool, error) {
	roomID := domain.NewRoomID(studentID, tutorID)
	if _, ok := r.rooms[roomID]; ok {
		return roomID, false, nil
	}
	now := time.Now().UTC()
	r.rooms[roomID] = &domain.ChatRoom{
		RoomID:    roomID,
		StudentID: studentID,
		TutorID:   tutorID,
		Messages:  []domain.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return roomID, true, nil
}

func (r *fakeRoomRepo) GetByID(_ context.Context, roomID string) (*domain.ChatRoom, error) {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return room, nil
}

func (r *fakeRoomRepo) AppendMessage(_ context.Context, roomID string, msg domain.Message) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	room, ok := r.rooms[roomID]
	if !ok {
		return repository.ErrRoomNotFound
	}
	room.Messages = append(room.Messages, msg)
	room.UpdatedAt = msg.Timestamp
	return nil
}

func (r *fakeRoomRepo) MarkMessagesRead(_ context.Context, roomID, actorID string) (bool, error) {
	room, ok := r.rooms[roomID]
	if !ok {
		return false, nil
	}
	changed := false
	for i := range room.Messages {
		if room.Messages[i].SenderID != actorID && !room.Messages[i].IsRead {
			room.Messages[i].IsRead = true
			changed = true
		}
	}
	if changed {
		room.UpdatedAt = time.Now().UTC()
	}
	return changed, nil
}

func (r *fakeRoomRepo) ListRoomsByTutor(_ context.Context, tutorID string) ([]domain.ChatRoom, error) {
	var out []domain.ChatRoom
	for _, room := range r.rooms {
		if room.TutorID == tutorID {
			out = append(out, *room)
		}
	}
	return out, nil
}

func (r *fakeRoomRepo) Close(_ context.Context) error { return nil }

// fakeResolver resolves from a fixed actor table.
type fakeResolver struct {
	actors map[string]*domain.ActorRef // role:id -> actor
}

func (f *fakeResolver) Resolve(_ context.Context, actorID string, role domain.Role) (*domain.ActorRef, error) {
	actor, ok := f.actors[string(role)+":"+actorID]
	if !ok {
		return nil, identity.ErrActorNotFound
	}
	return actor, nil
}

// fakeBus records published events.
type fakeBus struct {
	events []*pkgpubsub.Event
}

func (b *fakeBus) Publish(_ context.Context, _ string, event *pkgpubsub.Event) error {
	b.events = append(b.events, event)
	return nil
}

// fakeProducer records exported stream events.
type fakeProducer struct {
	messageEvents int
	readEvents    int
}

func (p *fakeProducer) ProduceMessageEvent(_ context.Context, _ string, _ domain.Message) error {
	p.messageEvents++
	return nil
}

func (p *fakeProducer) ProduceReadEvent(_ context.Context, _, _ string) error {
	p.readEvents++
	return nil
}

func (p *fakeProducer) Close() error { return nil }

type fixture struct {
	svc      ChatService
	repo     *fakeRoomRepo
	bus      *fakeBus
	producer *fakeProducer
}

func newFixture() *fixture {
	repo := newFakeRoomRepo()
	resolver := &fakeResolver{actors: map[string]*domain.ActorRef{
		"student:stu1": {ID: "stu1", Name: "Alice"},
		"tutor:tut1":   {ID: "tut1", Name: "Bob"},
	}}
	bus := &fakeBus{}
	producer := &fakeProducer{}
	return &fixture{
		svc:      NewChatService(repo, resolver, bus, producer),
		repo:     repo,
		bus:      bus,
		producer: producer,
	}
}

func newTestClient() *hub.Client {
	cfg := config.WebSocketConfig{}
	return hub.NewClient("test-client", hub.NewHub(cfg), nil, cfg)
}

// receiveEnvelope drains the client send buffer, decoding the next frame.
func receiveEnvelope(t *testing.T, c *hub.Client, v interface{}) {
	t.Helper()
	select {
	case data := <-c.Send:
		require.NoError(t, json.Unmarshal(data, v))
	default:
		t.Fatal("expected a frame on the client send buffer")
	}
}

func assertNoFrame(t *testing.T, c *hub.Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected frame sent to client: %s", data)
	default:
	}
}

func TestEnsureRoomIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.EnsureRoom(ctx, "stu1", "tut1")
	require.NoError(t, err)
	second, err := f.svc.EnsureRoom(ctx, "stu1", "tut1")
	require.NoError(t, err)

	assert.Equal(t, "stu1_tut1", first)
	assert.Equal(t, first, second)
	assert.Len(t, f.repo.rooms, 1)
}

func TestHandleJoinRoom(t *testing.T) {
	f := newFixture()
	client := newTestClient()

	require.NoError(t, f.svc.HandleJoinRoom(context.Background(), client, "stu1_tut1"))

	var reply domain.RoomJoinedMessage
	receiveEnvelope(t, client, &reply)
	assert.Equal(t, domain.MsgTypeRoomJoined, reply.Type)
	assert.Equal(t, "stu1_tut1", reply.RoomID)
	assert.Equal(t, 1, client.Hub.RoomClientCount("stu1_tut1"))
}

func TestHandleJoinRoomMalformedID(t *testing.T) {
	f := newFixture()
	client := newTestClient()

	require.NoError(t, f.svc.HandleJoinRoom(context.Background(), client, "no-separator"))

	var reply domain.ErrorMessage
	receiveEnvelope(t, client, &reply)
	assert.Equal(t, domain.MsgTypeError, reply.Type)
	assert.Equal(t, domain.ErrCodeBadRequest, reply.Code)
	assert.Equal(t, 0, client.Hub.RoomClientCount("no-separator"))
}

func TestHandleSendMessagePersistsThenBroadcasts(t *testing.T) {
	f := newFixture()
	client := newTestClient()
	ctx := context.Background()

	err := f.svc.HandleSendMessage(ctx, client, &domain.SendMessageWS{
		RoomID:     "stu1_tut1",
		SenderID:   "stu1",
		SenderRole: "student",
		Content:    "  hello tutor  ",
	})
	require.NoError(t, err)

	// Room was lazily created and the message persisted with trimmed content.
	room := f.repo.rooms["stu1_tut1"]
	require.NotNil(t, room)
	require.Len(t, room.Messages, 1)
	stored := room.Messages[0]
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, "hello tutor", stored.Content)
	assert.Equal(t, domain.RoleStudent, stored.SenderRole)
	assert.False(t, stored.IsRead)

	// The broadcast carries the enriched copy with the resolved sender.
	require.Len(t, f.bus.events, 1)
	assert.Equal(t, pkgpubsub.EventReceiveMessage, f.bus.events[0].Type)
	var out domain.ReceiveMessageOut
	require.NoError(t, f.bus.events[0].UnmarshalPayload(&out))
	assert.Equal(t, domain.MsgTypeReceiveMessage, out.Type)
	assert.Equal(t, "stu1_tut1", out.RoomID)
	require.NotNil(t, out.Message.Sender)
	assert.Equal(t, "Alice", out.Message.Sender.Name)
	assert.Equal(t, stored.ID, out.Message.ID)

	assert.Equal(t, 1, f.producer.messageEvents)
	assertNoFrame(t, client)
}

func TestHandleSendMessageRejectsEmptyContent(t *testing.T) {
	f := newFixture()
	client := newTestClient()

	err := f.svc.HandleSendMessage(context.Background(), client, &domain.SendMessageWS{
		RoomID:     "stu1_tut1",
		SenderID:   "stu1",
		SenderRole: "student",
		Content:    "   ",
	})
	require.NoError(t, err)

	var reply domain.ErrorMessage
	receiveEnvelope(t, client, &reply)
	assert.Equal(t, domain.ErrCodeBadRequest, reply.Code)
	assert.Empty(t, f.repo.rooms)
	assert.Empty(t, f.bus.events)
}

func TestHandleSendMessageRejectsUnknownRole(t *testing.T) {
	f := newFixture()
	client := newTestClient()

	err := f.svc.HandleSendMessage(context.Background(), client, &domain.SendMessageWS{
		RoomID:     "stu1_tut1",
		SenderID:   "stu1",
		SenderRole: "admin",
		Content:    "hi",
	})
	require.NoError(t, err)

	var reply domain.ErrorMessage
	receiveEnvelope(t, client, &reply)
	assert.Equal(t, domain.ErrCodeBadRequest, reply.Code)
	assert.Empty(t, f.repo.rooms)
}

func TestHandleSendMessageRejectsNonParticipant(t *testing.T) {
	f := newFixture()
	client := newTestClient()

	// stu2 is not the student half of stu1_tut1.
	err := f.svc.HandleSendMessage(context.Background(), client, &domain.SendMessageWS{
		RoomID:     "stu1_tut1",
		SenderID:   "stu2",
		SenderRole: "student",
		Content:    "hi",
	})
	require.NoError(t, err)

	var reply domain.ErrorMessage
	receiveEnvelope(t, client, &reply)
	assert.Equal(t, domain.ErrCodeBadRequest, reply.Code)
	assert.Empty(t, f.repo.rooms)
	assert.Empty(t, f.bus.events)
}

func TestHandleSendMessageUnknownSenderPersistsNothing(t *testing.T) {
	f := newFixture()
	client := newTestClient()

	// The pair parses fine but stu9 does not exist in the student store.
	err := f.svc.HandleSendMessage(context.Background(), client, &domain.SendMessageWS{
		RoomID:     "stu9_tut1",
		SenderID:   "stu9",
		SenderRole: "student",
		Content:    "hi",
	})
	require.ErrorIs(t, err, ErrActorNotFound)

	// The sender is resolved before the append, so no orphan message exists.
	room := f.repo.rooms["stu9_tut1"]
	require.NotNil(t, room)
	assert.Empty(t, room.Messages)
	assert.Empty(t, f.bus.events)
	assert.Equal(t, 0, f.producer.messageEvents)
}

func TestHandleSendMessageAppendFailureSkipsBroadcast(t *testing.T) {
	f := newFixture()
	client := newTestClient()
	f.repo.appendErr = assert.AnError

	err := f.svc.HandleSendMessage(context.Background(), client, &domain.SendMessageWS{
		RoomID:     "stu1_tut1",
		SenderID:   "stu1",
		SenderRole: "student",
		Content:    "hi",
	})
	require.Error(t, err)

	assert.Empty(t, f.bus.events)
	assert.Equal(t, 0, f.producer.messageEvents)
	assertNoFrame(t, client)
}

func TestHandleMarkRead(t *testing.T) {
	f := newFixture()
	client := newTestClient()
	ctx := context.Background()

	require.NoError(t, f.svc.HandleSendMessage(ctx, client, &domain.SendMessageWS{
		RoomID:     "stu1_tut1",
		SenderID:   "stu1",
		SenderRole: "student",
		Content:    "hello",
	}))
	f.bus.events = nil

	// The tutor marks the student's message as read.
	require.NoError(t, f.svc.HandleMarkRead(ctx, client, "stu1_tut1", "tut1"))

	assert.True(t, f.repo.rooms["stu1_tut1"].Messages[0].IsRead)
	require.Len(t, f.bus.events, 1)
	assert.Equal(t, pkgpubsub.EventMessagesRead, f.bus.events[0].Type)
	var out domain.MessagesReadOut
	require.NoError(t, f.bus.events[0].UnmarshalPayload(&out))
	assert.Equal(t, domain.MsgTypeMessagesRead, out.Type)
	assert.Equal(t, "tut1", out.UserID)
	assert.Equal(t, 1, f.producer.readEvents)
}

func TestHandleMarkReadIsStrictNoOpWhenNothingQualifies(t *testing.T) {
	f := newFixture()
	client := newTestClient()
	ctx := context.Background()

	require.NoError(t, f.svc.HandleSendMessage(ctx, client, &domain.SendMessageWS{
		RoomID:     "stu1_tut1",
		SenderID:   "stu1",
		SenderRole: "student",
		Content:    "hello",
	}))
	before := f.repo.rooms["stu1_tut1"].UpdatedAt
	f.bus.events = nil

	// The sender marking their own room does not touch their own messages.
	require.NoError(t, f.svc.HandleMarkRead(ctx, client, "stu1_tut1", "stu1"))

	assert.False(t, f.repo.rooms["stu1_tut1"].Messages[0].IsRead)
	assert.Equal(t, before, f.repo.rooms["stu1_tut1"].UpdatedAt)
	assert.Empty(t, f.bus.events)
	assert.Equal(t, 0, f.producer.readEvents)
}

func TestHandleMarkReadMissingRoomIsNoOp(t *testing.T) {
	f := newFixture()
	client := newTestClient()

	require.NoError(t, f.svc.HandleMarkRead(context.Background(), client, "stu1_tut1", "tut1"))

	assert.Empty(t, f.bus.events)
	assert.Equal(t, 0, f.producer.readEvents)
}

func TestGetHistory(t *testing.T) {
	f := newFixture()
	client := newTestClient()
	ctx := context.Background()

	require.NoError(t, f.svc.HandleSendMessage(ctx, client, &domain.SendMessageWS{
		RoomID:     "stu1_tut1",
		SenderID:   "stu1",
		SenderRole: "student",
		Content:    "question",
	}))
	require.NoError(t, f.svc.HandleSendMessage(ctx, client, &domain.SendMessageWS{
		RoomID:     "stu1_tut1",
		SenderID:   "tut1",
		SenderRole: "tutor",
		Content:    "answer",
	}))

	history, err := f.svc.GetHistory(ctx, "stu1_tut1")
	require.NoError(t, err)
	assert.Equal(t, "stu1", history.StudentID)
	assert.Equal(t, "tut1", history.TutorID)
	require.Len(t, history.Messages, 2)
	require.NotNil(t, history.Messages[0].Sender)
	assert.Equal(t, "Alice", history.Messages[0].Sender.Name)
	require.NotNil(t, history.Messages[1].Sender)
	assert.Equal(t, "Bob", history.Messages[1].Sender.Name)
}

func TestGetHistoryRoomNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GetHistory(context.Background(), "stu1_tut1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGetHistoryUnresolvableSenderIsNil(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Seed a message whose author has since been deleted from the store.
	_, _, err := f.repo.EnsureRoom(ctx, "stu1", "tut1")
	require.NoError(t, err)
	require.NoError(t, f.repo.AppendMessage(ctx, "stu1_tut1", domain.Message{
		ID:         "m1",
		SenderID:   "ghost",
		SenderRole: domain.RoleStudent,
		Content:    "hi",
		Timestamp:  time.Now().UTC(),
	}))

	history, err := f.svc.GetHistory(ctx, "stu1_tut1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
	assert.Nil(t, history.Messages[0].Sender)
	assert.Equal(t, "hi", history.Messages[0].Content)
}

func TestListTutorRooms(t *testing.T) {
	f := newFixture()
	client := newTestClient()
	ctx := context.Background()

	require.NoError(t, f.svc.HandleSendMessage(ctx, client, &domain.SendMessageWS{
		RoomID:     "stu1_tut1",
		SenderID:   "stu1",
		SenderRole: "student",
		Content:    "latest question",
	}))

	rooms, err := f.svc.ListTutorRooms(ctx, "tut1")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "stu1_tut1", rooms[0].RoomID)
	require.NotNil(t, rooms[0].Student)
	assert.Equal(t, "Alice", rooms[0].Student.Name)
	require.NotNil(t, rooms[0].LastMessage)
	assert.Equal(t, "latest question", rooms[0].LastMessage.Content)
	assert.Equal(t, "Alice", rooms[0].LastMessage.SenderName)
}

func TestListTutorRoomsEmpty(t *testing.T) {
	f := newFixture()

	rooms, err := f.svc.ListTutorRooms(context.Background(), "tut1")
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
