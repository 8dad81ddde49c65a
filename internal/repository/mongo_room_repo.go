package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/learnsphere/chat-service/internal/config"
	"github.com/learnsphere/chat-service/internal/domain"
	"github.com/learnsphere/chat-service/pkg/log"
)

// MongoRoomRepository implements RoomRepository on a single MongoDB
// collection. Rooms are whole documents keyed by the pair-derived room id;
// all mutation goes through atomic update operators so concurrent relays
// on one room cannot overwrite each other's appends.
type MongoRoomRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoRoomRepository connects to MongoDB and prepares the rooms collection.
func NewMongoRoomRepository(cfg config.MongoConfig) (*MongoRoomRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)

	// tutor_id drives the room-listing read path.
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tutor_id", Value: 1}, {Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tutor_id index: %w", err)
	}

	return &MongoRoomRepository{client: client, collection: coll}, nil
}

// EnsureRoom upserts the room document for the pair.
func (r *MongoRoomRepository) EnsureRoom(ctx context.Context, studentID, tutorID string) (string, bool, error) {
	l := log.Ctx(ctx)

	roomID := domain.NewRoomID(studentID, tutorID)
	now := time.Now().UTC()

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$setOnInsert": bson.M{
			"student_id": studentID,
			"tutor_id":   tutorID,
			"messages":   bson.A{},
			"created_at": now,
			"updated_at": now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to ensure room")
		return "", false, err
	}

	created := res.UpsertedCount > 0
	if created {
		l.Debug().Str(log.FieldRoomID, roomID).Msg("room created")
	}
	return roomID, created, nil
}

// GetByID retrieves the full room document.
func (r *MongoRoomRepository) GetByID(ctx context.Context, roomID string) (*domain.ChatRoom, error) {
	l := log.Ctx(ctx)

	var room domain.ChatRoom
	err := r.collection.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get room by id")
		return nil, err
	}
	return &room, nil
}

// AppendMessage pushes the message onto the room's embedded list.
func (r *MongoRoomRepository) AppendMessage(ctx context.Context, roomID string, msg domain.Message) error {
	l := log.Ctx(ctx)

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{
			"$push": bson.M{"messages": msg},
			"$set":  bson.M{"updated_at": msg.Timestamp},
		},
	)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to append message")
		return err
	}
	if res.MatchedCount == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// MarkMessagesRead flips is_read on peers' unread messages in one filtered
// array update. The $elemMatch in the filter means the update matches no
// document when nothing qualifies, so a redundant call never bumps
// updated_at.
func (r *MongoRoomRepository) MarkMessagesRead(ctx context.Context, roomID, actorID string) (bool, error) {
	l := log.Ctx(ctx)

	res, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id": roomID,
			"messages": bson.M{"$elemMatch": bson.M{
				"sender_id": bson.M{"$ne": actorID},
				"is_read":   false,
			}},
		},
		bson.M{"$set": bson.M{
			"messages.$[m].is_read": true,
			"updated_at":            time.Now().UTC(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{
				"m.sender_id": bson.M{"$ne": actorID},
				"m.is_read":   false,
			}},
		}),
	)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to mark messages as read")
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ListRoomsByTutor returns the tutor's rooms, most recently active first.
func (r *MongoRoomRepository) ListRoomsByTutor(ctx context.Context, tutorID string) ([]domain.ChatRoom, error) {
	l := log.Ctx(ctx)

	cursor, err := r.collection.Find(ctx,
		bson.M{"tutor_id": tutorID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	)
	if err != nil {
		l.Error().Err(err).Str(log.FieldTutorID, tutorID).Msg("failed to list tutor rooms")
		return nil, err
	}

	var rooms []domain.ChatRoom
	if err := cursor.All(ctx, &rooms); err != nil {
		l.Error().Err(err).Str(log.FieldTutorID, tutorID).Msg("failed to decode tutor rooms")
		return nil, err
	}
	return rooms, nil
}

// Close disconnects the MongoDB client.
func (r *MongoRoomRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
