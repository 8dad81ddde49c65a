package kafka

import (
	"context"

	"github.com/learnsphere/chat-service/internal/domain"
)

// EventProducer exports chat activity to the platform event stream for
// downstream consumers (analytics, moderation, notification digests).
type EventProducer interface {
	ProduceMessageEvent(ctx context.Context, roomID string, msg domain.Message) error
	ProduceReadEvent(ctx context.Context, roomID, actorID string) error
	Close() error
}
