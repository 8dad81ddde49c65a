package cache

import (
	"context"
	"time"

	"github.com/learnsphere/chat-service/internal/domain"
)

type ActorCacheResult struct {
	Actor domain.ActorRef `json:"actor"`
}

type ActorCache interface {
	Get(ctx context.Context, key string) (*ActorCacheResult, error)
	Set(ctx context.Context, key string, result *ActorCacheResult, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	BuildKey(role domain.Role, actorID string) string
	Close() error
}
