package identity

import (
	"context"
	"errors"
	"time"

	"github.com/learnsphere/chat-service/internal/cache"
	"github.com/learnsphere/chat-service/internal/domain"
	"github.com/learnsphere/chat-service/pkg/log"
)

// CachedResolver puts a TTL cache in front of another resolver. Display
// names change rarely; relay resolves the sender on every message, so this
// keeps the actor stores off the hot path.
type CachedResolver struct {
	inner Resolver
	cache cache.ActorCache
	ttl   time.Duration
}

// NewCachedResolver wraps a resolver with an actor cache.
func NewCachedResolver(inner Resolver, actorCache cache.ActorCache, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		inner: inner,
		cache: actorCache,
		ttl:   ttl,
	}
}

// Resolve checks the cache before hitting the underlying store. Not-found
// results are never cached.
func (r *CachedResolver) Resolve(ctx context.Context, actorID string, role domain.Role) (*domain.ActorRef, error) {
	l := log.Ctx(ctx)

	key := r.cache.BuildKey(role, actorID)

	cached, err := r.cache.Get(ctx, key)
	if err == nil {
		actor := cached.Actor
		return &actor, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Msg("actor cache get error")
	}

	actor, err := r.inner.Resolve(ctx, actorID, role)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, key, &cache.ActorCacheResult{Actor: *actor}, r.ttl); err != nil {
		l.Warn().Err(err).Msg("actor cache set error")
	}

	return actor, nil
}
