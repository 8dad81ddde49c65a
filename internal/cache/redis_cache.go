package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/learnsphere/chat-service/internal/config"
	"github.com/learnsphere/chat-service/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

type RedisActorCache struct {
	client *redis.Client
	prefix string
}

func NewRedisActorCache(cfg config.RedisConfig, prefix string) (*RedisActorCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisActorCache{
		client: client,
		prefix: prefix,
	}, nil
}

func (c *RedisActorCache) BuildKey(role domain.Role, actorID string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, role, actorID)
}

func (c *RedisActorCache) Get(ctx context.Context, key string) (*ActorCacheResult, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var result ActorCacheResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &result, nil
}

func (c *RedisActorCache) Set(ctx context.Context, key string, result *ActorCacheResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisActorCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}

func (c *RedisActorCache) Close() error {
	return c.client.Close()
}
