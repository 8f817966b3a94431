package counters

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"strikebot/model"
)

// Cache keeps the last known-good value per counter.
type Cache interface {
	Get(ctx context.Context, guildID string, kind model.CounterKind) (*int64, error)
	Set(ctx context.Context, guildID string, kind model.CounterKind, value int64) error
}

// ValueStore is the part of the database that persists counter values.
type ValueStore interface {
	CachedCounter(ctx context.Context, guildID string, kind model.CounterKind) (int64, bool, error)
	SetCachedCounter(ctx context.Context, guildID string, kind model.CounterKind, value int64) error
}

type storeCache struct {
	store ValueStore
}

// NewStoreCache keeps counter values in the bot database.
func NewStoreCache(store ValueStore) Cache {
	return &storeCache{store: store}
}

func (c *storeCache) Get(ctx context.Context, guildID string, kind model.CounterKind) (*int64, error) {
	v, ok, err := c.store.CachedCounter(ctx, guildID, kind)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

func (c *storeCache) Set(ctx context.Context, guildID string, kind model.CounterKind, value int64) error {
	return c.store.SetCachedCounter(ctx, guildID, kind, value)
}

// RedisCache keeps counter values in Redis and writes them through to a
// fallback cache, which also serves reads Redis cannot answer.
type RedisCache struct {
	client   redis.UniversalClient
	fallback Cache
}

func NewRedisCache(client redis.UniversalClient, fallback Cache) *RedisCache {
	return &RedisCache{client: client, fallback: fallback}
}

func redisKey(guildID string, kind model.CounterKind) string {
	return fmt.Sprintf("strikebot:counter:%s:%s", guildID, kind)
}

func (c *RedisCache) Get(ctx context.Context, guildID string, kind model.CounterKind) (*int64, error) {
	v, err := c.client.Get(ctx, redisKey(guildID, kind)).Int64()
	if err == nil {
		return &v, nil
	}
	if !errors.Is(err, redis.Nil) && c.fallback == nil {
		return nil, err
	}
	if c.fallback == nil {
		return nil, nil
	}
	return c.fallback.Get(ctx, guildID, kind)
}

func (c *RedisCache) Set(ctx context.Context, guildID string, kind model.CounterKind, value int64) error {
	err := c.client.Set(ctx, redisKey(guildID, kind), value, 0).Err()
	if c.fallback != nil {
		err = errors.Join(err, c.fallback.Set(ctx, guildID, kind, value))
	}
	return err
}
