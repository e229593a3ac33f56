package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the client's keys; Bookmarks adds its own
// "bookmarks:<user>" key under it.
const DefaultRedisPrefix = "campus:"

// RedisStore keeps each set in a Redis SET under prefix+key.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps client. A zero ttl keeps keys forever.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) Add(ctx context.Context, key, member string) error {
	k := r.prefix + key
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, k, member)
	if r.ttl > 0 {
		pipe.Expire(ctx, k, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: add to %s: %w", k, err)
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, key, member string) error {
	k := r.prefix + key
	if err := r.client.SRem(ctx, k, member).Err(); err != nil {
		return fmt.Errorf("store: remove from %s: %w", k, err)
	}
	return nil
}

// Members returns the members of key sorted.
func (r *RedisStore) Members(ctx context.Context, key string) ([]string, error) {
	k := r.prefix + key
	members, err := r.client.SMembers(ctx, k).Result()
	if err != nil {
		return nil, fmt.Errorf("store: members of %s: %w", k, err)
	}
	slices.Sort(members)
	return members, nil
}
