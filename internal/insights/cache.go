package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache holds computed summaries between writes.
type Cache interface {
	Get(ctx context.Context, ownerID string, days int, zone, day string) (*Summary, error)
	Put(ctx context.Context, ownerID string, zone, day string, s Summary) error
	Invalidate(ctx context.Context, ownerID string) error
}

// RedisCache keeps all of an owner's summaries in one hash,
// "<prefix><owner>", with one field per "<days>:<zone>:<yyyy-mm-dd>". Streaks
// and point dates depend on the calendar zone, and the day keeps a summary
// computed yesterday from being served today.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed summary cache. Prefix may be empty.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "insights:"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisCache) key(ownerID string) string {
	return r.prefix + ownerID
}

func field(days int, zone, day string) string {
	return fmt.Sprintf("%d:%s:%s", days, zone, day)
}

// Get returns nil, nil on a miss.
func (r *RedisCache) Get(ctx context.Context, ownerID string, days int, zone, day string) (*Summary, error) {
	b, err := r.client.HGet(ctx, r.key(ownerID), field(days, zone, day)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var s Summary
	if err := json.Unmarshal(b, &s); err != nil {
		// unreadable entries are dropped rather than served
		_ = r.client.HDel(ctx, r.key(ownerID), field(days, zone, day)).Err()
		return nil, nil
	}
	return &s, nil
}

func (r *RedisCache) Put(ctx context.Context, ownerID string, zone, day string, s Summary) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	k := r.key(ownerID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, k, field(s.Days, zone, day), b)
	pipe.Expire(ctx, k, r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisCache) Invalidate(ctx context.Context, ownerID string) error {
	return r.client.Del(ctx, r.key(ownerID)).Err()
}

// EntryChanged drops the owner's summaries after any write to their entries.
func (r *RedisCache) EntryChanged(ctx context.Context, ownerID, _ string) error {
	return r.Invalidate(ctx, ownerID)
}
