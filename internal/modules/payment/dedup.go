package payment

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "payments:webhook:"

// RedisDeduper claims provider event ids so concurrent deliveries of the same
// event are processed by one worker. The durable record lives in the
// payment_events table; the claim only needs to outlive processing.
type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

// Claim returns false when another delivery of eventID holds the claim.
func (d *RedisDeduper) Claim(ctx context.Context, eventID string) (bool, error) {
	return d.rdb.SetNX(ctx, dedupKeyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, eventID string) error {
	return d.rdb.Del(ctx, dedupKeyPrefix+eventID).Err()
}
