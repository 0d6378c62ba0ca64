package redislimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	memorylimiter "github.com/open-rails/probekit/ratelimit/memory"
)

// Limit defines window and max count for an action bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter is a redis-backed fixed-window limiter shared across transport
// replicas.
type Limiter struct {
	rdb    *redis.Client
	limits map[string]Limit
}

// New constructs a redis limiter. Nil limits adopt the in-memory defaults.
func New(rdb *redis.Client, limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
		for bucket, l := range memorylimiter.DefaultLimits() {
			limits[bucket] = Limit{Limit: l.Limit, Window: l.Window}
		}
	}
	return &Limiter{rdb: rdb, limits: limits}
}

func (l *Limiter) get(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 60, Window: time.Minute}
}

// Allow reports whether one more action in the bucket is permitted for key.
// The window key rotates with time, so INCR+EXPIRE is race-free enough for a
// throttle: the worst case briefly over-admits by one on window turnover.
func (l *Limiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := l.get(bucket)
	slot := time.Now().UnixMilli() / lim.Window.Milliseconds()
	rkey := fmt.Sprintf("probes:rl:%s:%s:%d", bucket, key, slot)

	pipe := l.rdb.TxPipeline()
	countCmd := pipe.Incr(ctx, rkey)
	pipe.Expire(ctx, rkey, lim.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	count, err := countCmd.Result()
	if err != nil {
		return false, err
	}
	return count <= int64(lim.Limit), nil
}
