package redisstore

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/open-rails/probekit/core"
	"github.com/open-rails/probekit/delivery"
	"github.com/open-rails/probekit/entitlements"
)

// CooldownCache keeps cooldown deadlines in redis so rapid repeat taps can be
// denied without a ledger roundtrip. Entries expire on their own deadline.
type CooldownCache struct {
	rdb   *redis.Client
	keyNS string
}

func NewCooldownCache(rdb *redis.Client, keyPrefix string) *CooldownCache {
	if keyPrefix == "" {
		keyPrefix = "probes:cooldown:"
	}
	return &CooldownCache{rdb: rdb, keyNS: keyPrefix}
}

func (c *CooldownCache) key(userID int64, subject, scopeKey string) string {
	return c.keyNS + subject + ":" + scopeKey + ":" + strconv.FormatInt(userID, 10)
}

// Get returns the cached deadline, if any.
func (c *CooldownCache) Get(ctx context.Context, userID int64, subject, scopeKey string) (*time.Time, error) {
	val, err := c.rdb.Get(ctx, c.key(userID, subject, scopeKey)).Int64()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := time.UnixMilli(val)
	return &t, nil
}

// Put stores a deadline with a TTL that ends when the window does.
func (c *CooldownCache) Put(ctx context.Context, userID int64, subject, scopeKey string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, c.key(userID, subject, scopeKey), until.UnixMilli(), ttl).Err()
}

// CachedLedger layers the cooldown cache over a ledger. Only the cooldown
// deny fast path is served from cache; reads and commits go to the inner
// ledger, whose transaction re-validates everything, so cache staleness can
// never over-spend quota. Cache failures degrade to the inner ledger.
type CachedLedger struct {
	inner delivery.Ledger
	cache *CooldownCache
	cfg   *core.Config
}

func NewCachedLedger(inner delivery.Ledger, cache *CooldownCache, cfg *core.Config) *CachedLedger {
	return &CachedLedger{inner: inner, cache: cache, cfg: cfg}
}

func (l *CachedLedger) Read(ctx context.Context, userID int64, subject string, tier core.Tier) (*entitlements.Record, error) {
	return l.inner.Read(ctx, userID, subject, tier)
}

func (l *CachedLedger) Cooldown(ctx context.Context, userID int64, subject string, tier core.Tier) (*time.Time, error) {
	scope := l.cfg.CooldownKey(tier)
	if until, err := l.cache.Get(ctx, userID, subject, scope); err == nil && until != nil && time.Now().Before(*until) {
		return until, nil
	}
	until, err := l.inner.Cooldown(ctx, userID, subject, tier)
	if err != nil {
		return nil, err
	}
	if until != nil {
		_ = l.cache.Put(ctx, userID, subject, scope, *until)
	}
	return until, nil
}

func (l *CachedLedger) CommitDelivery(ctx context.Context, userID int64, subject string, tier core.Tier, itemID int64, cooldown time.Duration, now time.Time) (*entitlements.Receipt, error) {
	r, err := l.inner.CommitDelivery(ctx, userID, subject, tier, itemID, cooldown, now)
	if err != nil {
		return nil, err
	}
	_ = l.cache.Put(ctx, userID, subject, l.cfg.CooldownKey(tier), r.DeliveredAt.Add(cooldown))
	return r, nil
}
