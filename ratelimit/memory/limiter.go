package memorylimiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limit defines window and max count for an action bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// DefaultLimits throttle the transport actions: delivery taps are the hot
// path, admin actions get looser windows.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		"deliver":  {Limit: 5, Window: 10 * time.Second},
		"grant":    {Limit: 30, Window: time.Minute},
		"ingest":   {Limit: 60, Window: time.Minute},
		"register": {Limit: 10, Window: time.Minute},
		"default":  {Limit: 60, Window: time.Minute},
	}
}

type window struct {
	start time.Time
	count int
}

// Limiter is an in-memory fixed-window limiter, the single-node fallback when
// redis is unavailable.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	windows map[string]*window
	now     func() time.Time
}

// New constructs an in-memory limiter. Nil limits use DefaultLimits.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Limiter{
		limits:  limits,
		windows: make(map[string]*window),
		now:     time.Now,
	}
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
func (l *Limiter) Allow(_ context.Context, bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := l.get(bucket)
	now := l.now()
	wk := bucket + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[wk]
	if !ok || now.Sub(w.start) >= lim.Window {
		l.windows[wk] = &window{start: now, count: 1}
		l.prune(now)
		return true, nil
	}
	if w.count >= lim.Limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// prune drops windows that ended, bounding memory. Runs under the lock and
// only when a new window opens.
func (l *Limiter) prune(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for k, w := range l.windows {
		lim := l.get(bucketOf(k))
		if now.Sub(w.start) >= lim.Window {
			delete(l.windows, k)
		}
	}
}

func bucketOf(windowKey string) string {
	for i := 0; i < len(windowKey); i++ {
		if windowKey[i] == ':' {
			return windowKey[:i]
		}
	}
	return windowKey
}
