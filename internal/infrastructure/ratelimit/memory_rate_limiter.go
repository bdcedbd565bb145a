package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
)

var _ service.RateLimitService = (*MemoryRateLimiter)(nil)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryRateLimiter keeps per-process counters. Expired windows are evicted by go-cache's janitor.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	cfg     Config
	windows *gocache.Cache
	now     func() time.Time
}

// NewMemoryRateLimiter creates an in-process limiter.
func NewMemoryRateLimiter(cfg Config) *MemoryRateLimiter {
	cfg = cfg.withDefaults()
	return &MemoryRateLimiter{
		cfg:     cfg,
		windows: gocache.New(cfg.Window, 2*cfg.Window),
		now:     time.Now,
	}
}

// Allow counts a request for key and reports whether it is within the limit.
func (rl *MemoryRateLimiter) Allow(_ context.Context, key string) (*service.RateLimitResult, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.lookup(key, now)
	if !ok {
		w = &window{resetAt: now.Add(rl.cfg.Window)}
		rl.windows.Set(key, w, rl.cfg.Window)
	}
	w.count++
	return decide(w.count, rl.cfg.Limit, w.resetAt.Sub(now)), nil
}

// Reset clears the counter for key.
func (rl *MemoryRateLimiter) Reset(_ context.Context, key string) error {
	rl.windows.Delete(key)
	return nil
}

func (rl *MemoryRateLimiter) lookup(key string, now time.Time) (*window, bool) {
	v, ok := rl.windows.Get(key)
	if !ok {
		return nil, false
	}
	w := v.(*window)
	if !now.Before(w.resetAt) {
		return nil, false
	}
	return w, true
}
