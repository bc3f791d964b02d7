// Package ratelimit caps upload attempts per user over a fixed window.
// The limit protects the OCR and face-match adapters from abuse; it is not
// a general request limiter.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	id "basera/pkg/domain"
)

// Limiter reports whether a user may perform another upload.
type Limiter interface {
	Allow(ctx context.Context, userID id.UserID) (bool, error)
}

// RedisLimiter implements a fixed-window counter in Redis. The first
// increment in a window sets the TTL; the counter expires with the window.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *slog.Logger
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, logger *slog.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Allow increments the user's counter and compares it to the limit. Redis
// errors fail open: an unavailable limiter must not block verification.
func (l *RedisLimiter) Allow(ctx context.Context, userID id.UserID) (bool, error) {
	key := fmt.Sprintf("verif:uploads:%s", userID.String())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("rate limiter unavailable, allowing request",
			slog.String("error", err.Error()))
		return true, nil
	}

	return incr.Val() <= int64(l.limit), nil
}

// MemoryLimiter is the in-process fallback used when Redis is not
// configured. Windows are tracked per user and reset lazily.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[id.UserID]*window
}

type window struct {
	start time.Time
	count int
}

func NewMemoryLimiter(limit int, windowSize time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  windowSize,
		now:     time.Now,
		windows: make(map[id.UserID]*window),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, userID id.UserID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[userID]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[userID] = &window{start: now, count: 1}
		return true, nil
	}

	w.count++
	return w.count <= l.limit, nil
}
