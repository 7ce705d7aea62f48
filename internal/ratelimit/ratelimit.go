// Package ratelimit caps how often a client may call the extraction endpoint.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request for key fits the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Redis is a fixed-window counter shared by every server instance.
type Redis struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

// NewRedis parses a redis:// URL. limit is the number of requests allowed per
// window.
func NewRedis(url string, limit int, window time.Duration) (*Redis, error) {
	if window < time.Millisecond {
		return nil, fmt.Errorf("rate limit window %s: must be at least 1ms", window)
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{
		client: redis.NewClient(opt),
		limit:  int64(limit),
		window: window,
		prefix: "idscan:extract",
		now:    time.Now,
	}, nil
}

func (l *Redis) Ping(ctx context.Context) error { return l.client.Ping(ctx).Err() }

func (l *Redis) Close() error { return l.client.Close() }

func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := windowKey(l.prefix, key, l.now(), l.window)
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val() <= l.limit, nil
}

func windowKey(prefix, key string, now time.Time, window time.Duration) string {
	return fmt.Sprintf("%s:%s:%d", prefix, key, now.UnixMilli()/window.Milliseconds())
}
