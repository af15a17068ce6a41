package ratelimit

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter over Redis. Keys are hashed before
// storage so raw IPs and emails never land in Redis.
type Limiter struct {
	client *redis.Client
}

func New(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow reports whether another request under key fits in the window.
// Fails open on Redis errors.
func (l *Limiter) Allow(ctx context.Context, key string, requests int, window time.Duration) (bool, error) {
	hashed := fmt.Sprintf("rl:%x", sha256.Sum256([]byte(key)))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	count, err := l.client.Incr(ctx, hashed).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, hashed, window).Err(); err != nil {
			return true, err
		}
	}

	return count <= int64(requests), nil
}
