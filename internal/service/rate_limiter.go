package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/haven-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is returned when a key used up its window
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	redis *database.Redis
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis}
}

// RateLimitStatus describes the window after a check
type RateLimitStatus struct {
	Remaining  int
	RetryAfter time.Duration
}

func rateLimitKey(key string) string {
	return fmt.Sprintf("ratelimit:%s", key)
}

// Allow records a request for key using a sliding window log. It returns
// ErrRateLimited once limit requests were seen within window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitStatus, error) {
	now := time.Now()
	windowStart := now.Add(-window)
	redisKey := rateLimitKey(key)

	// Remove entries older than the window and count the rest
	pipe := r.redis.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixMilli()))
	card := pipe.ZCard(ctx, redisKey)
	oldest := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return RateLimitStatus{}, fmt.Errorf("failed to read rate limit window: %w", err)
	}

	count := int(card.Val())
	if count >= limit {
		status := RateLimitStatus{RetryAfter: window}
		if entries := oldest.Val(); len(entries) > 0 {
			oldestAt := time.UnixMilli(int64(entries[0].Score))
			status.RetryAfter = window - now.Sub(oldestAt)
		}
		if status.RetryAfter < time.Second {
			status.RetryAfter = time.Second
		}
		return status, fmt.Errorf("%w, try again in %v", ErrRateLimited, status.RetryAfter.Round(time.Second))
	}

	pipe = r.redis.Client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.New().String(),
	})
	// Expire a minute after the window so idle keys disappear
	pipe.Expire(ctx, redisKey, window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitStatus{}, fmt.Errorf("failed to record request: %w", err)
	}

	return RateLimitStatus{Remaining: limit - count - 1}, nil
}
