package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/haven-service/internal/dto"
	"github.com/prperemyshlev/haven-service/internal/service"
	"go.uber.org/zap"
)

// Limiter records a request against a key and reports whether it is allowed
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (service.RateLimitStatus, error)
}

// RateLimitMiddleware creates a rate limiting middleware. Windows are kept per
// route, so limits on different endpoints do not share a budget.
func RateLimitMiddleware(limiter Limiter, limit int, window time.Duration, keyFunc func(*gin.Context) string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", c.FullPath(), keyFunc(c))

		status, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			if errors.Is(err, service.ErrRateLimited) {
				c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
				c.Header("X-RateLimit-Remaining", "0")
				c.Header("Retry-After", strconv.Itoa(int(status.RetryAfter.Seconds())))

				c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
					Reason:  "rate_limited",
					Error:   "Too Many Requests",
					Message: err.Error(),
				})
				return
			}

			// Redis trouble must not take the endpoint down
			logger.Warn("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(status.Remaining))

		c.Next()
	}
}

// IPBasedKey extracts rate limit key from client IP
func IPBasedKey(c *gin.Context) string {
	// Try to get IP from X-Forwarded-For header (for proxies)
	ip := c.GetHeader("X-Forwarded-For")
	if ip != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(ip, ",")
		ip = strings.TrimSpace(ips[0])
	} else {
		ip = c.ClientIP()
	}

	return ip
}

// UserOrIPKey limits authenticated callers per user and everyone else per IP.
// It must run after AuthMiddleware to see the user.
func UserOrIPKey(c *gin.Context) string {
	if userID := callerID(c); userID != "" {
		return "user:" + userID
	}
	return "ip:" + IPBasedKey(c)
}
