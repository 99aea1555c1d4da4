package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window per-IP counter in redis.
type RateLimiter struct {
	client func() *redis.Client
	limit  int64
	window time.Duration
}

// NewRateLimiter reads the client through fn on every request so it picks up
// the redis connection made after startup. Requests pass while fn returns nil.
func NewRateLimiter(fn func() *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: fn, limit: limit, window: window}
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := rl.client()
		if client == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := "ratelimit:" + c.ClientIP()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			config.LogError(config.GetLogger(), "middlewares", "RateLimiter", "incr", key, err)
			c.Next()
			return
		}
		if count == 1 {
			if err := client.Expire(ctx, key, rl.window).Err(); err != nil {
				config.LogError(config.GetLogger(), "middlewares", "RateLimiter", "expire", key, err)
			}
		}
		if count > rl.limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
			})
			return
		}
		c.Next()
	}
}
