package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const userActiveKeyPrefix = "user:active:"

// ActivityMiddleware marks authenticated users as recently active so daily
// active counts can be read straight out of Redis. Must run after
// AuthMiddleware; requests without a userID pass through untouched.
func ActivityMiddleware(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("userID")
		if !ok {
			c.Next()
			return
		}
		userID, ok := userIDVal.(uint)
		if !ok {
			c.Next()
			return
		}

		if ttl <= 0 {
			ttl = 24 * time.Hour
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		key := fmt.Sprintf("%s%d", userActiveKeyPrefix, userID)
		_ = rdb.Set(ctx, key, "1", ttl).Err()

		c.Next()
	}
}
