package middleware

import (
	"fmt"
	"net/http"
	"time"

	"loyaltypoints-backend/internal/database"
	"loyaltypoints-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// KeyFunc derives the rate-limit bucket identity for a request.
type KeyFunc func(c *gin.Context) string

// KeyByClientIP buckets requests by client address.
func KeyByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimit allows at most limit requests per window per bucket, counted
// in redis so the limit holds across instances. With no redis configured
// the limiter is a no-op.
func RateLimit(limit int, window time.Duration, keyFn KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if database.RedisClient == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", c.FullPath(), keyFn(c))

		count, err := database.RedisClient.Incr(database.Ctx, key).Result()
		if err != nil {
			// Degrade open rather than blocking traffic on a redis outage.
			c.Next()
			return
		}
		if count == 1 {
			database.RedisClient.Expire(database.Ctx, key, window)
		}

		if count > int64(limit) {
			c.JSON(http.StatusTooManyRequests, utils.NewErrorResponse(http.StatusTooManyRequests, "Too many requests, slow down"))
			c.Abort()
			return
		}

		c.Next()
	}
}
