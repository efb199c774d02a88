package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pvflow/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Fixed-window counters live in Redis so every instance shares them.
// Keys: ratelimit:{scope}:{ip}:{window start}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter(rdb *redis.Client) gin.HandlerFunc {
	return rateLimit(rdb, "login", 20, time.Minute, "Muitas tentativas de login. Tente novamente em 1 minuto.")
}

// RateLimiter is the general API limiter.
func RateLimiter(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return rateLimit(rdb, "api", limit, window, "Muitas requisicoes. Tente novamente em instantes.")
}

func rateLimit(rdb *redis.Client, scope string, limit int, window time.Duration, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		start := now.Truncate(window)
		key := fmt.Sprintf("ratelimit:%s:%s:%d", scope, c.ClientIP(), start.Unix())

		ctx := c.Request.Context()
		pipe := rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			// a Redis outage must not take the API down with it
			log.Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if incr.Val() > int64(limit) {
			retry := start.Add(window).Sub(now)
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}
