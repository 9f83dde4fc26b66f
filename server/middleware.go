package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mediaflow-hub/listing-aggregator/ratelimit"
)

const requestIDHeader = "X-Request-ID"

// requestID attaches a unique ID to every request for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger emits one structured log line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

// globalRateLimit throttles all inbound traffic per client IP, ahead of
// any handler work. The health endpoint is exempt.
func globalRateLimit(limiter ratelimit.Limiter, cfg ratelimit.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		res, err := limiter.Check(c.Request.Context(), "global:"+c.ClientIP(), cfg)
		if err != nil {
			log.Error().Err(err).Msg("Global rate limit check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "rate limiter unavailable"})
			return
		}
		if !res.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "rate limit exceeded",
				"resetAt":   res.ResetAt.UTC().Format(time.RFC3339),
				"remaining": res.Remaining,
			})
			return
		}
		c.Next()
	}
}
