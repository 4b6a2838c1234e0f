package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	redishandler "github.com/saxenaaman628/election-observer/internal/redisHandler"
	"github.com/saxenaaman628/election-observer/internal/response"
)

const rateLimitMessage = "Too many requests from this IP, please try again later."

type Limiter interface {
	Allow(ctx context.Context, key string) (redishandler.LimitResult, error)
}

// RateLimit applies a per client IP window. When the counter store fails the
// request is let through.
func RateLimit(l Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		res, err := l.Allow(c.Request.Context(), ip)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("client_ip", ip), zap.Error(err))
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
		h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("RateLimit-Reset", strconv.Itoa(int(math.Ceil(res.ResetIn.Seconds()))))
		if !res.Allowed {
			response.Fail(c, http.StatusTooManyRequests, rateLimitMessage)
			return
		}
		c.Next()
	}
}
