package middleware

import (
	"context"
	"fmt"
	"time"

	"stackit/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Limiter admits at most max calls per key within window.
type Limiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) error
}

type RateLimitPolicy struct {
	Window  time.Duration `yaml:"window"`
	UserMax int           `yaml:"userMax"`
	IPMax   int           `yaml:"ipMax"`
}

// RateLimitMiddleware enforces per-route limits keyed by client IP and, for
// signed-in callers, by user id.
func RateLimitMiddleware(limiter Limiter, routeKey string, policy RateLimitPolicy, defaultWindow time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		window := policy.Window
		if window == 0 {
			window = defaultWindow
		}
		if policy.IPMax > 0 {
			key := fmt.Sprintf("forum:rate:ip:%s:%s", c.ClientIP(), routeKey)
			if err := limiter.Allow(c.Request.Context(), key, policy.IPMax, window); err != nil {
				response.AbortWithError(c, err)
				return
			}
		}
		if actor := ActorFrom(c); policy.UserMax > 0 && actor.IsAuthenticated() {
			key := fmt.Sprintf("forum:rate:user:%s:%s", actor.ID, routeKey)
			if err := limiter.Allow(c.Request.Context(), key, policy.UserMax, window); err != nil {
				response.AbortWithError(c, err)
				return
			}
		}
		c.Next()
	}
}
