package ratelimit

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/observability"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// Rule names a bucket and its budget.
type Rule struct {
	Bucket string
	Limit  int
	Window time.Duration
}

// Middleware limits requests per client IP. A nil limiter or a limiter error lets the request through.
func Middleware(limiter Limiter, rule Rule, logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil || rule.Limit <= 0 {
			return c.Next()
		}
		allowed, err := limiter.Allow(c.UserContext(), rule.Bucket+":"+c.IP(), rule.Limit, rule.Window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("bucket", rule.Bucket), zap.Error(err))
			return c.Next()
		}
		if !allowed {
			metrics.RecordRateLimited(rule.Bucket)
			c.Set(fiber.HeaderRetryAfter, retryAfter(rule.Window))
			return apperrors.NewTooManyRequests("too many requests, please try again later")
		}
		return c.Next()
	}
}

func retryAfter(window time.Duration) string {
	seconds := int(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
