package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// MutationRateLimit throttles admin mutation endpoints per admin (falling
// back to client IP) using Redis. Without Redis the limiter is a no-op.
func MutationRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 30
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		actor, _ := c.Locals("admin_id").(string)
		if actor == "" {
			actor = c.IP()
		}
		key := "rl:mutation:" + actor

		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		// set on every increment so a counter whose first Expire was lost
		// still ages out instead of throttling the admin forever
		cache.ExpireNX(c.UserContext(), key, time.Minute)
		if cnt > int64(maxPerMin) {
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "too many requests, try again later",
				"code":    "RateLimited",
			})
		}
		return c.Next()
	}
}
