package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Idempotency replays cached responses for repeated mutating requests
// carrying the same X-Correlation-ID. Payment webhooks and booking
// retries hit this path when clients resend after a timeout.
//
// The replay key is scoped to the caller and route, so two principals
// (or two endpoints) reusing the same correlation ID never see each
// other's cached responses.
func Idempotency(redisClient *redis.Client, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != "POST" && c.Method() != "PATCH" && c.Method() != "PUT" {
			return c.Next()
		}

		correlationID := c.Get("X-Correlation-ID")
		if correlationID == "" {
			return c.Next()
		}

		// The bearer token stands in for the caller identity; this runs
		// before token verification, so locals are not populated yet.
		caller := sha256.Sum256([]byte(c.Get("Authorization")))
		key := fmt.Sprintf("idempotency:%x:%s:%s:%s", caller[:8], c.Method(), c.Path(), correlationID)
		ctx := context.Background()

		cached, err := redisClient.Get(ctx, key).Bytes()
		if err == nil && len(cached) > 0 {
			c.Set("X-Idempotent-Replay", "true")
			c.Set("Content-Type", "application/json")
			return c.Send(cached)
		}

		if err := c.Next(); err != nil {
			return err
		}

		// Only successful responses are worth replaying
		statusCode := c.Response().StatusCode()
		if statusCode >= 200 && statusCode < 300 {
			body := c.Response().Body()
			if len(body) > 0 {
				go func() {
					bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					redisClient.Set(bgCtx, key, body, ttl)
				}()
			}
		}

		return nil
	}
}
