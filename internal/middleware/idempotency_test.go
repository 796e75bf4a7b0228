package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdempotentApp(t *testing.T) (*fiber.App, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	app := fiber.New()
	app.Use(Idempotency(client, time.Minute))

	var calls int
	app.Post("/orders", func(c *fiber.Ctx) error {
		calls++
		return c.JSON(fiber.Map{"call": calls})
	})
	return app, mr
}

func waitForCachedReply(t *testing.T, mr *miniredis.Miniredis) {
	t.Helper()
	// the response is cached off the request goroutine
	require.Eventually(t, func() bool {
		return len(mr.Keys()) > 0
	}, time.Second, 10*time.Millisecond)
}

func TestIdempotencyReplaysSameCaller(t *testing.T) {
	app, mr := newIdempotentApp(t)

	req := httptest.NewRequest("POST", "/orders", nil)
	req.Header.Set("Authorization", "Bearer alpha")
	req.Header.Set("X-Correlation-ID", "req-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Idempotent-Replay"))

	waitForCachedReply(t, mr)

	retry := httptest.NewRequest("POST", "/orders", nil)
	retry.Header.Set("Authorization", "Bearer alpha")
	retry.Header.Set("X-Correlation-ID", "req-1")
	resp, err = app.Test(retry)
	require.NoError(t, err)
	assert.Equal(t, "true", resp.Header.Get("X-Idempotent-Replay"))
}

func TestIdempotencyKeyScopedToCaller(t *testing.T) {
	app, mr := newIdempotentApp(t)

	req := httptest.NewRequest("POST", "/orders", nil)
	req.Header.Set("Authorization", "Bearer alpha")
	req.Header.Set("X-Correlation-ID", "req-1")
	_, err := app.Test(req)
	require.NoError(t, err)

	waitForCachedReply(t, mr)

	// a second principal reusing the correlation ID gets a fresh response
	other := httptest.NewRequest("POST", "/orders", nil)
	other.Header.Set("Authorization", "Bearer beta")
	other.Header.Set("X-Correlation-ID", "req-1")
	resp, err := app.Test(other)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Idempotent-Replay"))
}

func TestIdempotencyKeyScopedToRoute(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	app := fiber.New()
	app.Use(Idempotency(client, time.Minute))
	for _, path := range []string{"/orders", "/refunds"} {
		path := path
		app.Post(path, func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"path": path})
		})
	}

	req := httptest.NewRequest("POST", "/orders", nil)
	req.Header.Set("Authorization", "Bearer alpha")
	req.Header.Set("X-Correlation-ID", "req-1")
	_, err := app.Test(req)
	require.NoError(t, err)

	waitForCachedReply(t, mr)

	other := httptest.NewRequest("POST", "/refunds", nil)
	other.Header.Set("Authorization", "Bearer alpha")
	other.Header.Set("X-Correlation-ID", "req-1")
	resp, err := app.Test(other)
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get("X-Idempotent-Replay"))
}

func TestIdempotencySkipsReads(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	app := fiber.New()
	app.Use(Idempotency(client, time.Minute))
	app.Get("/orders", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/orders", nil)
	req.Header.Set("X-Correlation-ID", "req-1")
	_, err := app.Test(req)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, mr.Keys())
}
