package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/chain_atm/internal/logging"
)

func newTestCache(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})
	return cache, mr
}

func setupIdempotentApp(t *testing.T, status *int) (*fiber.App, *int) {
	t.Helper()
	cache, _ := newTestCache(t)

	calls := 0
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/deposit", func(c *fiber.Ctx) error {
		calls++
		if *status >= fiber.StatusBadRequest {
			return fiber.NewError(*status, "failed")
		}
		return c.Status(*status).JSON(fiber.Map{"call": calls})
	})
	app.Post("/withdraw", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"call": calls})
	})
	return app, &calls
}

func postWithKey(t *testing.T, app *fiber.App, path, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(`{"amount":5}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	status := fiber.StatusOK
	app, _ := setupIdempotentApp(t, &status)

	if code, _ := postWithKey(t, app, "/deposit", ""); code != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, code)
	}
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	status := fiber.StatusOK
	app, calls := setupIdempotentApp(t, &status)

	code, first := postWithKey(t, app, "/deposit", "abc123")
	if code != fiber.StatusOK {
		t.Fatalf("expected status %d got %d", fiber.StatusOK, code)
	}

	// The repeated key is answered from the cache without running the handler.
	code, second := postWithKey(t, app, "/deposit", "abc123")
	if code != fiber.StatusOK || second != first {
		t.Fatalf("expected cached %d %s, got %d %s", fiber.StatusOK, first, code, second)
	}
	if *calls != 1 {
		t.Fatalf("handler ran %d times", *calls)
	}

	// Keys are scoped per route.
	if code, _ := postWithKey(t, app, "/withdraw", "abc123"); code != fiber.StatusOK || *calls != 2 {
		t.Fatalf("expected withdraw to run, code %d calls %d", code, *calls)
	}
}

func TestIdempotencyReleasesFailedIntent(t *testing.T) {
	status := fiber.StatusBadGateway
	app, calls := setupIdempotentApp(t, &status)

	if code, _ := postWithKey(t, app, "/deposit", "retry-me"); code != fiber.StatusBadGateway {
		t.Fatalf("expected %d got %d", fiber.StatusBadGateway, code)
	}

	status = fiber.StatusOK
	if code, _ := postWithKey(t, app, "/deposit", "retry-me"); code != fiber.StatusOK {
		t.Fatalf("retry after failure: expected %d got %d", fiber.StatusOK, code)
	}
	if *calls != 2 {
		t.Fatalf("expected the retry to run the handler, calls %d", *calls)
	}
}

func TestIdempotencyWithoutCacheIsNoop(t *testing.T) {
	app := fiber.New()
	app.Use(Idempotency(nil, time.Minute, logging.Discard()))
	app.Post("/deposit", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	if code, _ := postWithKey(t, app, "/deposit", ""); code != fiber.StatusOK {
		t.Fatalf("expected pass-through, got %d", code)
	}
}
