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

	"github.com/aframp/aframp_backend/internal/logging"
)

func newTestCache(t *testing.T) *redis.Client {
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
	return cache
}

func setupIdempotentApp(t *testing.T, status *int) (*fiber.App, *int) {
	t.Helper()
	cache := newTestCache(t)
	calls := new(int)

	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	handler := func(c *fiber.Ctx) error {
		*calls++
		return c.Status(*status).JSON(fiber.Map{"call": *calls})
	}
	app.Post("/submit", handler)
	app.Post("/other", handler)
	return app, calls
}

func post(t *testing.T, app *fiber.App, path, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
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
	status := fiber.StatusCreated
	app, _ := setupIdempotentApp(t, &status)

	if code, _ := post(t, app, "/submit", ""); code != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, code)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	status := fiber.StatusCreated
	app, calls := setupIdempotentApp(t, &status)

	code, first := post(t, app, "/submit", "abc123")
	if code != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, code)
	}
	code, second := post(t, app, "/submit", "abc123")
	if code != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, code)
	}
	if first != second {
		t.Fatalf("expected cached payload %s got %s", first, second)
	}
	if *calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", *calls)
	}
}

func TestIdempotencyKeysAreScopedToPath(t *testing.T) {
	status := fiber.StatusCreated
	app, calls := setupIdempotentApp(t, &status)

	post(t, app, "/submit", "shared")
	post(t, app, "/other", "shared")
	if *calls != 2 {
		t.Fatalf("expected both paths to run, got %d calls", *calls)
	}
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	status := fiber.StatusBadGateway
	app, calls := setupIdempotentApp(t, &status)

	if code, _ := post(t, app, "/submit", "retry-me"); code != fiber.StatusBadGateway {
		t.Fatalf("expected 502 got %d", code)
	}
	status = fiber.StatusCreated
	if code, _ := post(t, app, "/submit", "retry-me"); code != fiber.StatusCreated {
		t.Fatalf("expected retry to reach the handler, got %d", code)
	}
	if *calls != 2 {
		t.Fatalf("expected two handler calls, got %d", *calls)
	}
}
