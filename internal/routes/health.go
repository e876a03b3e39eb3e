package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aframp/aframp_backend/internal/ledger"
)

// RegisterHealthRoutes adds liveness and readiness endpoints. /health/live
// touches no dependency; /health/ready and /healthz report postgres, redis
// and horizon.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	ready := readinessHandler(d)
	app.Get("/healthz", ready)
	app.Get("/health/ready", ready)
	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "alive",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

func readinessHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "skipped"
		redisStatus := "skipped"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		healthy := true
		if d.DB != nil {
			dbStatus = "ok"
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus, healthy = err.Error(), false
			}
		}
		if d.Cache != nil {
			redisStatus = "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus, healthy = err.Error(), false
			}
		}

		horizon := horizonStatus(ctx, d)
		if !horizon.IsHealthy {
			healthy = false
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus},
			"horizon":   horizon,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// horizonStatus prefers the monitor's cached probe and falls back to a live
// check before the first probe completes.
func horizonStatus(ctx context.Context, d Deps) ledger.HealthStatus {
	if d.Monitor != nil {
		if s, ok := d.Monitor.Last(); ok {
			return s
		}
	}
	return d.Gateway.HealthCheck(ctx)
}

// RegisterMetricsRoute serves Prometheus metrics.
func RegisterMetricsRoute(app *fiber.App, g prometheus.Gatherer) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
