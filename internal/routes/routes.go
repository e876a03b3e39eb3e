package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/aframp/aframp_backend/internal/config"
	"github.com/aframp/aframp_backend/internal/ledger"
	"github.com/aframp/aframp_backend/internal/middleware"
	"github.com/aframp/aframp_backend/internal/notification"
	"github.com/aframp/aframp_backend/internal/payments"
	"github.com/aframp/aframp_backend/internal/trustline"
	"github.com/aframp/aframp_backend/internal/trustlineop"
	"github.com/aframp/aframp_backend/internal/validation"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Gateway ledger.Gateway
	Monitor *ledger.Monitor
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Gateway == nil {
		return fmt.Errorf("ledger gateway is required")
	}
	if !d.Cfg.SkipExternals {
		if d.DB == nil {
			return fmt.Errorf("database is required unless SKIP_EXTERNALS is set")
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required unless SKIP_EXTERNALS is set")
		}
	}

	profile, err := d.Cfg.NetworkProfile()
	if err != nil {
		return err
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	if d.Gatherer != nil {
		RegisterMetricsRoute(app, d.Gatherer)
	}

	v := validation.New()
	notifier := notification.NewLoggerNotifier(d.Logger)

	manager, err := trustline.NewManager(d.Gateway, profile, trustline.Asset{
		Code:   d.Cfg.Stellar.AssetCode,
		Issuer: d.Cfg.Stellar.AssetIssuer,
	}, trustline.WithLogger(d.Logger))
	if err != nil {
		return fmt.Errorf("build trustline manager: %w", err)
	}
	builder := payments.NewBuilder(d.Gateway, profile, payments.WithLogger(d.Logger))
	paymentSvc := payments.NewService(builder, d.Gateway, notifier, d.Logger)

	var opsRepo trustlineop.Repository
	if d.DB != nil {
		opsRepo = trustlineop.NewPostgresRepository(d.DB)
	} else {
		opsRepo = trustlineop.NewMemoryRepository()
	}
	opsSvc := trustlineop.NewService(opsRepo, notifier)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"network":    profile.Network,
			"request_id": middleware.GetRequestID(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	protected := api.Group("", middleware.APIKey(d.Cfg.APIKeyHash))
	submit := []fiber.Handler{
		middleware.RateLimit(d.Cache, "submit", d.Cfg.SubmitPerMin),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	}

	RegisterAccountRoutes(protected, d.Gateway, d.Cfg.Stellar.AssetCode, d.Cfg.Stellar.AssetIssuer)
	RegisterTrustlineRoutes(protected, trustline.NewHandler(manager, v), payments.NewHandler(paymentSvc, v), submit)
	RegisterPaymentRoutes(protected, payments.NewHandler(paymentSvc, v), submit)
	RegisterTrustlineOperationRoutes(protected, trustlineop.NewHandler(opsSvc, v))

	return nil
}
