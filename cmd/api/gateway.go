package main

import (
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/aframp/aframp_backend/internal/config"
	"github.com/aframp/aframp_backend/internal/ledger"
	"github.com/aframp/aframp_backend/internal/stellar"
)

// newGateway builds the Horizon client. With SKIP_EXTERNALS the API runs
// against the in-memory gateway instead, so nothing leaves the process.
func newGateway(cfg config.Config, profile stellar.NetworkProfile, logger *slog.Logger, metrics *ledger.Metrics) (ledger.Gateway, error) {
	if cfg.SkipExternals {
		g := ledger.NewInMemory()
		ledger.SetCustomAsset(g, cfg.Stellar.AssetCode, cfg.Stellar.AssetIssuer)
		logger.Warn("SKIP_EXTERNALS set: using in-memory stellar gateway")
		return g, nil
	}

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithCustomAsset(cfg.Stellar.AssetCode, cfg.Stellar.AssetIssuer),
	}
	if metrics != nil {
		opts = append(opts, ledger.WithMetrics(metrics))
	}
	if cfg.Stellar.RateLimitRPS > 0 {
		opts = append(opts, ledger.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.Stellar.RateLimitRPS), cfg.Stellar.RateLimitBurst)))
	}
	return ledger.NewClient(profile, opts...)
}
