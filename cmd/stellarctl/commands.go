package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aframp/aframp_backend/internal/ledger"
	"github.com/aframp/aframp_backend/internal/logging"
	"github.com/aframp/aframp_backend/internal/payments"
	"github.com/aframp/aframp_backend/internal/stellar"
	"github.com/aframp/aframp_backend/internal/trustline"
)

// seedEnv names the variable holding the signing seed; seeds are never
// accepted as flags so they stay out of shell history.
const seedEnv = "STELLAR_SECRET_SEED"

type options struct {
	network     string
	timeout     time.Duration
	retries     int
	logLevel    string
	assetCode   string
	assetIssuer string
}

type gatewayFactory func(profile stellar.NetworkProfile, o options, logger *slog.Logger) (ledger.Gateway, error)

func newHorizonGateway(profile stellar.NetworkProfile, o options, logger *slog.Logger) (ledger.Gateway, error) {
	return ledger.NewClient(profile,
		ledger.WithLogger(logger),
		ledger.WithCustomAsset(o.assetCode, o.assetIssuer),
	)
}

type env struct {
	out     io.Writer
	opts    *options
	factory gatewayFactory
}

func (e env) setup() (stellar.NetworkProfile, ledger.Gateway, *slog.Logger, error) {
	logger := logging.NewText(os.Stderr, e.opts.logLevel)
	network, err := stellar.ParseNetwork(e.opts.network)
	if err != nil {
		return stellar.NetworkProfile{}, nil, nil, err
	}
	profile, err := stellar.NewProfile(network, e.opts.timeout, e.opts.retries, stellar.DefaultHealthCheckInterval)
	if err != nil {
		return stellar.NetworkProfile{}, nil, nil, err
	}
	g, err := e.factory(profile, *e.opts, logger)
	if err != nil {
		return stellar.NetworkProfile{}, nil, nil, err
	}
	return profile, g, logger, nil
}

func (e env) print(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd(out io.Writer, factory gatewayFactory) *cobra.Command {
	o := &options{}
	e := env{out: out, opts: o, factory: factory}

	root := &cobra.Command{
		Use:           "stellarctl",
		Short:         "Inspect Stellar accounts and manage AFRI trustlines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&o.network, "network", "n", envOr("STELLAR_NETWORK", string(stellar.Testnet)), "Stellar network (testnet or mainnet)")
	root.PersistentFlags().DurationVarP(&o.timeout, "timeout", "t", stellar.DefaultRequestTimeout, "Per request timeout")
	root.PersistentFlags().IntVarP(&o.retries, "retries", "r", stellar.DefaultMaxRetries, "Retries after the first attempt")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "warn", "Log level")
	root.PersistentFlags().StringVar(&o.assetCode, "asset-code", envOr("AFRI_ASSET_CODE", ledger.DefaultCustomAssetCode), "Application asset code")
	root.PersistentFlags().StringVar(&o.assetIssuer, "asset-issuer", os.Getenv("AFRI_ASSET_ISSUER"), "Application asset issuer")

	root.AddCommand(
		healthCmd(e),
		accountCmd(e),
		balancesCmd(e),
		trustlineCmd(e),
	)
	return root
}

func healthCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the Horizon gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, g, _, err := e.setup()
			if err != nil {
				return err
			}
			status := g.HealthCheck(cmd.Context())
			if err := e.print(status); err != nil {
				return err
			}
			if !status.IsHealthy {
				return errors.New("horizon is unhealthy")
			}
			return nil
		},
	}
}

func accountCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "account ADDRESS",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, _, err := e.setup()
			if err != nil {
				return err
			}
			acc, err := g.GetAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return e.print(acc)
		},
	}
}

func balancesCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "balances ADDRESS",
		Short: "List the balances of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, _, err := e.setup()
			if err != nil {
				return err
			}
			balances, err := g.GetBalances(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return e.print(balances)
		},
	}
}

func trustlineCmd(e env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trustline",
		Short: "Check, prepare and submit application asset trustlines",
	}

	manager := func() (*trustline.Manager, stellar.NetworkProfile, ledger.Gateway, *slog.Logger, error) {
		profile, g, logger, err := e.setup()
		if err != nil {
			return nil, stellar.NetworkProfile{}, nil, nil, err
		}
		m, err := trustline.NewManager(g, profile, trustline.Asset{Code: e.opts.assetCode, Issuer: e.opts.assetIssuer}, trustline.WithLogger(logger))
		return m, profile, g, logger, err
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check ADDRESS",
		Short: "Report the trustline state of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			m, _, _, _, err := manager()
			if err != nil {
				return err
			}
			status, err := m.CheckTrustline(c.Context(), args[0])
			if err != nil {
				return err
			}
			return e.print(status)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create ADDRESS",
		Short: "Prepare an unsigned change-trust transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			m, _, _, _, err := manager()
			if err != nil {
				return err
			}
			tx, err := m.CreateTrustlineTx(c.Context(), args[0])
			if err != nil {
				return err
			}
			return e.print(tx)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "submit ENVELOPE_XDR",
		Short: "Sign an envelope with $" + seedEnv + " and submit it",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			seed := os.Getenv(seedEnv)
			if seed == "" {
				return fmt.Errorf("%s must be set", seedEnv)
			}
			profile, g, logger, err := e.setup()
			if err != nil {
				return err
			}
			svc := payments.NewService(payments.NewBuilder(g, profile, payments.WithLogger(logger)), g, nil, logger)
			res, err := svc.SignAndSubmitEnvelope(c.Context(), args[0], seed)
			if err != nil {
				return err
			}
			return e.print(res)
		},
	})

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
