package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aframp/aframp_backend/internal/stellar"
)

const (
	defaultAppName        = "Aframp"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultAssetCode      = "AFRI"
	defaultSubmitPerMin   = 30
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	SkipExternals  bool
	MigrateOnStart bool
	APIKeyHash     string
	SubmitPerMin   int

	Stellar StellarConfig
}

// StellarConfig holds the network settings and the application asset.
type StellarConfig struct {
	Network             stellar.Network
	RequestTimeout      time.Duration
	MaxRetries          int
	HealthCheckInterval time.Duration
	RateLimitRPS        float64
	RateLimitBurst      int
	AssetCode           string
	AssetIssuer         string
}

// Load reads a .env file when present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		APIKeyHash:     os.Getenv("API_KEY_HASH"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
	}

	var err error
	if cfg.ShutdownPeriod, err = getDuration("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.SkipExternals, err = getBool("SKIP_EXTERNALS", false); err != nil {
		return Config{}, err
	}
	if cfg.MigrateOnStart, err = getBool("MIGRATE_ON_START", false); err != nil {
		return Config{}, err
	}
	if cfg.SubmitPerMin, err = getInt("SUBMIT_RATE_LIMIT_PER_MIN", defaultSubmitPerMin); err != nil {
		return Config{}, err
	}
	if cfg.Stellar, err = loadStellar(); err != nil {
		return Config{}, err
	}

	if !cfg.SkipExternals {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

func loadStellar() (StellarConfig, error) {
	network, err := stellar.ParseNetwork(getEnv("STELLAR_NETWORK", string(stellar.Testnet)))
	if err != nil {
		return StellarConfig{}, fmt.Errorf("invalid STELLAR_NETWORK: %w", err)
	}
	sc := StellarConfig{
		Network:     network,
		AssetCode:   getEnv("AFRI_ASSET_CODE", defaultAssetCode),
		AssetIssuer: os.Getenv("AFRI_ASSET_ISSUER"),
	}
	if sc.RequestTimeout, err = getDuration("STELLAR_REQUEST_TIMEOUT", stellar.DefaultRequestTimeout); err != nil {
		return StellarConfig{}, err
	}
	if sc.MaxRetries, err = getInt("STELLAR_MAX_RETRIES", stellar.DefaultMaxRetries); err != nil {
		return StellarConfig{}, err
	}
	if sc.HealthCheckInterval, err = getDuration("STELLAR_HEALTH_CHECK_INTERVAL", stellar.DefaultHealthCheckInterval); err != nil {
		return StellarConfig{}, err
	}
	if v := os.Getenv("STELLAR_RATE_LIMIT_RPS"); v != "" {
		if sc.RateLimitRPS, err = strconv.ParseFloat(v, 64); err != nil {
			return StellarConfig{}, fmt.Errorf("invalid STELLAR_RATE_LIMIT_RPS: %w", err)
		}
	}
	if sc.RateLimitBurst, err = getInt("STELLAR_RATE_LIMIT_BURST", 1); err != nil {
		return StellarConfig{}, err
	}
	return sc, nil
}

// NetworkProfile builds the validated profile shared by the Stellar components.
func (c Config) NetworkProfile() (stellar.NetworkProfile, error) {
	return stellar.NewProfile(c.Stellar.Network, c.Stellar.RequestTimeout, c.Stellar.MaxRetries, c.Stellar.HealthCheckInterval)
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDuration reads KEY_SECONDS as whole seconds, or KEY as a Go duration or
// a bare number of seconds.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
