package infra

import (
	"io/fs"
	"testing"
	"time"
)

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@db:5432/aframp":   "pgx5://u:p@db:5432/aframp",
		"postgresql://u:p@db:5432/aframp": "pgx5://u:p@db:5432/aframp",
		"pgx5://db/aframp":                "pgx5://db/aframp",
	}
	for in, want := range cases {
		if got := migrateURL(in); got != want {
			t.Fatalf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	ups, err := fs.Glob(migrationFiles, "migrations/*.up.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	downs, err := fs.Glob(migrationFiles, "migrations/*.down.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(ups) == 0 || len(ups) != len(downs) {
		t.Fatalf("expected paired migrations, got %v and %v", ups, downs)
	}
}

func TestMigrateRequiresURL(t *testing.T) {
	if err := Migrate(""); err == nil {
		t.Fatalf("expected empty url to fail")
	}
}

func TestPoolConfigKeepsURLLimits(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@db:5432/aframp?pool_max_conns=80&connect_timeout=2")
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if cfg.MaxConns != 80 {
		t.Fatalf("MaxConns = %d, want 80", cfg.MaxConns)
	}
	if cfg.ConnConfig.ConnectTimeout != 2*time.Second {
		t.Fatalf("ConnectTimeout = %s, want 2s", cfg.ConnConfig.ConnectTimeout)
	}
	if cfg.HealthCheckPeriod != pgHealthCheckPeriod {
		t.Fatalf("HealthCheckPeriod = %s, want %s", cfg.HealthCheckPeriod, pgHealthCheckPeriod)
	}
}

func TestPoolConfigDefaults(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@db:5432/aframp")
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if cfg.MaxConns != pgMaxConns {
		t.Fatalf("MaxConns = %d, want %d", cfg.MaxConns, pgMaxConns)
	}
	if cfg.ConnConfig.ConnectTimeout != pgConnectTimeout {
		t.Fatalf("ConnectTimeout = %s, want %s", cfg.ConnConfig.ConnectTimeout, pgConnectTimeout)
	}

	if _, err := poolConfig(""); err == nil {
		t.Fatalf("expected empty url to fail")
	}
}
