package config

import "testing"

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("MIMIR_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("MIMIR_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("MIMIR_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN to be set")
	}
	if cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
	if cfg.SlotMinutes != 15 || cfg.SlotScanHorizon != 48 {
		t.Fatalf("unexpected slot defaults: %d/%d", cfg.SlotMinutes, cfg.SlotScanHorizon)
	}
	if cfg.DayStartHour != 9 || cfg.DayEndHour != 17 {
		t.Fatalf("unexpected day window defaults: %d-%d", cfg.DayStartHour, cfg.DayEndHour)
	}
}

func TestLoadRejectsMissingDSN(t *testing.T) {
	t.Setenv("MIMIR_DB_DSN", "")
	t.Setenv("MIMIR_JWT_SIGNING_KEY", "supersecret")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail without a DSN")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("MIMIR_DB_DSN", "forum.db")
	t.Setenv("MIMIR_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("MIMIR_DB_BACKEND", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail for an unknown backend")
	}
}

func TestLoadProductionRequiresStrongSigningKey(t *testing.T) {
	t.Setenv("MIMIR_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("MIMIR_ENV", "production")
	t.Setenv("MIMIR_JWT_SIGNING_KEY", "short")

	if _, err := Load(); err == nil {
		t.Fatal("expected production config load to fail with a short signing key")
	}

	t.Setenv("MIMIR_JWT_SIGNING_KEY", "0123456789abcdef0123456789abcdef")
	if _, err := Load(); err != nil {
		t.Fatalf("expected production config load with a strong key to succeed: %v", err)
	}
}

func TestLoadRejectsInvertedDayWindow(t *testing.T) {
	t.Setenv("MIMIR_DB_DSN", "forum.db")
	t.Setenv("MIMIR_DB_BACKEND", "sqlite")
	t.Setenv("MIMIR_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("MIMIR_DAY_START_HOUR", "17")
	t.Setenv("MIMIR_DAY_END_HOUR", "9")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail when the day window is inverted")
	}
}
