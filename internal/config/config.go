/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	BaseURL     string // Public base URL (e.g., http://forum.example.org:8080)
	DBBackend   DatabaseBackend
	DBDSN       string

	JWTSigningKey string
	MetricsBind   string

	// Multi-instance configuration
	DistributedBusEnabled bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	InstanceID            string

	// Scheduling parameters
	SlotMinutes        int           // candidate slot granularity
	SlotScanHorizon    int           // number of slots the finder scans forward
	DayStartHour       int           // first schedulable hour of the event day
	DayEndHour         int           // last schedulable hour (exclusive)
	DefaultDuration    int           // default estimated interview length (minutes)
	ReminderLeadTime   time.Duration // how far ahead the approaching sweep looks
	ReminderCheckEvery time.Duration
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("MIMIR_ENV", "development"),
		HTTPBind:    getEnv("MIMIR_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("MIMIR_HTTP_PORT", 8080),
		BaseURL:     getEnv("MIMIR_BASE_URL", ""),
		DBBackend:   DatabaseBackend(getEnv("MIMIR_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:       getEnv("MIMIR_DB_DSN", ""),

		JWTSigningKey: getEnv("MIMIR_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("MIMIR_METRICS_BIND", "127.0.0.1:9000"),

		DistributedBusEnabled: getEnvBool("MIMIR_DISTRIBUTED_BUS_ENABLED", false),
		RedisAddr:             getEnv("MIMIR_REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("MIMIR_REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("MIMIR_REDIS_DB", 0),
		InstanceID:            getEnv("MIMIR_INSTANCE_ID", ""),

		SlotMinutes:        getEnvInt("MIMIR_SLOT_MINUTES", 15),
		SlotScanHorizon:    getEnvInt("MIMIR_SLOT_SCAN_HORIZON", 48),
		DayStartHour:       getEnvInt("MIMIR_DAY_START_HOUR", 9),
		DayEndHour:         getEnvInt("MIMIR_DAY_END_HOUR", 17),
		DefaultDuration:    getEnvInt("MIMIR_DEFAULT_DURATION_MINUTES", 15),
		ReminderLeadTime:   time.Duration(getEnvInt("MIMIR_REMINDER_LEAD_MINUTES", 10)) * time.Minute,
		ReminderCheckEvery: time.Duration(getEnvInt("MIMIR_REMINDER_CHECK_SECONDS", 60)) * time.Second,
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("MIMIR_DB_DSN must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("MIMIR_JWT_SIGNING_KEY must be provided")
	}

	if cfg.SlotMinutes <= 0 || cfg.SlotScanHorizon <= 0 {
		return nil, fmt.Errorf("slot scan parameters must be positive")
	}

	if cfg.DayStartHour < 0 || cfg.DayEndHour > 24 || cfg.DayStartHour >= cfg.DayEndHour {
		return nil, fmt.Errorf("invalid event day window %d:00-%d:00", cfg.DayStartHour, cfg.DayEndHour)
	}

	if strings.EqualFold(cfg.Environment, "production") && len(cfg.JWTSigningKey) < 32 {
		return nil, fmt.Errorf("MIMIR_JWT_SIGNING_KEY must be at least 32 bytes in production")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}
