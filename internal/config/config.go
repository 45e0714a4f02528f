// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings for the sync engine and the API service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/spend?sslmode=disable"`

	// CredentialEncryptionKey protects vendor credentials at rest.
	// 32 bytes, hex (64 chars) or base64 (44 chars) encoded.
	CredentialEncryptionKey string `env:"CREDENTIAL_ENCRYPTION_KEY"`

	Sync    SyncConfig    `envPrefix:"SYNC_"`
	Tracing TracingConfig `envPrefix:"TRACING_"`
}

// SyncConfig controls the batch sync orchestrator.
type SyncConfig struct {
	// CronSpec schedules automatic syncs when running the API service.
	CronSpec string `env:"CRON" envDefault:"0 */12 * * *"`
	// MaxParallel bounds how many vendors sync concurrently.
	MaxParallel int `env:"MAX_PARALLEL" envDefault:"3"`
	// FetchTimeout caps a single vendor snapshot fetch.
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"2m"`
	// RunTimeout caps an entire scheduled batch run.
	RunTimeout time.Duration `env:"RUN_TIMEOUT" envDefault:"15m"`
	// SeatCosts enables monthly seat-cost records alongside usage deltas.
	SeatCosts bool `env:"SEAT_COSTS" envDefault:"true"`
}

// TracingConfig configures the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled          bool    `env:"ENABLED" envDefault:"false"`
	ExporterEndpoint string  `env:"EXPORTER_ENDPOINT"`
	ExporterProtocol string  `env:"EXPORTER_PROTOCOL" envDefault:"http"`
	SamplingRatio    float64 `env:"SAMPLING_RATIO" envDefault:"1.0"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Sync.MaxParallel <= 0 {
		cfg.Sync.MaxParallel = 1
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}
