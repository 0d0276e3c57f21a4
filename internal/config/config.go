// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/meridianlabs/meridian/internal/domain"
)

// Config holds application configuration, read once at startup from
// the environment (plus an optional .env file).
type Config struct {
	DataDir        string // base directory for databases and artifacts, always absolute
	Port           int
	LogLevel       string
	DevMode        bool
	ModelPath      string // msgpack model artifact; empty runs indicator-only
	EngineFile     string // optional yaml overriding scoring/risk weights
	ProfileName    string // conservative | balanced | aggressive
	InitialCash    float64
	FeedURL        string // websocket price feed; empty disables the feed client
	EvalSchedule   string // cron spec for the evaluation loop
	Watchlist      []string
	BackupEnabled  bool
	BackupBucket   string
	BackupRegion   string
	BackupEndpoint string // optional, for S3-compatible stores
	BackupKey      string
	BackupSecret   string
	BackupSchedule string // cron spec for ledger snapshots
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists.
	_ = godotenv.Load()

	dataDir := getEnv("MERIDIAN_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		Port:           getEnvAsInt("MERIDIAN_PORT", 8001),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		ModelPath:      getEnv("MERIDIAN_MODEL_PATH", ""),
		EngineFile:     getEnv("MERIDIAN_ENGINE_FILE", ""),
		ProfileName:    getEnv("MERIDIAN_PROFILE", "balanced"),
		InitialCash:    getEnvAsFloat("MERIDIAN_INITIAL_CASH", 100_000),
		FeedURL:        getEnv("MERIDIAN_FEED_URL", ""),
		EvalSchedule:   getEnv("MERIDIAN_EVAL_SCHEDULE", "@every 1m"),
		Watchlist:      splitList(getEnv("MERIDIAN_WATCHLIST", "")),
		BackupEnabled:  getEnvAsBool("MERIDIAN_BACKUP_ENABLED", false),
		BackupBucket:   getEnv("MERIDIAN_BACKUP_BUCKET", ""),
		BackupRegion:   getEnv("MERIDIAN_BACKUP_REGION", "eu-central-1"),
		BackupEndpoint: getEnv("MERIDIAN_BACKUP_ENDPOINT", ""),
		BackupKey:      getEnv("MERIDIAN_BACKUP_ACCESS_KEY", ""),
		BackupSecret:   getEnv("MERIDIAN_BACKUP_SECRET_KEY", ""),
		BackupSchedule: getEnv("MERIDIAN_BACKUP_SCHEDULE", "@hourly"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural validity; failures are fatal at startup.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrStructuralConfig, c.Port)
	}
	if c.InitialCash <= 0 {
		return fmt.Errorf("%w: initial cash must be positive", domain.ErrStructuralConfig)
	}
	switch c.ProfileName {
	case "conservative", "balanced", "aggressive":
	default:
		return fmt.Errorf("%w: unknown profile %q", domain.ErrStructuralConfig, c.ProfileName)
	}
	if c.BackupEnabled && c.BackupBucket == "" {
		return fmt.Errorf("%w: backup enabled without a bucket", domain.ErrStructuralConfig)
	}
	return nil
}

// LedgerPath returns the trade ledger database location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

func splitList(value string) []string {
	var out []string
	for _, token := range strings.Split(value, ",") {
		if token = strings.TrimSpace(token); token != "" {
			out = append(out, token)
		}
	}
	return out
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
