// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/folio/internal/utils"
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for application data (always absolute)
	DBPath       string // Full path of the portfolio document (defaults to DataDir/db.json)
	Port         int
	LogLevel     string
	DevMode      bool
	GeminiAPIKey string // Empty key disables the language model; commands fall back to regex-only resolution
	GeminiModel  string
	SnapshotCron string        // Cron expression for the daily valuation snapshot
	SyncDebounce time.Duration // Quiet window after a commit before follow-up work runs
	CORSOrigins  []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FOLIO_DATA_DIR", "data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := getEnv("FOLIO_DB_PATH", "")
	if dbPath == "" {
		dbPath = filepath.Join(absDataDir, "db.json")
	}

	cfg := &Config{
		DataDir:      absDataDir,
		DBPath:       dbPath,
		Port:         getEnvAsInt("PORT", 8080),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		SnapshotCron: getEnv("SNAPSHOT_CRON", "5 0 * * *"),
		SyncDebounce: time.Duration(getEnvAsInt("SYNC_DEBOUNCE_MS", 2000)) * time.Millisecond,
		CORSOrigins:  utils.ParseCSV(getEnv("CORS_ORIGINS", "*")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
