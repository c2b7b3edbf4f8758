// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir           string // Base directory for the results database and backup staging
	LogLevel          string
	Port              int
	DevMode           bool
	SweepWorkers      int     // Concurrent theta samples per sweep (0 = one per CPU)
	ToleranceFraction float64 // Default classifier tolerance as a fraction of the Hamiltonian bound
	Backup            *BackupConfig
}

// BackupConfig holds S3-compatible backup storage configuration.
// Backups stay disabled unless an endpoint and bucket are configured.
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // S3-compatible endpoint URL
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	RetainCount     int // Number of remote backups to keep
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory, always resolved to an absolute path so a
	// changing working directory cannot split the data.
	dataDir := getEnv("HARMONIA_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Port:              getEnvAsInt("HARMONIA_PORT", 8010),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SweepWorkers:      getEnvAsInt("SWEEP_WORKERS", 0),
		ToleranceFraction: getEnvAsFloat("CLASSIFIER_TOLERANCE", 0.05),
		Backup:            loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration values, naming the offending field.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid HARMONIA_PORT: %d", c.Port)
	}
	if c.ToleranceFraction <= 0 || c.ToleranceFraction >= 1 {
		return fmt.Errorf("invalid CLASSIFIER_TOLERANCE: %v (must be in (0,1))", c.ToleranceFraction)
	}
	if c.SweepWorkers < 0 {
		return fmt.Errorf("invalid SWEEP_WORKERS: %d", c.SweepWorkers)
	}
	if c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("backup enabled but BACKUP_BUCKET is empty")
		}
		if c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("backup enabled but BACKUP_ACCESS_KEY_ID / BACKUP_SECRET_ACCESS_KEY are not set")
		}
	}
	return nil
}

// ResultsDBPath returns the path of the results database.
func (c *Config) ResultsDBPath() string {
	return filepath.Join(c.DataDir, "results.db")
}

func loadBackupConfig() *BackupConfig {
	endpoint := getEnv("BACKUP_ENDPOINT", "")
	bucket := getEnv("BACKUP_BUCKET", "")

	return &BackupConfig{
		Enabled:         endpoint != "" && bucket != "",
		Endpoint:        endpoint,
		Region:          getEnv("BACKUP_REGION", "auto"),
		Bucket:          bucket,
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		RetainCount:     getEnvAsInt("BACKUP_RETAIN_COUNT", 7),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
