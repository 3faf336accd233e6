// Package config loads runtime configuration from an optional YAML file,
// a .env file and the process environment, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the binary needs to wire itself up.
type Config struct {
	// ListenAddr is the HTTP bind address for serve mode.
	ListenAddr string `yaml:"listen_addr"`

	// RedisAddr enables the Redis checkpoint store and distributed lock
	// when non-empty; otherwise state lives in process memory.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// DataDir enables the filesystem checkpoint store when non-empty and
	// Redis is not configured.
	DataDir string `yaml:"data_dir"`

	// SQLitePath points at the store catalogue database. Empty selects the
	// seeded in-memory catalogue.
	SQLitePath string `yaml:"sqlite_path"`

	// DefaultCustomerID identifies the customer for chat mode.
	DefaultCustomerID int `yaml:"default_customer_id"`

	// EncryptionKey enables at-rest encryption of checkpoints when set.
	// Base64-encoded 32-byte AES-256 key.
	EncryptionKey string `yaml:"encryption_key"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		ListenAddr:        ":8080",
		DefaultCustomerID: 1,
		LogLevel:          "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when empty or missing), then .env, then process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setStr(&cfg.ListenAddr, "CADENZA_LISTEN_ADDR")
	setStr(&cfg.RedisAddr, "CADENZA_REDIS_ADDR")
	setStr(&cfg.RedisPassword, "CADENZA_REDIS_PASSWORD")
	setInt(&cfg.RedisDB, "CADENZA_REDIS_DB")
	setStr(&cfg.DataDir, "CADENZA_DATA_DIR")
	setStr(&cfg.SQLitePath, "CADENZA_SQLITE_PATH")
	setInt(&cfg.DefaultCustomerID, "CADENZA_CUSTOMER_ID")
	setStr(&cfg.EncryptionKey, "CADENZA_ENCRYPTION_KEY")
	setStr(&cfg.LogLevel, "CADENZA_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
