package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 1, cfg.DefaultCustomerID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadYAMLAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cadenza.yaml")
	yaml := "listen_addr: \":9090\"\nredis_addr: \"file:6379\"\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CADENZA_REDIS_ADDR", "env:6379")
	t.Setenv("CADENZA_CUSTOMER_ID", "42")

	cfg, err := Load(path)
	require.NoError(t, err)

	// File overrides defaults; environment overrides the file.
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "env:6379", cfg.RedisAddr)
	assert.Equal(t, 42, cfg.DefaultCustomerID)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadStorageSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cadenza.yaml")
	yaml := "data_dir: /var/lib/cadenza\nsqlite_path: /var/lib/chinook.db\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CADENZA_ENCRYPTION_KEY", "c2VjcmV0")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/cadenza", cfg.DataDir)
	assert.Equal(t, "/var/lib/chinook.db", cfg.SQLitePath)
	assert.Equal(t, "c2VjcmV0", cfg.EncryptionKey)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}
