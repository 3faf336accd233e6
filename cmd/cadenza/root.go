package main

import (
	"encoding/base64"
	"fmt"
	"os"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/harmonyshop/cadenza"
	"github.com/harmonyshop/cadenza/internal/catalog"
	"github.com/harmonyshop/cadenza/internal/config"
	"github.com/harmonyshop/cadenza/internal/logging"
	"github.com/harmonyshop/cadenza/pkg/adapters/file"
	"github.com/harmonyshop/cadenza/pkg/adapters/memory"
	"github.com/harmonyshop/cadenza/pkg/adapters/redis"
	"github.com/harmonyshop/cadenza/pkg/observability"
	"github.com/harmonyshop/cadenza/pkg/persistence/middleware"
	"github.com/harmonyshop/cadenza/pkg/ports"
)

var rootCmd = &cobra.Command{
	Use:   "cadenza",
	Short: "Cadenza is a durable conversational workflow engine for a music store",
	Long: `Cadenza runs music-store support conversations as checkpointed workflows:
email verification, song identification from lyrics, and track purchases,
all resumable across restarts.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
}

// buildEngine wires an Engine from configuration. The returned cleanup
// closes any opened backends.
func buildEngine(cmd *cobra.Command, metrics *observability.Metrics) (*cadenza.Engine, config.Config, func(), error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, cfg, nil, err
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel))
	cleanup := func() {}

	opts := []cadenza.Option{
		cadenza.WithLogger(logger),
		cadenza.WithUserID(cfg.DefaultCustomerID),
	}
	if metrics != nil {
		opts = append(opts, cadenza.WithMetrics(metrics))
	}

	var store ports.CheckpointStore = memory.NewStore()
	if cfg.DataDir != "" {
		store = file.New(cfg.DataDir)
	}
	if cfg.RedisAddr != "" {
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = redis.NewFromClient(client)
		opts = append(opts, cadenza.WithLocker(redis.NewLocker(client, "cadenza:")))
		cleanup = func() { client.Close() }
	}

	mws := []middleware.Middleware{middleware.NewRedactionMiddleware()}
	if cfg.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
		if err != nil || len(key) != 32 {
			cleanup()
			return nil, cfg, nil, fmt.Errorf("encryption key must be base64 of 32 bytes")
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	opts = append(opts, cadenza.WithStore(middleware.Chain(store, mws...)))

	if cfg.SQLitePath != "" {
		cat, err := catalog.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			cleanup()
			return nil, cfg, nil, err
		}
		opts = append(opts, cadenza.WithCatalog(cat))
		prev := cleanup
		cleanup = func() {
			cat.Close()
			prev()
		}
	}

	return cadenza.New(opts...), cfg, cleanup, nil
}
