package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethanbaker/mentor/internal/api"
	stores "github.com/ethanbaker/mentor/internal/stores/conversation"
	"github.com/ethanbaker/mentor/pkg/utils"
)

// Start the API server
func main() {
	// Find env file
	envFile := ".env"
	if os.Getenv("ENV_FILE") != "" {
		envFile = os.Getenv("ENV_FILE")
	}

	// Load global config
	cfg := utils.NewConfigFromEnv(envFile)

	// Set up logging
	logger, closeLog := utils.SetupLogger(cfg.Get("LOG_FILE"), utils.ParseLogLevel(cfg.GetWithDefault("LOG_LEVEL", "info")))
	defer closeLog()
	slog.SetDefault(logger)

	// Open the conversation store
	store, closeStore, err := stores.Open(cfg)
	if err != nil {
		slog.Error("failed to open conversation store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start
	if err := api.Start(ctx, cfg, store); err != nil {
		slog.Error("API server stopped", "error", err)
		os.Exit(1)
	}
}
