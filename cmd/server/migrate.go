package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Giopap1991/ai-agents/internal/config"
	"github.com/Giopap1991/ai-agents/internal/db"
	"github.com/Giopap1991/ai-agents/internal/logging"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()

	store, err := db.Connect(ctx, cfg.DatabaseURL, cfg.RetryAttempts, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	logger.Info("schema applied", zap.String("database", "postgres"))
	return nil
}
