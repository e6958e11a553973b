package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"solana-sniper/internal/config"
	"solana-sniper/internal/storage/migrations"
	pgstore "solana-sniper/internal/storage/postgres"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	if cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "" {
		return errors.New("migrate requires postgres-dsn and clickhouse-dsn")
	}

	ctx := cmd.Context()

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	applied, err := migrations.RunPostgresMigrations(ctx, pool, logger.Named("postgres"))
	if err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}
	logger.Info("postgres migrations applied", zap.Strings("files", applied))

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger.Named("clickhouse"))
	if err != nil {
		return fmt.Errorf("clickhouse migrations: %w", err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("close clickhouse: %w", err)
	}
	logger.Info("clickhouse migrations applied")

	return nil
}
