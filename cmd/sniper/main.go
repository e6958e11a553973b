// Command sniper watches Raydium for new pools, buys those that pass the
// configured filters and sells positions when an exit criterion fires.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// A missing .env is fine; real environment variables take precedence.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "sniper",
		Short:        "Solana Raydium pool sniper",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("use-memory", true, "use in-memory storage instead of PostgreSQL/ClickHouse")
	root.PersistentFlags().String("postgres-dsn", "", "PostgreSQL connection string")
	root.PersistentFlags().String("clickhouse-dsn", "", "ClickHouse connection string")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for new pools and trade",
		RunE:  runSniper,
	}

	runCmd.Flags().String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	runCmd.Flags().String("ws-endpoint", "", "Solana WebSocket endpoint")
	runCmd.Flags().String("commitment", "confirmed", "commitment level (processed, confirmed, finalized)")
	runCmd.Flags().String("quote-mint", "WSOL", "quote asset (WSOL or USDC)")
	runCmd.Flags().String("quote-amount", "0.001", "quote amount spent per buy")
	runCmd.Flags().Bool("buy-enabled", true, "submit buys; false runs in monitor-only mode")
	runCmd.Flags().Bool("auto-sell", true, "sell positions when an exit criterion fires")
	runCmd.Flags().Bool("one-token-at-a-time", true, "hold the acquisition lock for the whole buy")
	runCmd.Flags().Bool("cache-new-markets", false, "subscribe to OpenBook markets")
	runCmd.Flags().Bool("use-snipe-list", false, "only buy mints listed in the snipe list file")
	runCmd.Flags().String("snipe-list-file", "snipe-list.txt", "snipe list file")
	runCmd.Flags().String("webhook-url", "", "POST trade notifications to this URL")
	runCmd.Flags().String("metrics-addr", ":8080", "HTTP address for /health, /metrics and /status")

	root.AddCommand(runCmd)

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "List persisted open positions and recent trades",
		RunE:  runPositions,
	}
	positionsCmd.Flags().Duration("since", 0, "also list trades started within this window")

	root.AddCommand(positionsCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded PostgreSQL and ClickHouse migrations",
		RunE:  runMigrate,
	}

	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
