package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"solana-sniper/internal/config"
)

func runPositions(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	since, _ := cmd.Flags().GetDuration("since")

	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	if cfg.UseMemory {
		return errors.New("positions requires persistent storage: set use-memory=false")
	}

	ctx := cmd.Context()
	st, closeStores, err := openStores(ctx, false, cfg.PostgresDSN, cfg.ClickhouseDSN, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	positions, err := st.positions.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MINT\tSYMBOL\tPOOL\tOPENED\tCOST\tMIN ACQUIRED")
	for _, p := range positions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Mint, p.Symbol, p.PoolID, p.OpenedAt.UTC().Format(time.RFC3339),
			p.CostBasis.String(), p.MinAcquiredAmount.String())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if since <= 0 {
		return nil
	}

	end := time.Now()
	trades, err := st.trades.GetByTimeRange(ctx, end.Add(-since).UnixMilli(), end.UnixMilli())
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSIDE\tMINT\tSTATUS\tATTEMPTS\tEXIT\tSIGNATURE")
	for _, t := range trades {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			time.UnixMilli(t.StartedAt).UTC().Format(time.RFC3339), t.Side, t.Mint,
			t.Status, t.Attempts, t.ExitReason, t.Signature)
	}
	return w.Flush()
}
