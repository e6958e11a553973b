package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-sniper/internal/bot"
	"solana-sniper/internal/config"
	"solana-sniper/internal/execution"
	"solana-sniper/internal/filter"
	"solana-sniper/internal/listener"
	"solana-sniper/internal/market"
	"solana-sniper/internal/metadata"
	"solana-sniper/internal/notify"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/position"
	"solana-sniper/internal/snipelist"
	"solana-sniper/internal/solana"
)

const (
	webhookQueueSize = 256
	webhookTimeout   = 5 * time.Second
)

func runSniper(cmd *cobra.Command, _ []string) error {
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

	if err := cfg.Validate(); err != nil {
		return err
	}

	wallet, err := solana.KeypairFromBase58(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}

	botCfg, err := cfg.BotConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("solana_sniper", nil)
	metrics.StartTime.SetToCurrentTime()

	st, closeStores, err := openStores(ctx, cfg.UseMemory, cfg.PostgresDSN, cfg.ClickhouseDSN, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint,
		solana.WithCommitment(cfg.Commitment),
		solana.WithObserver(metrics.ObserveRPC),
	)

	markets := market.NewMarketCache(rpc, logger.Named("market"))
	raydium := market.NewRaydium(rpc, markets, logger.Named("market"))
	meta := metadata.NewRPCProvider(rpc, logger.Named("metadata"))

	filters := filter.Build(cfg.FilterConfig(), filter.Deps{
		RPC:         rpc,
		Market:      raydium,
		Descriptors: metadata.NewHTTPDescriptorFetcher(cfg.DescriptorTimeout),
		Now:         time.Now,
		Logger:      logger.Named("filter"),
	})
	pipeline := filter.NewPipeline(filters, meta, logger.Named("filter"))

	executor := execution.NewRPCExecutor(rpc, cfg.ExecutorConfig(), logger.Named("execution"))

	resolver := bot.NewResolver(raydium, st.pools)
	tracker := position.NewTracker(cfg.PositionConfig(), resolver,
		position.WithStore(st.positions),
		position.WithLogger(logger.Named("position")),
	)
	restored, err := tracker.Load(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	metrics.OpenPositions.Set(float64(restored))

	notifiers := notify.Multi{notify.NewLogNotifier(logger.Named("notify"))}
	if cfg.WebhookURL != "" {
		webhook := notify.NewWebhookNotifier(cfg.WebhookURL, webhookQueueSize, webhookTimeout, logger.Named("webhook"))
		defer webhook.Close()
		notifiers = append(notifiers, webhook)
	}

	deps := bot.Deps{
		RPC:      rpc,
		Market:   raydium,
		Gate:     pipeline,
		Executor: executor,
		Tracker:  tracker,
		Pools:    st.pools,
		Wallet:   wallet,
		Metadata: meta,
		Trades:   st.trades,
		Notifier: notifiers,
		Metrics:  metrics,
		Resolver: resolver,
		Logger:   logger.Named("bot"),
	}

	var snipe *snipelist.List
	if cfg.UseSnipeList {
		snipe = snipelist.New(cfg.SnipeListFile, logger.Named("snipelist"))
		if err := snipe.Load(); err != nil {
			return fmt.Errorf("load snipe list: %w", err)
		}
		deps.SnipeList = snipe
	}

	engine, err := bot.New(botCfg, deps)
	if err != nil {
		return err
	}

	if cfg.BuyEnabled {
		if err := engine.CheckWallet(ctx); err != nil {
			return err
		}
	}

	wsCfg := solana.DefaultWSConfig()
	wsCfg.Commitment = cfg.Commitment
	wsCfg.Logger = logger.Named("ws")

	ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, &wsCfg)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	started := time.Now()
	lst := listener.New(ws, listener.Config{
		QuoteMint:       botCfg.QuoteMint,
		Wallet:          wallet.PublicKey(),
		CacheNewMarkets: cfg.CacheNewMarkets,
		StartedAt:       started,
	}, engine, markets, metrics, logger.Named("listener"))

	status := &statusServer{
		started:   started,
		quoteMint: botCfg.QuoteMint,
		buying:    cfg.BuyEnabled,
		tracker:   tracker,
		pools:     st.pools,
		logger:    logger.Named("http"),
	}

	logger.Info("sniper started",
		zap.String("wallet", wallet.PublicKey().String()),
		zap.String("quote_mint", cfg.QuoteMint),
		zap.String("quote_amount", cfg.QuoteAmount.String()),
		zap.Bool("buy_enabled", cfg.BuyEnabled),
		zap.Bool("auto_sell", cfg.AutoSell),
		zap.Bool("use_snipe_list", cfg.UseSnipeList),
		zap.Strings("filters", pipeline.Names()),
		zap.Int("restored_positions", restored),
	)
	notifiers.Notify(ctx, notify.Event{
		Kind:    notify.KindStartup,
		Message: fmt.Sprintf("watching %s pools with %d filters", cfg.QuoteMint, len(filters)),
		At:      started,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return lst.Run(gctx)
	})
	g.Go(func() error {
		return status.Run(gctx, cfg.MetricsAddr)
	})
	if cfg.AutoSell {
		g.Go(func() error {
			return engine.RunExitMonitor(gctx, cfg.PriceCheckInterval)
		})
	}
	if snipe != nil {
		g.Go(func() error {
			return snipe.Run(gctx, cfg.SnipeListRefreshInterval)
		})
	}

	err = g.Wait()
	stop()
	engine.Wait()

	if err != nil {
		return err
	}
	logger.Info("sniper stopped")
	return nil
}
