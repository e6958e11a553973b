// Package config loads sniper settings from flags, environment variables
// (SNIPER_ prefix) and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"solana-sniper/internal/bot"
	"solana-sniper/internal/execution"
	"solana-sniper/internal/filter"
	"solana-sniper/internal/position"
	"solana-sniper/internal/solana"
)

// Config holds every runtime option.
type Config struct {
	RPCEndpoint string
	WSEndpoint  string
	PrivateKey  string
	Commitment  string

	QuoteMint   string // WSOL or USDC
	QuoteAmount decimal.Decimal

	BuyEnabled       bool
	OneTokenAtATime  bool
	MaxBuyRetries    int
	MaxSellRetries   int
	BuySlippage      decimal.Decimal
	SellSlippage     decimal.Decimal
	RetryDelay       time.Duration
	ComputeUnitLimit uint32
	ComputeUnitPrice uint64

	MinPoolSize            decimal.Decimal
	MaxPoolSize            decimal.Decimal
	MaxPoolAge             time.Duration
	MinMarketCap           decimal.Decimal
	CheckRenounced         bool
	CheckFreezable         bool
	CheckMutable           bool
	CheckSocials           bool
	CheckBurned            bool
	BurnedThresholdPercent decimal.Decimal
	BurnSinks              []string
	BlocklistNames         []string
	BlocklistSymbols       []string
	BlocklistFailClosed    bool
	DescriptorTimeout      time.Duration

	TakeProfit           decimal.Decimal
	StopLoss             decimal.Decimal
	MaxHoldDuration      time.Duration
	NameKeywords         []string
	NameKeywordExitAfter time.Duration

	ConsecutiveFilterMatches int
	FilterCheckInterval      time.Duration
	FilterCheckDuration      time.Duration

	UseSnipeList             bool
	SnipeListFile            string
	SnipeListRefreshInterval time.Duration

	AutoSell           bool
	PriceCheckInterval time.Duration
	CacheNewMarkets    bool

	UseMemory     bool
	PostgresDSN   string
	ClickhouseDSN string

	WebhookURL  string
	MetricsAddr string
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SNIPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	d := decimals{v: v}
	cfg := Config{
		RPCEndpoint: v.GetString("rpc-endpoint"),
		WSEndpoint:  v.GetString("ws-endpoint"),
		PrivateKey:  v.GetString("private-key"),
		Commitment:  v.GetString("commitment"),

		QuoteMint:   strings.ToUpper(v.GetString("quote-mint")),
		QuoteAmount: d.get("quote-amount"),

		BuyEnabled:       v.GetBool("buy-enabled"),
		OneTokenAtATime:  v.GetBool("one-token-at-a-time"),
		MaxBuyRetries:    v.GetInt("max-buy-retries"),
		MaxSellRetries:   v.GetInt("max-sell-retries"),
		BuySlippage:      d.get("buy-slippage"),
		SellSlippage:     d.get("sell-slippage"),
		RetryDelay:       v.GetDuration("retry-delay"),
		ComputeUnitLimit: v.GetUint32("compute-unit-limit"),
		ComputeUnitPrice: v.GetUint64("compute-unit-price"),

		MinPoolSize:            d.get("min-pool-size"),
		MaxPoolSize:            d.get("max-pool-size"),
		MaxPoolAge:             v.GetDuration("max-pool-age"),
		MinMarketCap:           d.get("min-market-cap"),
		CheckRenounced:         v.GetBool("check-renounced"),
		CheckFreezable:         v.GetBool("check-freezable"),
		CheckMutable:           v.GetBool("check-mutable"),
		CheckSocials:           v.GetBool("check-socials"),
		CheckBurned:            v.GetBool("check-burned"),
		BurnedThresholdPercent: d.get("burned-threshold-percent"),
		BurnSinks:              getStringSlice(v, "burn-sinks"),
		BlocklistNames:         getStringSlice(v, "blocklist-names"),
		BlocklistSymbols:       getStringSlice(v, "blocklist-symbols"),
		BlocklistFailClosed:    v.GetBool("blocklist-fail-closed"),
		DescriptorTimeout:      v.GetDuration("descriptor-timeout"),

		TakeProfit:           d.get("take-profit"),
		StopLoss:             d.get("stop-loss"),
		MaxHoldDuration:      v.GetDuration("max-hold-duration"),
		NameKeywords:         getStringSlice(v, "name-keywords"),
		NameKeywordExitAfter: v.GetDuration("name-keyword-exit-after"),

		ConsecutiveFilterMatches: v.GetInt("consecutive-filter-matches"),
		FilterCheckInterval:      v.GetDuration("filter-check-interval"),
		FilterCheckDuration:      v.GetDuration("filter-check-duration"),

		UseSnipeList:             v.GetBool("use-snipe-list"),
		SnipeListFile:            v.GetString("snipe-list-file"),
		SnipeListRefreshInterval: v.GetDuration("snipe-list-refresh-interval"),

		AutoSell:           v.GetBool("auto-sell"),
		PriceCheckInterval: v.GetDuration("price-check-interval"),
		CacheNewMarkets:    v.GetBool("cache-new-markets"),

		UseMemory:     v.GetBool("use-memory"),
		PostgresDSN:   v.GetString("postgres-dsn"),
		ClickhouseDSN: v.GetString("clickhouse-dsn"),

		WebhookURL:  v.GetString("webhook-url"),
		MetricsAddr: v.GetString("metrics-addr"),
		LogLevel:    v.GetString("log-level"),
	}
	if d.err != nil {
		return Config{}, d.err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("commitment", solana.CommitmentConfirmed)
	v.SetDefault("quote-mint", "WSOL")
	v.SetDefault("quote-amount", "0.001")

	v.SetDefault("buy-enabled", true)
	v.SetDefault("one-token-at-a-time", true)
	v.SetDefault("max-buy-retries", 10)
	v.SetDefault("max-sell-retries", 10)
	v.SetDefault("buy-slippage", "20")
	v.SetDefault("sell-slippage", "20")
	v.SetDefault("retry-delay", 500*time.Millisecond)
	v.SetDefault("compute-unit-limit", 101337)
	v.SetDefault("compute-unit-price", 421197)

	v.SetDefault("min-pool-size", "5")
	v.SetDefault("max-pool-size", "50")
	v.SetDefault("max-pool-age", time.Duration(0))
	v.SetDefault("min-market-cap", "0")
	v.SetDefault("check-renounced", true)
	v.SetDefault("check-freezable", false)
	v.SetDefault("check-mutable", false)
	v.SetDefault("check-socials", true)
	v.SetDefault("check-burned", true)
	v.SetDefault("burned-threshold-percent", "100")
	v.SetDefault("burn-sinks", filter.DefaultBurnSinks)
	v.SetDefault("blocklist-fail-closed", true)
	v.SetDefault("descriptor-timeout", 5*time.Second)

	v.SetDefault("take-profit", "40")
	v.SetDefault("stop-loss", "20")
	v.SetDefault("max-hold-duration", 10*time.Minute)
	v.SetDefault("name-keyword-exit-after", time.Duration(0))

	v.SetDefault("consecutive-filter-matches", 3)
	v.SetDefault("filter-check-interval", time.Duration(0))
	v.SetDefault("filter-check-duration", time.Duration(0))

	v.SetDefault("use-snipe-list", false)
	v.SetDefault("snipe-list-file", "snipe-list.txt")
	v.SetDefault("snipe-list-refresh-interval", 30*time.Second)

	v.SetDefault("auto-sell", true)
	v.SetDefault("price-check-interval", 2*time.Second)
	v.SetDefault("cache-new-markets", false)

	v.SetDefault("use-memory", true)

	v.SetDefault("metrics-addr", ":8080")
	v.SetDefault("log-level", "info")
}

// Validate returns the first invalid setting for the run command.
func (c Config) Validate() error {
	switch {
	case c.RPCEndpoint == "":
		return fmt.Errorf("rpc-endpoint is required")
	case c.WSEndpoint == "":
		return fmt.Errorf("ws-endpoint is required")
	case c.PrivateKey == "":
		return fmt.Errorf("private-key is required")
	}
	if _, err := c.QuoteMintAddress(); err != nil {
		return err
	}
	if !commitments[c.Commitment] {
		return fmt.Errorf("commitment %q must be processed, confirmed or finalized", c.Commitment)
	}
	if !c.QuoteAmount.IsPositive() {
		return fmt.Errorf("quote-amount must be positive, got %s", c.QuoteAmount)
	}
	if c.MaxBuyRetries < 1 || c.MaxSellRetries < 1 {
		return fmt.Errorf("max-buy-retries and max-sell-retries must be at least 1")
	}
	for _, s := range []setting{{"buy-slippage", c.BuySlippage}, {"sell-slippage", c.SellSlippage}} {
		if s.val.IsNegative() || s.val.GreaterThan(hundred) {
			return fmt.Errorf("%s must be within [0, 100], got %s", s.key, s.val)
		}
	}
	for _, s := range []setting{
		{"min-pool-size", c.MinPoolSize},
		{"max-pool-size", c.MaxPoolSize},
		{"min-market-cap", c.MinMarketCap},
		{"burned-threshold-percent", c.BurnedThresholdPercent},
		{"take-profit", c.TakeProfit},
		{"stop-loss", c.StopLoss},
	} {
		if s.val.IsNegative() {
			return fmt.Errorf("%s must not be negative, got %s", s.key, s.val)
		}
	}
	if c.MinPoolSize.IsPositive() && c.MaxPoolSize.IsPositive() && c.MinPoolSize.GreaterThan(c.MaxPoolSize) {
		return fmt.Errorf("min-pool-size %s exceeds max-pool-size %s", c.MinPoolSize, c.MaxPoolSize)
	}
	if c.ConsecutiveFilterMatches < 1 {
		return fmt.Errorf("consecutive-filter-matches must be at least 1")
	}
	if c.UseSnipeList && c.SnipeListFile == "" {
		return fmt.Errorf("use-snipe-list requires snipe-list-file")
	}
	if !c.UseMemory && (c.PostgresDSN == "" || c.ClickhouseDSN == "") {
		return fmt.Errorf("postgres-dsn and clickhouse-dsn are required unless use-memory is set")
	}
	if !logLevels[c.LogLevel] {
		return fmt.Errorf("log-level %q must be debug, info, warn or error", c.LogLevel)
	}
	return nil
}

type setting struct {
	key string
	val decimal.Decimal
}

var (
	hundred     = decimal.NewFromInt(100)
	commitments = map[string]bool{
		solana.CommitmentProcessed: true,
		solana.CommitmentConfirmed: true,
		solana.CommitmentFinalized: true,
	}
	logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// QuoteMintAddress resolves QuoteMint to its mint address.
func (c Config) QuoteMintAddress() (string, error) {
	switch c.QuoteMint {
	case "WSOL":
		return solana.WrappedSOLMint.String(), nil
	case "USDC":
		return solana.USDCMint.String(), nil
	default:
		return "", fmt.Errorf("quote-mint %q must be WSOL or USDC", c.QuoteMint)
	}
}

// FilterConfig returns the filter pipeline settings.
func (c Config) FilterConfig() filter.Config {
	return filter.Config{
		CheckBurned:            c.CheckBurned,
		BurnedThresholdPercent: c.BurnedThresholdPercent,
		BurnSinks:              c.BurnSinks,
		CheckRenounced:         c.CheckRenounced,
		CheckFreezable:         c.CheckFreezable,
		CheckMutable:           c.CheckMutable,
		CheckSocials:           c.CheckSocials,
		MinPoolSize:            c.MinPoolSize,
		MaxPoolSize:            c.MaxPoolSize,
		MaxPoolAge:             c.MaxPoolAge,
		MinMarketCap:           c.MinMarketCap,
		BlocklistNames:         c.BlocklistNames,
		BlocklistSymbols:       c.BlocklistSymbols,
		BlocklistFailClosed:    c.BlocklistFailClosed,
	}
}

// PositionConfig returns the exit criteria.
func (c Config) PositionConfig() position.Config {
	return position.Config{
		TakeProfitPercent:    c.TakeProfit,
		StopLossPercent:      c.StopLoss,
		MaxHoldDuration:      c.MaxHoldDuration,
		NameKeywords:         c.NameKeywords,
		NameKeywordExitAfter: c.NameKeywordExitAfter,
	}
}

// BotConfig returns the engine settings. QuoteMint must resolve.
func (c Config) BotConfig() (bot.Config, error) {
	quoteMint, err := c.QuoteMintAddress()
	if err != nil {
		return bot.Config{}, err
	}
	return bot.Config{
		QuoteMint:           quoteMint,
		QuoteAmount:         c.QuoteAmount,
		BuyEnabled:          c.BuyEnabled,
		AutoSell:            c.AutoSell,
		OneTokenAtATime:     c.OneTokenAtATime,
		MaxBuyRetries:       c.MaxBuyRetries,
		MaxSellRetries:      c.MaxSellRetries,
		RetryDelay:          c.RetryDelay,
		BuySlippage:         c.BuySlippage,
		SellSlippage:        c.SellSlippage,
		ComputeUnitLimit:    c.ComputeUnitLimit,
		ComputeUnitPrice:    c.ComputeUnitPrice,
		MaxPoolSize:         c.MaxPoolSize,
		ConsecutiveMatches:  c.ConsecutiveFilterMatches,
		FilterCheckInterval: c.FilterCheckInterval,
		FilterCheckDuration: c.FilterCheckDuration,
		UseSnipeList:        c.UseSnipeList,
	}, nil
}

// ExecutorConfig returns the settlement executor settings.
func (c Config) ExecutorConfig() execution.Config {
	cfg := execution.DefaultConfig()
	cfg.Commitment = c.Commitment
	return cfg
}

// decimals parses decimal settings, keeping the first error.
type decimals struct {
	v   *viper.Viper
	err error
}

func (d *decimals) get(key string) decimal.Decimal {
	raw := strings.TrimSpace(d.v.GetString(key))
	if raw == "" {
		return decimal.Zero
	}
	val, err := decimal.NewFromString(raw)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("parse %s: %w", key, err)
	}
	return val
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
