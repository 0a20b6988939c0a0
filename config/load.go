package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"quoter-go/infrastructure/logger"
	"quoter-go/market"
	"quoter-go/strategy"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string             `yaml:"env"`
	TradingPair string             `yaml:"tradingPair"`
	Owner       string             `yaml:"owner"`
	RPCEndpoint string             `yaml:"rpcEndpoint"`
	Market      market.MarketRules `yaml:"market"`
	Tick        TickConfig         `yaml:"tick"`
	Feeds       FeedsConfig        `yaml:"feeds"`
	Strategy    strategy.Config    `yaml:"strategy"`
	Logging     logger.Config      `yaml:"logging"`
	MetricsAddr string             `yaml:"metricsAddr"`
}

// TickConfig controls the controller loop cadence and gates.
type TickConfig struct {
	IntervalMs       int     `yaml:"intervalMs"`
	LookbackSec      int     `yaml:"lookbackSec"`
	WarmupSec        int     `yaml:"warmupSec"`
	MoveThresholdPct float64 `yaml:"moveThresholdPct"`
	WithdrawEvery    int     `yaml:"withdrawEvery"`
}

type FeedsConfig struct {
	Coinbase CoinbaseFeedConfig `yaml:"coinbase"`
	Binance  BinanceFeedConfig  `yaml:"binance"`
	// BookWeights weight the execution venue book and the primary
	// feed book in the move-gate mid.
	BookWeights [2]float64 `yaml:"bookWeights"`
	Primary     string     `yaml:"primary"`
}

type CoinbaseFeedConfig struct {
	URL           string `yaml:"url"`
	ProductID     string `yaml:"productId"`
	Key           string `yaml:"key"`
	Secret        string `yaml:"secret"`
	Passphrase    string `yaml:"passphrase"`
	IdleTimeoutMs int    `yaml:"idleTimeoutMs"`
}

type BinanceFeedConfig struct {
	URL           string `yaml:"url"`
	Symbol        string `yaml:"symbol"`
	IdleTimeoutMs int    `yaml:"idleTimeoutMs"`
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields
// from the environment. A .env file next to the process is honored
// when present but is never required.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("QUOTER_COINBASE_API_KEY"); v != "" {
		cfg.Feeds.Coinbase.Key = v
	}
	if v := os.Getenv("QUOTER_COINBASE_API_SECRET"); v != "" {
		cfg.Feeds.Coinbase.Secret = v
	}
	if v := os.Getenv("QUOTER_COINBASE_PASSPHRASE"); v != "" {
		cfg.Feeds.Coinbase.Passphrase = v
	}
	if v := os.Getenv("QUOTER_OWNER"); v != "" {
		cfg.Owner = v
	}
	if v := os.Getenv("QUOTER_RPC_ENDPOINT"); v != "" {
		cfg.RPCEndpoint = v
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Tick.IntervalMs == 0 {
		cfg.Tick.IntervalMs = 5000
	}
	if cfg.Tick.LookbackSec == 0 {
		cfg.Tick.LookbackSec = 60
	}
	if cfg.Tick.WithdrawEvery == 0 {
		cfg.Tick.WithdrawEvery = 5
	}
	if cfg.Feeds.BookWeights == [2]float64{} {
		cfg.Feeds.BookWeights = [2]float64{0.8, 0.2}
	}
	if cfg.Feeds.Primary == "" {
		cfg.Feeds.Primary = "coinbase"
	}
	if cfg.Feeds.Coinbase.URL == "" {
		cfg.Feeds.Coinbase.URL = "wss://ws-feed.exchange.coinbase.com"
	}
	if cfg.Feeds.Binance.URL == "" {
		cfg.Feeds.Binance.URL = "wss://stream.binance.com:9443"
	}
	if cfg.Strategy.LookbackSec == 0 {
		cfg.Strategy.LookbackSec = float64(cfg.Tick.LookbackSec)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging = logger.DefaultConfig()
	}
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.TradingPair == "" {
		return errors.New("tradingPair is required")
	}
	if cfg.Owner == "" {
		return errors.New("owner is required (or QUOTER_OWNER)")
	}
	if cfg.RPCEndpoint == "" {
		return errors.New("rpcEndpoint is required (or QUOTER_RPC_ENDPOINT)")
	}
	if cfg.Market.Base == "" || cfg.Market.Quote == "" {
		return errors.New("market.base/market.quote is required")
	}
	if cfg.Market.MinBaseIncrement <= 0 {
		return errors.New("market.minBaseIncrement must be > 0")
	}
	if cfg.Market.MinQuoteIncrement <= 0 {
		return errors.New("market.minQuoteIncrement must be > 0")
	}
	if cfg.Tick.IntervalMs <= 0 {
		return errors.New("tick.intervalMs must be > 0")
	}
	if cfg.Tick.LookbackSec <= 0 {
		return errors.New("tick.lookbackSec must be > 0")
	}
	if cfg.Tick.WarmupSec < 0 {
		return errors.New("tick.warmupSec must be >= 0")
	}
	if cfg.Tick.MoveThresholdPct < 0 {
		return errors.New("tick.moveThresholdPct must be >= 0")
	}
	if cfg.Feeds.Primary != "coinbase" && cfg.Feeds.Primary != "binance" {
		return fmt.Errorf("feeds.primary must be coinbase or binance, got %q", cfg.Feeds.Primary)
	}
	if cfg.Feeds.Coinbase.ProductID == "" {
		return errors.New("feeds.coinbase.productId is required")
	}
	if cfg.Feeds.Binance.Symbol == "" {
		return errors.New("feeds.binance.symbol is required")
	}
	if cfg.Strategy.Name == "" {
		return errors.New("strategy.name is required")
	}
	return nil
}
