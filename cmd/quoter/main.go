package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quoter-go/config"
	"quoter-go/engine"
	"quoter-go/exchange"
	"quoter-go/feed"
	"quoter-go/infrastructure/logger"
	"quoter-go/inventory"
	"quoter-go/metrics"
	"quoter-go/strategy"
	"quoter-go/wallet"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "config file path")
	dryRun := flag.Bool("dryRun", true, "use the in-process paper venue instead of live execution")
	metricsAddr := flag.String("metricsAddr", "", "prometheus listen address, overrides config when set")
	watchConfig := flag.Bool("watchConfig", true, "reload runtime-safe parameters on config file change")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Close()

	addr := cfg.MetricsAddr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr != "" {
		metrics.StartMetricsServer(addr)
		lg.Info("metrics server listening", zap.String("addr", addr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *cfgPath, *dryRun, *watchConfig, lg); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("quoter exited with error", zap.Error(err))
		return
	}
	lg.Info("quoter shut down")
}

func run(ctx context.Context, cfg config.AppConfig, cfgPath string, dryRun, watchConfig bool, lg *logger.Logger) error {
	lg.Info("starting quoter",
		zap.String("env", cfg.Env),
		zap.String("pair", cfg.TradingPair),
		zap.Bool("dry_run", dryRun))

	// Execution boundary. The paper venue keeps the full reconciliation
	// path exercised without touching a live market.
	exec := exchange.NewPaper(cfg.Market, 0)
	if !dryRun {
		lg.Warn("live execution not wired, falling back to paper venue")
	}

	walletProv := wallet.NewRPCProvider(cfg.RPCEndpoint)
	if _, err := walletProv.NativeBalance(ctx, cfg.Owner); err != nil {
		return err
	}
	lg.Info("connected to RPC", zap.String("endpoint", cfg.RPCEndpoint))

	inv := inventory.NewSynthesizer(exec, walletProv, cfg.Owner, nil, lg)

	lookback := time.Duration(cfg.Tick.LookbackSec) * time.Second
	cb := feed.NewCoinbaseSource(feed.CoinbaseConfig{
		URL:         cfg.Feeds.Coinbase.URL,
		ProductID:   cfg.Feeds.Coinbase.ProductID,
		Key:         cfg.Feeds.Coinbase.Key,
		Secret:      cfg.Feeds.Coinbase.Secret,
		Passphrase:  cfg.Feeds.Coinbase.Passphrase,
		IdleTimeout: time.Duration(cfg.Feeds.Coinbase.IdleTimeoutMs) * time.Millisecond,
		Retention:   lookback,
	}, lg)
	bn := feed.NewBinanceSource(feed.BinanceConfig{
		URL:         cfg.Feeds.Binance.URL,
		Symbol:      cfg.Feeds.Binance.Symbol,
		IdleTimeout: time.Duration(cfg.Feeds.Binance.IdleTimeoutMs) * time.Millisecond,
		Retention:   lookback,
	}, lg)
	agg := feed.NewAggregator(lg, cb, bn)
	agg.Start(ctx)

	strat, err := strategy.New(cfg.Strategy, cfg.Market, lg)
	if err != nil {
		return err
	}

	ctrl := engine.New(engine.Config{
		TickInterval:  time.Duration(cfg.Tick.IntervalMs) * time.Millisecond,
		Lookback:      lookback,
		WarmUp:        time.Duration(cfg.Tick.WarmupSec) * time.Second,
		MoveThreshold: cfg.Tick.MoveThresholdPct,
		WithdrawEvery: cfg.Tick.WithdrawEvery,
		BookWeights:   cfg.Feeds.BookWeights,
		PrimaryVenue:  feed.Venue(cfg.Feeds.Primary),
	}, agg, inv, strat, exec, lg)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(ctx)
	})
	if watchConfig {
		g.Go(func() error {
			w := config.Watcher{Path: cfgPath}
			err := w.Start(ctx, func(next config.AppConfig) {
				ctrl.UpdateSafeParams(
					time.Duration(next.Tick.IntervalMs)*time.Millisecond,
					next.Tick.MoveThresholdPct,
					next.Tick.WithdrawEvery,
				)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				lg.Warn("config watcher stopped", zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}
