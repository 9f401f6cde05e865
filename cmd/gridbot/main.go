// Command gridbot is a single-instrument grid market-making agent for a
// perpetual-futures venue: it maintains a symmetric ladder of post-only
// limit orders around the mid-price, rebalances it every tick, and
// suspends trading when RSI/ADX classify the market as trending.
//
// Architecture:
//
//	main.go                 — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	internal/supervisor/    — tick loop: session -> indicator -> risk gate -> grid controller
//	internal/exchange/      — venue adapter: signed wire protocol, session state machine, rate limits
//	internal/tracker/       — local order-book mirror (the venue has no order-query endpoint)
//	internal/indicator/     — RSI(14) / Wilder ADX(14) from an external OHLCV feed
//	internal/riskgate/      — regime classifier and cool-down state
//	internal/grid/          — ladder geometry, diffing, placement
//	internal/signer/        — secp256k1 signing for the two wire signature shapes
//	internal/wire/          — varint length-prefixed frame codec
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gridmm/internal/config"
	"gridmm/internal/exchange"
	"gridmm/internal/grid"
	"gridmm/internal/indicator"
	"gridmm/internal/riskgate"
	"gridmm/internal/signer"
	"gridmm/internal/supervisor"
	"gridmm/internal/tracker"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("GRID_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	identity, err := signer.FromBase58(cfg.Identity.IdentityKeyBase58)
	if err != nil {
		logger.Error("failed to load identity key", "error", err)
		os.Exit(1)
	}

	tr := tracker.New()

	var opts []exchange.Option
	opts = append(opts, exchange.WithDryRun(cfg.DryRun))

	var tobFeed *exchange.TopOfBookFeed
	if cfg.API.WSURL != "" {
		cache := exchange.NewTopOfBookCache(cfg.CycleInterval())
		tobFeed = exchange.NewTopOfBookFeed(cfg.API.WSURL, cfg.Market.MarketID, cache, logger)
		opts = append(opts, exchange.WithTopOfBookCache(cache))
	}

	client := exchange.NewClient(cfg.API.BaseURL, identity, tr, cfg.Identity.SessionRenewBefore(), logger, opts...)

	indicatorBaseURL := cfg.Indicator.BaseURL
	if indicatorBaseURL == "" {
		indicatorBaseURL = cfg.API.BaseURL
	}
	feed := indicator.NewHTTPFeed(indicatorBaseURL, cfg.RequestTimeout())
	engine := indicator.NewEngine(feed, cfg.Indicator.Symbol, cfg.Indicator.Timeframe, logger)

	gate := riskgate.New(riskgate.Config{
		RSIMin:            cfg.Regime.RSIMin,
		RSIMax:            cfg.Regime.RSIMax,
		ADXTrendThreshold: cfg.Regime.ADXTrendThreshold,
		ADXStrongTrend:    cfg.Regime.ADXStrongTrend,
		CooldownDuration:  cfg.CooldownDuration(),
	}, logger)

	controller := grid.NewController(client, tr, cfg.Market.MarketID, grid.Config{
		TotalOrders:   cfg.Strategy.TotalOrders,
		WindowPercent: cfg.Strategy.WindowPercent,
		SafeGap:       cfg.Strategy.SafeGap,
		GridSpacing:   cfg.Strategy.GridSpacing,
		OrderSize:     cfg.Strategy.OrderSize,
		MaxMultiplier: cfg.Strategy.MaxMultiplier,
		TickSize:      cfg.Strategy.TickSize,
	}, logger)

	supCfg := supervisor.DefaultConfig(cfg.Market.MarketID)
	supCfg.CycleInterval = cfg.CycleInterval()
	supCfg.Backoff = cfg.Backoff()
	supCfg.FlattenOnShutdown = cfg.Risk.FlattenOnShutdown
	sup := supervisor.New(supCfg, client, engine, gate, controller, client, client, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if tobFeed != nil {
		go func() {
			if err := tobFeed.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("top-of-book feed stopped", "error", err)
			}
		}()
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}
	logger.Info("gridbot started",
		"market_id", cfg.Market.MarketID,
		"total_orders", cfg.Strategy.TotalOrders,
		"cycle_interval", supCfg.CycleInterval,
		"dry_run", cfg.DryRun,
	)

	if err := sup.Run(ctx); err != nil {
		logger.Error("supervisor exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
