// Command engine runs the synthetic-pricing and cross-venue arbitrage
// pipeline: it feeds market data from one or more exchange sources through
// the aggregator, pricing models, mispricing detectors, and arbitrage
// engine, and serves the result over a read-only HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/archon-quant/synthalpha/internal/api"
	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/engine"
	"github.com/archon-quant/synthalpha/internal/feed"
	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/risk"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (YAML/JSON/TOML, layered over defaults)")
	httpAddr := flag.String("http", ":8080", "address for the read-only API and /metrics")
	mockFeed := flag.Bool("mock-feed", true, "use a simulated feed instead of connecting to Binance")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	log.Info().Str("env", cfg.App.Environment).Msg("starting synthalpha engine")

	universe := engine.Universe{
		SpotDerivative: []engine.SpotDerivativeSpec{
			{Target: "BTC-PERP", Components: []market.InstrumentId{"BTC-USD"}},
		},
		BasisPairs: []engine.BasisPairSpec{
			{Spot: "BTC-USD", Derivative: "BTC-PERP"},
		},
		Options: []engine.OptionsSpec{
			{
				Target:       "BTC-65000-C-30D",
				Underlying:   "BTC-USD",
				Strike:       65000,
				Expiry:       time.Now().Add(30 * 24 * time.Hour),
				IsCall:       true,
				RiskFreeRate: 0.02,
				SeedVol:      0.6,
			},
		},
	}

	// Kelly-candidate inputs: the engine does no P&L accounting or
	// backtesting (non-goals), so these are configured assumptions rather
	// than learned from trade history.
	assumptions := risk.Assumptions{
		WinRate:          0.55,
		AvgWin:           1.5,
		AvgLoss:          1.0,
		TargetVolatility: cfg.Risk.MaxIndividualVaR,
		BaseSize:         cfg.Arbitrage.MaxPositionSize * cfg.Risk.MaxPositionSizePercentage,
		PortfolioValue:   cfg.Arbitrage.MaxPositionSize / cfg.Risk.MaxPositionSizePercentage,
	}

	pipeline := engine.BuildPipeline(cfg, universe, assumptions, prometheus.DefaultRegisterer)

	sources := buildSources(cfg, *mockFeed)

	// Each exchange Source publishes onto an embedded NATS bus rather than
	// ingesting straight into the aggregator, decoupling the per-exchange
	// producer goroutines from the aggregator's single logical consumer
	// (§5's multi-producer/multi-consumer model). Depth and funding-rate
	// updates bypass the bus; see feed.BusSink.
	bus, err := feed.NewEmbeddedBus()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start market-data bus")
	}
	defer bus.Close()

	stopBridge, err := bus.Bridge(pipeline.Aggregator)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bridge market-data bus into aggregator")
	}
	defer stopBridge()

	sink := &feed.BusSink{Bus: bus, Direct: pipeline.Aggregator}

	server := api.NewServer(*httpAddr, pipeline)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		group.Go(func() error { return src.Run(gctx, sink) })
	}
	group.Go(func() error { return pipeline.Engine.Run(gctx) })
	group.Go(func() error {
		if err := server.Start(); err != nil {
			return err
		}
		return nil
	})

	<-gctx.Done()
	log.Info().Msg("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api server shutdown error")
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("pipeline exited with error")
		os.Exit(1)
	}
	log.Info().Msg("synthalpha engine stopped")
}

// buildSources returns the feed.Source set for the configured exchanges.
// mockFeed=true (the default) wires a simulated random-walk source so the
// binary runs end-to-end with no exchange credentials; set -mock-feed=false
// to stream live Binance book-ticker/trade data instead.
func buildSources(cfg config.Config, mockFeed bool) []feed.Source {
	if mockFeed {
		base := map[market.InstrumentId]float64{
			"BTC-USD":         65000,
			"BTC-PERP":        65010,
			"BTC-65000-C-30D": 2800,
		}
		return []feed.Source{feed.NewMockSource("mock", cfg.Feed.TickInterval, base, 1)}
	}

	perExchange := make(map[string]float64, len(cfg.Feed.RateLimitPerSec))
	for exchange, rate := range cfg.Feed.RateLimitPerSec {
		if v, err := strconv.ParseFloat(rate, 64); err == nil {
			perExchange[exchange] = v
		}
	}
	limits := feed.NewRateLimiters(10, 20, perExchange)
	symbols := []string{"BTCUSDT"}
	return []feed.Source{feed.NewResilientSource(feed.NewBinanceSource(symbols, limits))}
}
