// Command backtestd is the entrypoint for running one or more historical
// backtests. Boot sequence and HTTP wiring follow the teacher's main.go
// shape verbatim: load env, build config, wire collaborators, start a
// Prometheus /metrics + /healthz server, run the requested work, then
// shut the server down gracefully on signal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/vela-markets/backtestcore/cache"
	"github.com/vela-markets/backtestcore/candle"
	"github.com/vela-markets/backtestcore/engine"
	"github.com/vela-markets/backtestcore/fetch"
	"github.com/vela-markets/backtestcore/internal/appconfig"
	"github.com/vela-markets/backtestcore/internal/obs"
	"github.com/vela-markets/backtestcore/ratelimit"
	"github.com/vela-markets/backtestcore/strategy"
	"github.com/vela-markets/backtestcore/strategy/dca"
	"github.com/vela-markets/backtestcore/strategy/smacross"
)

func main() {
	var (
		symbol       string
		intervalFlag string
		strategyName string
		scenarioPath string
		listStrategies bool
		port         int
		venue        string
	)
	flag.StringVar(&symbol, "symbol", "BTCUSDT", "Symbol to backtest")
	flag.StringVar(&intervalFlag, "interval", "1h", "Candle interval")
	flag.StringVar(&strategyName, "strategy", "dca", "Registered strategy name")
	flag.StringVar(&scenarioPath, "scenario", "", "Path to a YAML batch-scenario file")
	flag.BoolVar(&listStrategies, "list-strategies", false, "Print registered strategy names and exit")
	flag.IntVar(&port, "port", 9090, "Port for /healthz and /metrics")
	flag.StringVar(&venue, "venue", "crypto", "Venue transport to use (crypto|equities)")
	flag.Parse()

	appconfig.LoadDotEnv()
	cfg := appconfig.LoadFromEnv()
	obs.SetLevel(os.Getenv("LOG_LEVEL"))

	registry := buildRegistry()
	if listStrategies {
		for _, name := range registry.Names() {
			fmt.Println(name)
		}
		return
	}

	c := cache.New(cache.Config{
		MaxSizeMB:        cfg.MaxCacheSizeMB,
		TTL:              time.Duration(cfg.CacheTTLSeconds) * time.Second,
		HotTTL:           time.Duration(cfg.CacheHotTTLSeconds) * time.Second,
		HotThreshold:     uint32(cfg.CacheHotThreshold),
		EvictionFraction: cfg.CacheEvictionFraction,
	}, cache.WithStatsObserver(func(s cache.Stats) {
		obs.CacheEntries.Set(float64(s.Entries))
		obs.CacheHotEntries.Set(float64(s.HotEntries))
		obs.CacheEstimatedSizeMB.Set(s.EstimatedSizeMB)
	}))

	lim := ratelimit.New(venue, cfg.RateLimitWeightPerMinute, ratelimit.WithObserver(func(v string, used, _ int) {
		obs.RateLimiterWeightUsed.WithLabelValues(v).Set(float64(used))
	}))

	transport := fetch.NewHTTPTransport(cfg.VenueHTTPTimeout)

	var fetcher engine.Fetcher
	if venue == "equities" {
		fetcher = fetch.NewEquitiesFetcher(venue, cfg.VenueAPIBaseURL, os.Getenv("VENUE_API_KEY"), c, transport)
	} else {
		fetcher = fetch.NewCryptoFetcher(venue, cfg.VenueAPIBaseURL, c, lim, transport)
	}

	eng := engine.New(fetcher)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		obs.Log.Info().Int("port", port).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Log.Fatal().Err(err).Msg("http server")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	interval := candle.Interval(intervalFlag)

	if scenarioPath != "" {
		if err := runScenarioFile(ctx, eng, registry, scenarioPath); err != nil {
			obs.Log.Error().Err(err).Msg("scenario run failed")
		}
	} else {
		strat, ok := registry.Get(strategyName)
		if !ok {
			obs.Log.Fatal().Str("strategy", strategyName).Msg("unknown strategy")
		}
		runOne(ctx, eng, strat, symbol, interval)
	}

	shutdownCtx, c2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer c2()
	_ = srv.Shutdown(shutdownCtx)
}

func buildRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register("dca", func() strategy.Strategy { return dca.New() })
	r.Register("sma_crossover", func() strategy.Strategy { return smacross.New() })
	return r
}

func runOne(ctx context.Context, eng *engine.Engine, strat strategy.Strategy, symbol string, interval candle.Interval) {
	end := time.Now().UTC()
	start := end.Add(-30 * 24 * time.Hour)

	cfg := engine.Config{
		Symbol:         symbol,
		Interval:       interval,
		TStart:         start,
		TEnd:           end,
		InitialBalance: decimal.NewFromInt(10000),
		StrategyParameters: map[string]any{
			"config": dca.SimpleConfig(decimal.NewFromInt(50), dca.Frequency{Unit: dca.Daily, N: 1}),
		},
	}

	result, err := eng.Run(ctx, cfg, strat)
	if err != nil {
		obs.BacktestRuns.WithLabelValues("error").Inc()
		obs.Log.Error().Err(err).Msg("backtest failed")
		return
	}
	obs.BacktestRuns.WithLabelValues("ok").Inc()
	obs.BacktestEquity.Set(mustFloat(result.Metrics.FinalValue))
	obs.Log.Info().
		Str("run_id", result.RunID).
		Int("trades", result.Metrics.TotalTrades).
		Str("total_return_pct", result.Metrics.TotalReturnPct.String()).
		Msg("backtest complete")
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
