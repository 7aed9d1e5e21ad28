package engine

import (
	"context"
	"time"

	"github.com/vela-markets/backtestcore/candle"
	"github.com/vela-markets/backtestcore/internal/coreerr"
	"github.com/vela-markets/backtestcore/portfolio"
	"github.com/vela-markets/backtestcore/strategy"
)

// Fetcher is the minimal surface the engine needs from a backfill fetcher
// (fetch.CryptoFetcher and fetch.EquitiesFetcher both satisfy it).
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, interval candle.Interval, start, end time.Time) ([]candle.Candle, error)
}

// Clock abstracts wall-clock reads so ExecutionTimeMS is reproducible in
// tests; New sets it to time.Now, and a nil Clock also falls back to
// time.Now.
type Clock func() time.Time

// Engine runs backtests against a Fetcher.
type Engine struct {
	Fetcher Fetcher
	Clock   Clock
}

// New constructs an Engine over the given fetcher.
func New(fetcher Fetcher) *Engine {
	return &Engine{Fetcher: fetcher, Clock: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// Run executes one deterministic backtest: fetch candles, replay them
// through strat, mutate a fresh Portfolio on every signal, and compute the
// final metrics bundle. Given identical config, strategy parameters and
// fetched candles, two Run calls produce byte-identical trades and metrics
// (SPEC_FULL.md §8 property 8).
func (e *Engine) Run(ctx context.Context, cfg Config, strat strategy.Strategy) (Result, error) {
	start := e.now()

	if !cfg.TStart.Before(cfg.TEnd) {
		return Result{}, coreerr.New(coreerr.BadRequest, "t_start must be before t_end")
	}
	if !cfg.InitialBalance.IsPositive() {
		return Result{}, coreerr.New(coreerr.BadRequest, "initial_balance must be positive")
	}

	candles, err := e.Fetcher.Fetch(ctx, cfg.Symbol, cfg.Interval, cfg.TStart, cfg.TEnd)
	if err != nil {
		return Result{}, err
	}
	if len(candles) == 0 {
		return Result{}, coreerr.New(coreerr.NotFound, "no candles in requested range")
	}

	if err := strat.Initialize(cfg.StrategyParameters); err != nil {
		return Result{}, coreerr.Wrap(coreerr.BadRequest, "strategy initialization failed", err)
	}

	p := portfolio.New(cfg.InitialBalance)
	var trades []Trade
	chart := make([]PerformancePoint, 0, len(candles))

	for i, c := range candles {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		p.UpdateTotalValue(c.Close)

		sig, err := strat.Analyze(candles, i)
		if err != nil {
			return Result{}, coreerr.Wrap(coreerr.Internal, "strategy analyze failed", err)
		}

		var marker *TradeType
		if sig != nil {
			switch sig.Kind {
			case strategy.Buy:
				qty := sig.QuoteAmount.Div(c.Close)
				var ok bool
				if cfg.UnlimitedCapital {
					ok = p.BuyWithInjection(c.Close, qty)
				} else {
					ok = p.Buy(c.Close, qty)
				}
				if ok {
					p.UpdateTotalValue(c.Close)
					tt := TradeBuy
					marker = &tt
					trades = append(trades, Trade{
						ID:               newRunID(),
						Timestamp:        c.CloseTime,
						Type:             TradeBuy,
						Price:            c.Close,
						Quantity:         qty,
						TotalValue:       sig.QuoteAmount,
						PortfolioValue:   p.TotalValue,
						BalanceRemaining: p.CashBalance,
						Reason:           strat.LastReason(),
					})
				}
			case strategy.Sell:
				ok := p.Sell(c.Close, sig.BaseQuantity)
				if ok {
					p.UpdateTotalValue(c.Close)
					tt := TradeSell
					marker = &tt
					trades = append(trades, Trade{
						ID:               newRunID(),
						Timestamp:        c.CloseTime,
						Type:             TradeSell,
						Price:            c.Close,
						Quantity:         sig.BaseQuantity,
						TotalValue:       c.Close.Mul(sig.BaseQuantity),
						PortfolioValue:   p.TotalValue,
						BalanceRemaining: p.CashBalance,
						Reason:           strat.LastReason(),
					})
				}
			}
		}

		chart = append(chart, PerformancePoint{
			Timestamp:      c.CloseTime,
			PortfolioValue: p.TotalValue,
			AssetPrice:     c.Close,
			TradeMarker:    marker,
		})
	}

	last := candles[len(candles)-1]
	p.UpdateTotalValue(last.Close)

	metrics := calculateMetrics(cfg, p, trades, candles)

	return Result{
		RunID:            newRunID(),
		Config:           cfg,
		Trades:           trades,
		Metrics:          metrics,
		PerformanceChart: chart,
		ExecutionTimeMS:  e.now().Sub(start).Milliseconds(),
	}, nil
}
