// Package engine implements the deterministic backtest replay loop: it
// fetches a candle range, replays it through a strategy, mutates a
// simulated portfolio on every signal, and reports a metrics bundle.
//
// Grounded on original_source/backend/src/backtesting/engine.rs's
// run_backtest/calculate_metrics/calculate_max_drawdown/calculate_volatility.
// The loop shape (iterate candles, periodic state update, respect
// ctx.Done()) follows the teacher's backtest.go walk-forward loop
// (`for i := 100; i < len(test); i++ { ... select { case <-ctx.Done(): } }`).
package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vela-markets/backtestcore/candle"
)

// Config describes one backtest run.
type Config struct {
	Symbol             string
	Interval           candle.Interval
	TStart             time.Time
	TEnd               time.Time
	InitialBalance     decimal.Decimal
	StrategyParameters map[string]any
	StopLossPct        *float64
	TakeProfitPct      *float64
	UnlimitedCapital   bool
}

// TradeType distinguishes a Buy fill from a Sell fill in the trade log.
type TradeType int

const (
	TradeBuy TradeType = iota
	TradeSell
)

// Trade is one executed fill, appended to the engine's trade log.
type Trade struct {
	ID               string
	Timestamp        time.Time
	Type             TradeType
	Price            decimal.Decimal
	Quantity         decimal.Decimal
	TotalValue       decimal.Decimal
	PortfolioValue   decimal.Decimal
	BalanceRemaining decimal.Decimal
	Reason           string
}

// PerformancePoint is one sample of the equity curve, accumulated once per
// replayed candle (SPEC_FULL.md §3/§4.7 supplement).
type PerformancePoint struct {
	Timestamp      time.Time
	PortfolioValue decimal.Decimal
	AssetPrice     decimal.Decimal
	TradeMarker    *TradeType
}

// Metrics is the bundle of performance statistics computed at the end of a
// run (SPEC_FULL.md §3, with the realized/unrealized PnL and
// invested/closed/open-trade supplement).
type Metrics struct {
	TotalReturn      decimal.Decimal
	TotalReturnPct   decimal.Decimal
	AnnualizedReturn *decimal.Decimal
	SharpeRatio      *decimal.Decimal
	MaxDrawdown      decimal.Decimal
	Volatility       decimal.Decimal
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
	WinRate          decimal.Decimal
	AverageWin       decimal.Decimal
	AverageLoss      decimal.Decimal
	ProfitFactor     *decimal.Decimal
	FinalValue       decimal.Decimal

	TotalInvested decimal.Decimal
	ClosedTrades  int
	OpenTrades    int
	RealizedPnL   decimal.Decimal
	UnrealizedPnL decimal.Decimal

	// BenchmarkReturn/Alpha/Beta are present in the bundle's shape (matching
	// the original's BacktestMetrics) but stay nil: no benchmark series is
	// supplied by this core.
	BenchmarkReturn *decimal.Decimal
	Alpha           *decimal.Decimal
	Beta            *decimal.Decimal
}

// Result is the full output of one backtest run.
type Result struct {
	RunID            string
	Config           Config
	Trades           []Trade
	Metrics          Metrics
	PerformanceChart []PerformancePoint
	ExecutionTimeMS  int64
}

func newRunID() string { return uuid.New().String() }
