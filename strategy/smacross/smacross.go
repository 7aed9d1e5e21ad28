// Package smacross implements the SMA-crossover strategy family: a
// fast/slow moving-average crossover with stop-loss, take-profit, trailing
// stop and a small confirmation-filter set.
//
// Grounded directly on SPEC_FULL.md §4.6.2 (no original_source file for
// this family was available in the retrieved pack; the state machine and
// tie-break rule are implemented exactly as specified). SMA/RSI inputs use
// github.com/markcheno/go-talib, consistent with the DCA family's
// indicator sourcing (SPEC_FULL.md §4.6.1/§4.6.2).
package smacross

import (
	"fmt"
	"time"

	talib "github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
	"github.com/vela-markets/backtestcore/candle"
	"github.com/vela-markets/backtestcore/strategy"
)

// Position is the strategy's internal state-machine position.
type Position int

const (
	Flat Position = iota
	Long
	Short
)

// Config is the full SMA-crossover parameter set.
type Config struct {
	FastPeriod int
	SlowPeriod int

	PositionSizePct decimal.Decimal
	EnableLong      bool
	EnableShort     bool

	StopLossPct           *float64
	TakeProfitPct         *float64
	MaxPositionSize       *decimal.Decimal
	MinSignalInterval     time.Duration
	TrailingStopEnabled   bool
	TrailingActivationPct float64
	TrailingDistancePct   float64

	MinVolume          decimal.Decimal
	MaxSpreadPct       float64
	RSIOverbought      float64
	RSIOversold        float64
	RequireMACDConfirm bool
	MinSMASpreadPct    float64

	UseMarketOrders bool
}

func (c Config) Validate() error {
	if c.FastPeriod < 2 {
		return fmt.Errorf("fast_period must be >= 2")
	}
	if c.SlowPeriod < 3 {
		return fmt.Errorf("slow_period must be >= 3")
	}
	if c.FastPeriod >= c.SlowPeriod {
		return fmt.Errorf("fast_period must be less than slow_period")
	}
	return nil
}

// Strategy implements strategy.Strategy for the SMA-crossover family.
type Strategy struct {
	cfg Config

	position     Position
	entryPrice   decimal.Decimal
	trailingStop decimal.Decimal
	lastSignal   time.Time
	hasSignaled  bool
	lastReason   string
}

func New() *Strategy { return &Strategy{} }

func (s *Strategy) Initialize(params map[string]any) error {
	raw, ok := params["config"]
	if !ok {
		return fmt.Errorf("smacross: params must contain \"config\"")
	}
	cfg, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("smacross: params[\"config\"] must be a smacross.Config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	s.position = Flat
	return nil
}

func (s *Strategy) ValidateParameters(params map[string]any) error {
	raw, ok := params["config"]
	if !ok {
		return fmt.Errorf("smacross: params must contain \"config\"")
	}
	cfg, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("smacross: params[\"config\"] must be a smacross.Config")
	}
	return cfg.Validate()
}

func (s *Strategy) Name() string        { return "sma_crossover" }
func (s *Strategy) Description() string { return "Fast/slow SMA crossover with stop-loss, take-profit and trailing stop" }
func (s *Strategy) LastReason() string  { return s.lastReason }

func (s *Strategy) ParameterSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"fast_period", "slow_period"},
		"properties": map[string]any{
			"fast_period": map[string]any{"type": "integer", "minimum": 2},
			"slow_period": map[string]any{"type": "integer", "minimum": 3},
		},
	}
}

func (s *Strategy) Metadata() strategy.Metadata {
	return strategy.Metadata{
		ID:          "sma_crossover",
		Name:        "SMA Crossover",
		Description: s.Description(),
		Version:     "1.0",
		Category:    "trend_following",
		RiskLevel:   "medium",
		MinBalance:  decimal.Zero,
		MaxPositions: 1,
		SupportedIntervals: []candle.Interval{
			candle.Interval15m, candle.Interval1h, candle.Interval4h, candle.Interval1d,
		},
	}
}

func closeSeries(candles []candle.Candle, upto int) []float64 {
	out := make([]float64, upto+1)
	for i := 0; i <= upto; i++ {
		f, _ := candles[i].Close.Float64()
		out[i] = f
	}
	return out
}

// defaultConfirmationRSIPeriod/macd* parameterize the RSI/MACD confirmation
// indicators. The spec (§4.6.2) names only threshold fields
// (RSIOverbought/RSIOversold/RequireMACDConfirm), not their underlying
// periods, so this family uses the conventional defaults go-talib's own
// examples use (RSI-14, MACD 12/26/9), the same way the DCA family falls
// back to a 20-candle volatility window when none is configured.
const (
	defaultConfirmationRSIPeriod = 14
	macdFastPeriod               = 12
	macdSlowPeriod               = 26
	macdSignalPeriod             = 9
)

// rsiAt returns the RSI value at index i, or false if there isn't yet
// enough history for the configured period.
func rsiAt(candles []candle.Candle, i, period int) (float64, bool) {
	if i+1 < period+1 {
		return 0, false
	}
	series := closeSeries(candles, i)
	out := talib.Rsi(series, period)
	return out[len(out)-1], true
}

// macdAt returns the MACD and signal line values at index i, or false if
// there isn't yet enough history for the standard 12/26/9 periods.
func macdAt(candles []candle.Candle, i int) (macdLine, signalLine float64, ok bool) {
	if i+1 < macdSlowPeriod+macdSignalPeriod {
		return 0, 0, false
	}
	series := closeSeries(candles, i)
	macd, signal, _ := talib.Macd(series, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	n := len(macd)
	return macd[n-1], signal[n-1], true
}

// Analyze implements the state machine and tie-break rule of
// SPEC_FULL.md §4.6.2: a same-candle stop-loss always wins over a
// crossover, which is re-evaluated on the next candle.
func (s *Strategy) Analyze(candles []candle.Candle, index int) (*strategy.Signal, error) {
	if index < 0 || index >= len(candles) {
		return nil, fmt.Errorf("smacross: index %d out of range", index)
	}
	if index < s.cfg.SlowPeriod {
		s.lastReason = "warming up: insufficient history for slow SMA"
		return nil, nil
	}

	c := candles[index]

	if s.position != Flat {
		if sig, hit := s.checkRiskExits(c); hit {
			s.lastReason = sig.reason
			s.position = Flat
			return sig.signal, nil
		}
	}

	if s.cfg.MinSignalInterval > 0 && s.hasSignaled && c.OpenTime.Sub(s.lastSignal) < s.cfg.MinSignalInterval {
		s.lastReason = "min signal interval not elapsed"
		return nil, nil
	}

	series := closeSeries(candles, index)
	fastSeries := talib.Sma(series, s.cfg.FastPeriod)
	slowSeries := talib.Sma(series, s.cfg.SlowPeriod)
	n := len(series)
	if n < 2 {
		return nil, nil
	}
	fastPrev, fastNow := fastSeries[n-2], fastSeries[n-1]
	slowPrev, slowNow := slowSeries[n-2], slowSeries[n-1]

	bullish := fastPrev <= slowPrev && fastNow > slowNow
	bearish := fastPrev >= slowPrev && fastNow < slowNow

	if s.cfg.MinSMASpreadPct > 0 {
		spreadPct := 0.0
		if slowNow != 0 {
			spreadPct = ((fastNow - slowNow) / slowNow) * 100
			if spreadPct < 0 {
				spreadPct = -spreadPct
			}
		}
		if spreadPct < s.cfg.MinSMASpreadPct {
			bullish, bearish = false, false
		}
	}

	// min_volume: a signal candle with too little volume behind it is
	// suppressed entirely.
	if s.cfg.MinVolume.IsPositive() && c.Volume.LessThan(s.cfg.MinVolume) {
		bullish, bearish = false, false
	}

	// max_spread_pct: no bid/ask is available from historical candles, so
	// the intracandle high-low range over close is used as the spread
	// proxy, consistent with the DCA family's identical approximation.
	if s.cfg.MaxSpreadPct > 0 && c.Close.IsPositive() {
		spreadPct, _ := c.High.Sub(c.Low).Div(c.Close).Mul(decimal.NewFromInt(100)).Float64()
		if spreadPct > s.cfg.MaxSpreadPct {
			bullish, bearish = false, false
		}
	}

	// rsi-overbought/rsi-oversold confirmation: don't enter long into an
	// already-overbought market, don't enter short into an already-oversold
	// one.
	if s.cfg.RSIOverbought > 0 || s.cfg.RSIOversold > 0 {
		if rsi, ok := rsiAt(candles, index, defaultConfirmationRSIPeriod); ok {
			if s.cfg.RSIOverbought > 0 && rsi >= s.cfg.RSIOverbought {
				bullish = false
			}
			if s.cfg.RSIOversold > 0 && rsi <= s.cfg.RSIOversold {
				bearish = false
			}
		}
	}

	// macd-confirmation: require the MACD line to agree with the
	// crossover's direction; with insufficient history to compute it, both
	// directions are suppressed rather than confirmed by default.
	if s.cfg.RequireMACDConfirm {
		macdLine, signalLine, ok := macdAt(candles, index)
		if !ok {
			bullish, bearish = false, false
		} else {
			if macdLine <= signalLine {
				bullish = false
			}
			if macdLine >= signalLine {
				bearish = false
			}
		}
	}

	orderKind := "limit order"
	if s.cfg.UseMarketOrders {
		orderKind = "market order"
	}

	switch {
	case bullish && s.cfg.EnableLong && s.position != Long:
		s.position = Long
		s.entryPrice = c.Close
		s.trailingStop = decimal.Zero
		s.hasSignaled = true
		s.lastSignal = c.OpenTime
		s.lastReason = "bullish SMA crossover via " + orderKind
		qty := s.positionSize(c.Close)
		return &strategy.Signal{Kind: strategy.Buy, QuoteAmount: qty.Mul(c.Close)}, nil
	case bearish && s.cfg.EnableShort && s.position != Short:
		s.position = Short
		s.entryPrice = c.Close
		s.hasSignaled = true
		s.lastSignal = c.OpenTime
		s.lastReason = "bearish SMA crossover via " + orderKind
		// Short-entry simulation: represented as a Sell of the configured
		// size; the engine's Portfolio constrains this to held inventory.
		return &strategy.Signal{Kind: strategy.Sell, BaseQuantity: s.positionSize(c.Close)}, nil
	}

	s.lastReason = "no crossover"
	return nil, nil
}

func (s *Strategy) positionSize(price decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(1)
	if !s.cfg.PositionSizePct.IsZero() {
		qty = s.cfg.PositionSizePct
	}
	if s.cfg.MaxPositionSize != nil && price.IsPositive() {
		maxQty := s.cfg.MaxPositionSize.Div(price)
		if qty.GreaterThan(maxQty) {
			qty = maxQty
		}
	}
	return qty
}

type riskExit struct {
	signal *strategy.Signal
	reason string
}

// checkRiskExits evaluates stop-loss, take-profit and trailing stop
// against the current candle. It runs before crossover evaluation each
// candle, so a same-candle stop-loss always wins over a fresh crossover
// signal, per the family's documented tie-break.
func (s *Strategy) checkRiskExits(c candle.Candle) (riskExit, bool) {
	if s.entryPrice.IsZero() {
		return riskExit{}, false
	}
	change, _ := c.Close.Sub(s.entryPrice).Div(s.entryPrice).Mul(decimal.NewFromInt(100)).Float64()
	if s.position == Short {
		change = -change
	}

	if s.cfg.TrailingStopEnabled && change >= s.cfg.TrailingActivationPct {
		candidate := c.Close.Mul(decimal.NewFromFloat(1 - s.cfg.TrailingDistancePct/100))
		if s.position == Short {
			candidate = c.Close.Mul(decimal.NewFromFloat(1 + s.cfg.TrailingDistancePct/100))
		}
		if s.trailingStop.IsZero() || (s.position == Long && candidate.GreaterThan(s.trailingStop)) ||
			(s.position == Short && (s.trailingStop.IsZero() || candidate.LessThan(s.trailingStop))) {
			s.trailingStop = candidate
		}
	}
	if !s.trailingStop.IsZero() {
		if s.position == Long && c.Close.LessThanOrEqual(s.trailingStop) {
			return riskExit{signal: s.exitSignal(), reason: "trailing stop hit"}, true
		}
		if s.position == Short && c.Close.GreaterThanOrEqual(s.trailingStop) {
			return riskExit{signal: s.exitSignal(), reason: "trailing stop hit"}, true
		}
	}

	if s.cfg.StopLossPct != nil && change <= -*s.cfg.StopLossPct {
		return riskExit{signal: s.exitSignal(), reason: "stop-loss hit"}, true
	}
	if s.cfg.TakeProfitPct != nil && change >= *s.cfg.TakeProfitPct {
		return riskExit{signal: s.exitSignal(), reason: "take-profit hit"}, true
	}
	return riskExit{}, false
}

func (s *Strategy) exitSignal() *strategy.Signal {
	qty := s.positionSize(s.entryPrice)
	if s.position == Long {
		return &strategy.Signal{Kind: strategy.Sell, BaseQuantity: qty}
	}
	return &strategy.Signal{Kind: strategy.Buy, QuoteAmount: qty.Mul(s.entryPrice)}
}
