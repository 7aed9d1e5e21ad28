package dca

import (
	"fmt"
	"time"

	talib "github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
	"github.com/vela-markets/backtestcore/candle"
	"github.com/vela-markets/backtestcore/strategy"
)

// Strategy implements strategy.Strategy for every DCA variant, switching
// behavior on Config.StrategyType at Analyze time (SPEC_FULL.md §4.6.1).
type Strategy struct {
	cfg           Config
	lastExecution time.Time
	executed      bool
	lastReason    string
	executionsToday  int
	lastDay          time.Time
	lastCheckedPrice decimal.Decimal

	// positionValue is the cumulative invested-at-cost (sum of emitted
	// QuoteAmount): a strategy has no visibility into the engine's live
	// portfolio, so this is the proxy for "position_value" used by the
	// max_position_size halt in SPEC_FULL.md §4.6.1 step 2.
	positionValue decimal.Decimal
}

// New returns an uninitialized DCA strategy; call Initialize before Analyze.
func New() *Strategy { return &Strategy{} }

// Initialize accepts params["config"] as a pre-built Config value. A fuller
// JSON-Schema-driven decode is described in ParameterSchema; this
// practical boundary keeps the wire format abstract while still
// exercising the full validate()/analyze() pipeline end to end.
func (s *Strategy) Initialize(params map[string]any) error {
	raw, ok := params["config"]
	if !ok {
		return fmt.Errorf("dca: params must contain \"config\"")
	}
	cfg, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("dca: params[\"config\"] must be a dca.Config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	// Dip trigger counts are per-run state; copy the ladder so they never
	// leak into the caller's Config or into another run built from it.
	cfg.DipLevels = append([]DipLevel(nil), cfg.DipLevels...)
	s.cfg = cfg
	return nil
}

func (s *Strategy) ValidateParameters(params map[string]any) error {
	raw, ok := params["config"]
	if !ok {
		return fmt.Errorf("dca: params must contain \"config\"")
	}
	cfg, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("dca: params[\"config\"] must be a dca.Config")
	}
	return cfg.Validate()
}

func (s *Strategy) Name() string        { return "dca" }
func (s *Strategy) Description() string { return "Dollar-cost averaging family (simple, RSI, volatility, dynamic, dip-buying, sentiment)" }
func (s *Strategy) LastReason() string  { return s.lastReason }

func (s *Strategy) ParameterSchema() map[string]any { return s.cfg.JSONSchema() }

func (s *Strategy) Metadata() strategy.Metadata {
	return strategy.Metadata{
		ID:          "dca",
		Name:        "DCA",
		Description: s.Description(),
		Version:     "1.0",
		Category:    "accumulation",
		RiskLevel:   "low",
		MinBalance:  decimal.Zero,
		MaxPositions: 1,
		SupportedIntervals: []candle.Interval{
			candle.Interval1h, candle.Interval4h, candle.Interval1d, candle.Interval1w,
		},
	}
}

func closes(candles []candle.Candle, upto int) []float64 {
	out := make([]float64, upto+1)
	for i := 0; i <= upto; i++ {
		f, _ := candles[i].Close.Float64()
		out[i] = f
	}
	return out
}

// rsiAt returns the RSI value at index i using the given period, or false
// if there is not yet enough history.
func rsiAt(candles []candle.Candle, i, period int) (float64, bool) {
	if i+1 < period+1 {
		return 0, false
	}
	series := closes(candles, i)
	out := talib.Rsi(series, period)
	v := out[len(out)-1]
	if v == 0 && len(out) < period+1 {
		return 0, false
	}
	return v, true
}

// volatilityAt returns mean absolute percent return over the trailing
// period ending at i, matching SPEC_FULL.md §4.6.1's VolatilityBased rule.
func volatilityAt(candles []candle.Candle, i, period int) (float64, bool) {
	if i+1 < period+1 {
		return 0, false
	}
	series := closes(candles, i)
	start := len(series) - period
	sum := 0.0
	for j := start; j < len(series); j++ {
		if series[j-1] == 0 {
			continue
		}
		ret := (series[j] - series[j-1]) / series[j-1]
		if ret < 0 {
			ret = -ret
		}
		sum += ret
	}
	return (sum / float64(period)) * 100, true
}

func clampDecimal(v, min, max decimal.Decimal) decimal.Decimal {
	if min.IsZero() == false && v.LessThan(min) {
		return min
	}
	if max.IsZero() == false && v.GreaterThan(max) {
		return max
	}
	return v
}

func (s *Strategy) filtersAllow(c candle.Candle) bool {
	f := s.cfg.Filters
	if len(f.AllowedHours) > 0 {
		h := c.OpenTime.UTC().Hour()
		found := false
		for _, allowed := range f.AllowedHours {
			if allowed == h {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.AllowedWeekdays) > 0 {
		wd := c.OpenTime.UTC().Weekday()
		found := false
		for _, allowed := range f.AllowedWeekdays {
			if allowed == wd {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	day := c.OpenTime.UTC().Truncate(24 * time.Hour)
	if !s.lastDay.Equal(day) {
		s.lastDay = day
		s.executionsToday = 0
	}
	if f.MaxExecutionsPerDay > 0 && s.executionsToday >= f.MaxExecutionsPerDay {
		return false
	}

	if f.MinVolumeThreshold.IsPositive() && c.Volume.LessThan(f.MinVolumeThreshold) {
		return false
	}

	// max_spread_percentage (SPEC_FULL.md §4.6.1): historical candles carry
	// no bid/ask, so the intracandle high-low range over close is used as
	// the spread proxy, matching the same approximation used by the
	// sma_crossover family's spread gate.
	if f.MaxSpreadPercentage > 0 && c.Close.IsPositive() {
		spreadPct, _ := c.High.Sub(c.Low).Div(c.Close).Mul(decimal.NewFromInt(100)).Float64()
		if spreadPct > f.MaxSpreadPercentage {
			return false
		}
	}

	// max_price_deviation_percentage (original_source dca/config.rs: "skip
	// execution if price moved too much since last check"): compares this
	// candle's close against the close last evaluated by this method.
	prevChecked := s.lastCheckedPrice
	s.lastCheckedPrice = c.Close
	if f.MaxPriceDeviationPct > 0 && prevChecked.IsPositive() {
		devPct, _ := c.Close.Sub(prevChecked).Abs().Div(prevChecked).Mul(decimal.NewFromInt(100)).Float64()
		if devPct > f.MaxPriceDeviationPct {
			return false
		}
	}

	return true
}

// Analyze implements the DCA execution policy of SPEC_FULL.md §4.6.1.
func (s *Strategy) Analyze(candles []candle.Candle, index int) (*strategy.Signal, error) {
	if index < 0 || index >= len(candles) {
		return nil, fmt.Errorf("dca: index %d out of range", index)
	}
	c := candles[index]

	if s.executed && c.OpenTime.Sub(s.lastExecution) < s.cfg.Frequency.Duration() {
		s.lastReason = "frequency gate: too soon since last execution"
		return nil, nil
	}
	if !s.filtersAllow(c) {
		s.lastReason = "filter gate: candle excluded by hour/weekday/volume/spread/deviation filter"
		return nil, nil
	}
	if s.cfg.MaxPositionSize != nil && s.positionValue.GreaterThanOrEqual(*s.cfg.MaxPositionSize) {
		s.lastReason = "halted: max_position_size reached"
		return nil, nil
	}

	if s.cfg.PauseOnHighVolatility && s.cfg.VolatilityPauseThreshold != nil {
		period := 20
		if s.cfg.Volatility != nil {
			period = s.cfg.Volatility.Period
		}
		if vol, ok := volatilityAt(candles, index, period); ok && vol > *s.cfg.VolatilityPauseThreshold {
			s.lastReason = "paused: volatility above threshold"
			return nil, nil
		}
	}
	if s.cfg.PauseOnBearMarket && s.cfg.BearMarketThreshold != nil {
		days := s.cfg.ReferencePeriodDays
		if days <= 0 {
			days = 30
		}
		ref := rollingHigh(candles, index, days)
		if ref.IsPositive() {
			dropPct, _ := ref.Sub(c.Close).Div(ref).Mul(decimal.NewFromInt(100)).Float64()
			if dropPct > *s.cfg.BearMarketThreshold {
				s.lastReason = "paused: bear-market drawdown above threshold"
				return nil, nil
			}
		}
	}

	multiplier := decimal.NewFromInt(1)
	reason := "simple DCA"

	switch s.cfg.StrategyType {
	case Simple, SentimentBased:
		// multiplier stays 1; SentimentBased has no local sentiment input.
	case RSIBased:
		if s.cfg.RSI != nil {
			if v, ok := rsiAt(candles, index, s.cfg.RSI.Period); ok {
				switch {
				case v <= s.cfg.RSI.OversoldThr:
					multiplier = s.cfg.RSI.OversoldMult
					reason = "RSI oversold"
				case v >= s.cfg.RSI.OverboughtThr:
					multiplier = s.cfg.RSI.OverboughtMult
					reason = "RSI overbought"
				default:
					multiplier = s.cfg.RSI.NormalMult
					reason = "RSI normal"
				}
			}
		}
	case VolatilityBased:
		if s.cfg.Volatility != nil {
			if v, ok := volatilityAt(candles, index, s.cfg.Volatility.Period); ok {
				switch {
				case v <= s.cfg.Volatility.LowThr:
					multiplier = s.cfg.Volatility.LowMult
					reason = "volatility low"
				case v >= s.cfg.Volatility.HighThr:
					multiplier = s.cfg.Volatility.HighMult
					reason = "volatility high"
				default:
					multiplier = s.cfg.Volatility.NormalMult
					reason = "volatility normal"
				}
			}
		}
	case Dynamic:
		multiplier, reason = s.dynamicMultiplier(candles, index)
	case DipBuying:
		var matched bool
		multiplier, reason, matched = s.dipMultiplier(candles, index)
		if !matched {
			s.lastReason = "no dip level triggered"
			return nil, nil
		}
	default:
		return nil, fmt.Errorf("dca: unknown strategy_type %q", s.cfg.StrategyType)
	}

	amount := s.cfg.BaseAmount.Mul(multiplier)
	if s.cfg.MinSingleAmount != nil {
		amount = clampDecimal(amount, *s.cfg.MinSingleAmount, decimal.Zero)
	}
	if s.cfg.MaxSingleAmount != nil {
		amount = clampDecimal(amount, decimal.Zero, *s.cfg.MaxSingleAmount)
	}

	s.executed = true
	s.lastExecution = c.OpenTime
	s.lastReason = reason
	s.executionsToday++
	s.positionValue = s.positionValue.Add(amount)

	return &strategy.Signal{Kind: strategy.Buy, QuoteAmount: amount}, nil
}

// rollingHigh returns the maximum High over the last periodDays*24 candles
// ending at index (inclusive).
func rollingHigh(candles []candle.Candle, index, periodDays int) decimal.Decimal {
	start := index - periodDays*24 + 1
	if start < 0 {
		start = 0
	}
	high := decimal.Zero
	for j := index; j >= start; j-- {
		if candles[j].High.GreaterThan(high) {
			high = candles[j].High
		}
	}
	return high
}

func (s *Strategy) dynamicMultiplier(candles []candle.Candle, index int) (decimal.Decimal, string) {
	f := s.cfg.DynamicFactors
	if f == nil {
		return decimal.NewFromInt(1), "dynamic (no factors configured)"
	}
	rsiComponent := 0.0
	if s.cfg.RSI != nil {
		if v, ok := rsiAt(candles, index, s.cfg.RSI.Period); ok {
			rsiMult, _ := s.cfg.RSI.NormalMult.Float64()
			switch {
			case v <= s.cfg.RSI.OversoldThr:
				rsiMult, _ = s.cfg.RSI.OversoldMult.Float64()
			case v >= s.cfg.RSI.OverboughtThr:
				rsiMult, _ = s.cfg.RSI.OverboughtMult.Float64()
			}
			rsiComponent = (rsiMult - 1) * f.RSIWeight
		}
	}
	volComponent := 0.0
	if s.cfg.Volatility != nil {
		if v, ok := volatilityAt(candles, index, s.cfg.Volatility.Period); ok {
			volMult, _ := s.cfg.Volatility.NormalMult.Float64()
			switch {
			case v <= s.cfg.Volatility.LowThr:
				volMult, _ = s.cfg.Volatility.LowMult.Float64()
			case v >= s.cfg.Volatility.HighThr:
				volMult, _ = s.cfg.Volatility.HighMult.Float64()
			}
			volComponent = (volMult - 1) * f.VolWeight
		}
	}
	blended := 1 + rsiComponent + volComponent
	minMult, _ := f.MinMult.Float64()
	maxMult, _ := f.MaxMult.Float64()
	if minMult > 0 && blended < minMult {
		blended = minMult
	}
	if maxMult > 0 && blended > maxMult {
		blended = maxMult
	}
	return decimal.NewFromFloat(blended), "dynamic blend of RSI and volatility"
}

func (s *Strategy) dipMultiplier(candles []candle.Candle, index int) (decimal.Decimal, string, bool) {
	c := candles[index]
	ref := decimal.Zero
	if s.cfg.ReferencePrice != nil {
		ref = *s.cfg.ReferencePrice
	} else {
		days := s.cfg.ReferencePeriodDays
		if days <= 0 {
			days = 1
		}
		ref = rollingHigh(candles, index, days)
	}
	if !ref.IsPositive() {
		return decimal.NewFromInt(1), "", false
	}
	dropPctDec := ref.Sub(c.Close).Div(ref).Mul(decimal.NewFromInt(100))
	dropPct, _ := dropPctDec.Float64()

	// Highest drop_pct first, matching the original's "first dip level
	// (highest drop_pct first) whose threshold is met" rule.
	bestIdx := -1
	for i, lvl := range s.cfg.DipLevels {
		if dropPct < lvl.DropPct {
			continue
		}
		if lvl.MaxTriggers > 0 && lvl.triggered >= lvl.MaxTriggers {
			continue
		}
		if bestIdx == -1 || s.cfg.DipLevels[bestIdx].DropPct < lvl.DropPct {
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return decimal.NewFromInt(1), "", false
	}
	s.cfg.DipLevels[bestIdx].triggered++
	return s.cfg.DipLevels[bestIdx].AmountMult, fmt.Sprintf("dip buying: %.2f%% drop triggered level %.2f%%", dropPct, s.cfg.DipLevels[bestIdx].DropPct), true
}
