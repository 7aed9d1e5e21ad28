// Package dca implements the DCA (dollar-cost averaging) strategy family:
// Simple, RSIBased, VolatilityBased, Dynamic, DipBuying and SentimentBased
// variants sharing one parameter struct and one analyze loop.
//
// Grounded on original_source/backend/src/strategies/implementations/dca/
// config.rs's DCAConfig/DCAFilters structs, constructors and validate()/
// json_schema() methods. Indicator inputs are computed over a float64 view
// of the decimal close series (SPEC_FULL.md §4.6.1): RSI with
// github.com/markcheno/go-talib, rolling volatility with a local helper.
// Floats stop at the multiplier, the trade amount itself is always decimal.
package dca

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StrategyType selects which multiplier rule Analyze applies.
type StrategyType string

const (
	Simple          StrategyType = "Simple"
	RSIBased        StrategyType = "RSIBased"
	VolatilityBased StrategyType = "VolatilityBased"
	Dynamic         StrategyType = "Dynamic"
	DipBuying       StrategyType = "DipBuying"
	SentimentBased  StrategyType = "SentimentBased"
)

// FrequencyUnit selects the spacing unit for Frequency.
type FrequencyUnit string

const (
	Hourly  FrequencyUnit = "Hourly"
	Daily   FrequencyUnit = "Daily"
	Weekly  FrequencyUnit = "Weekly"
	Monthly FrequencyUnit = "Monthly"
	Custom  FrequencyUnit = "Custom" // N is interpreted as minutes
)

// Frequency is the minimum spacing between executions.
type Frequency struct {
	Unit FrequencyUnit
	N    int
}

// Duration converts a Frequency to a concrete time.Duration.
func (f Frequency) Duration() time.Duration {
	switch f.Unit {
	case Hourly:
		return time.Duration(f.N) * time.Hour
	case Daily:
		return time.Duration(f.N) * 24 * time.Hour
	case Weekly:
		return time.Duration(f.N) * 7 * 24 * time.Hour
	case Monthly:
		return time.Duration(f.N) * 30 * 24 * time.Hour
	case Custom:
		return time.Duration(f.N) * time.Minute
	default:
		return 24 * time.Hour
	}
}

// RSIConfig parameterizes the RSIBased and Dynamic multiplier rules.
type RSIConfig struct {
	Period           int
	OversoldThr      float64
	OverboughtThr    float64
	OversoldMult     decimal.Decimal
	OverboughtMult   decimal.Decimal
	NormalMult       decimal.Decimal
}

// VolatilityConfig parameterizes the VolatilityBased and Dynamic rules.
type VolatilityConfig struct {
	Period    int
	LowThr    float64
	HighThr   float64
	LowMult   decimal.Decimal
	HighMult  decimal.Decimal
	NormalMult decimal.Decimal
}

// DipLevel is one rung of the DipBuying ladder, checked highest-drop first.
type DipLevel struct {
	DropPct     float64
	AmountMult  decimal.Decimal
	MaxTriggers int // 0 means unlimited
	triggered   int
}

// DynamicFactors weights the Dynamic strategy type's blended multiplier.
type DynamicFactors struct {
	RSIWeight       float64
	VolWeight       float64
	SentimentWeight float64
	TrendWeight     float64
	MinMult         decimal.Decimal
	MaxMult         decimal.Decimal
}

// Filters gate whether an otherwise-due execution actually fires.
type Filters struct {
	AllowedHours        []int // 0-23, nil means no restriction
	AllowedWeekdays     []time.Weekday
	MinIntervalMinutes  int
	MaxExecutionsPerDay int
	MinVolumeThreshold  decimal.Decimal
	MaxSpreadPercentage float64
	MaxPriceDeviationPct float64
}

// Config is the full DCA parameter set.
type Config struct {
	BaseAmount      decimal.Decimal
	Frequency       Frequency
	StrategyType    StrategyType
	RSI             *RSIConfig
	Volatility      *VolatilityConfig
	DynamicFactors  *DynamicFactors
	DipLevels       []DipLevel
	ReferencePrice  *decimal.Decimal
	ReferencePeriodDays int

	MaxSingleAmount *decimal.Decimal
	MinSingleAmount *decimal.Decimal
	MaxPositionSize *decimal.Decimal

	PauseOnHighVolatility     bool
	VolatilityPauseThreshold  *float64
	PauseOnBearMarket         bool
	BearMarketThreshold       *float64

	Filters Filters
}

// SimpleConfig builds the plain fixed-amount DCA variant.
func SimpleConfig(baseAmount decimal.Decimal, freq Frequency) Config {
	return Config{BaseAmount: baseAmount, Frequency: freq, StrategyType: Simple}
}

// RSIBasedConfig builds the RSI-modulated variant.
func RSIBasedConfig(baseAmount decimal.Decimal, freq Frequency, rsi RSIConfig) Config {
	return Config{BaseAmount: baseAmount, Frequency: freq, StrategyType: RSIBased, RSI: &rsi}
}

// VolatilityBasedConfig builds the volatility-modulated variant.
func VolatilityBasedConfig(baseAmount decimal.Decimal, freq Frequency, vol VolatilityConfig) Config {
	return Config{BaseAmount: baseAmount, Frequency: freq, StrategyType: VolatilityBased, Volatility: &vol}
}

// DipBuyingConfig builds the dip-ladder variant.
func DipBuyingConfig(baseAmount decimal.Decimal, freq Frequency, levels []DipLevel, referencePeriodDays int) Config {
	return Config{
		BaseAmount:          baseAmount,
		Frequency:           freq,
		StrategyType:        DipBuying,
		DipLevels:           levels,
		ReferencePeriodDays: referencePeriodDays,
	}
}

// DynamicConfig builds the blended-weight variant.
func DynamicConfig(baseAmount decimal.Decimal, freq Frequency, rsi RSIConfig, vol VolatilityConfig, factors DynamicFactors) Config {
	return Config{
		BaseAmount:     baseAmount,
		Frequency:      freq,
		StrategyType:   Dynamic,
		RSI:            &rsi,
		Volatility:     &vol,
		DynamicFactors: &factors,
	}
}

// Validate mirrors the original DCAConfig::validate(): base_amount must be
// positive, min/max single-amount bounds must be ordered and respected,
// each strategy_type's required sub-config must be present, and dynamic
// factor weights must not exceed 1.0 plus a small tolerance.
func (c Config) Validate() error {
	if !c.BaseAmount.IsPositive() {
		return fmt.Errorf("base_amount must be positive")
	}
	if c.MinSingleAmount != nil && c.MaxSingleAmount != nil && c.MinSingleAmount.GreaterThan(*c.MaxSingleAmount) {
		return fmt.Errorf("min_single_amount must not exceed max_single_amount")
	}
	switch c.StrategyType {
	case RSIBased:
		if c.RSI == nil {
			return fmt.Errorf("RSIBased strategy_type requires rsi_config")
		}
	case VolatilityBased:
		if c.Volatility == nil {
			return fmt.Errorf("VolatilityBased strategy_type requires volatility_config")
		}
	case Dynamic:
		if c.RSI == nil {
			return fmt.Errorf("Dynamic strategy_type requires rsi_config")
		}
		if c.DynamicFactors != nil {
			sum := c.DynamicFactors.RSIWeight + c.DynamicFactors.VolWeight + c.DynamicFactors.SentimentWeight + c.DynamicFactors.TrendWeight
			if sum > 1.0+0.01 {
				return fmt.Errorf("dynamic_factors weights sum to %.4f, exceeding 1.0 tolerance", sum)
			}
		}
	case DipBuying:
		if len(c.DipLevels) == 0 {
			return fmt.Errorf("DipBuying strategy_type requires at least one dip level")
		}
	case SentimentBased:
		// Sentiment input is an integration hook (SPEC_FULL.md §4.6.1 item
		// 3's SentimentBased note); no sub-config is required at this layer.
	case Simple:
	default:
		return fmt.Errorf("unknown strategy_type %q", c.StrategyType)
	}
	return nil
}

// JSONSchema returns the JSON-Schema-shaped parameter description exposed
// through Strategy.ParameterSchema, mirroring the original's json_schema().
func (c Config) JSONSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"base_amount", "frequency", "strategy_type"},
		"properties": map[string]any{
			"base_amount": map[string]any{"type": "number", "minimum": 0},
			"frequency": map[string]any{
				"oneOf": []map[string]any{
					{"Hourly": map[string]any{"type": "number", "minimum": 1}},
					{"Daily": map[string]any{"type": "number", "minimum": 1}},
					{"Weekly": map[string]any{"type": "number", "minimum": 1}},
					{"Monthly": map[string]any{"type": "number", "minimum": 1}},
					{"Custom": map[string]any{"type": "number", "minimum": 1}},
				},
			},
			"strategy_type": map[string]any{
				"enum": []StrategyType{Simple, RSIBased, VolatilityBased, Dynamic, DipBuying, SentimentBased},
			},
			"rsi_config":        map[string]any{"type": "object"},
			"volatility_config":  map[string]any{"type": "object"},
			"max_single_amount": map[string]any{"type": "number", "minimum": 0},
			"min_single_amount": map[string]any{"type": "number", "minimum": 0},
			"max_position_size": map[string]any{"type": "number", "minimum": 0},
		},
	}
}
