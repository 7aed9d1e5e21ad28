// Package strategy defines the pluggable analyzer interface the backtest
// engine drives, plus a name-keyed registry (the spec's REDESIGN FLAG
// "trait-object strategies... registered in a factory keyed by name").
//
// The capability set is grounded on the teacher's strategy.go decide()
// function, which is structurally the closest analog: a stateful function
// consuming candle history plus an implicit cursor and returning a
// decision plus a reason string. The concrete signal vocabulary
// (Buy(quote_amount)/Sell(base_qty), no Hold) and the strict no-lookahead
// requirement come from SPEC_FULL.md §4.5, not from the teacher's ML/EMA
// decide() logic, which this package does not reuse.
package strategy

import (
	"github.com/shopspring/decimal"
	"github.com/vela-markets/backtestcore/candle"
)

// SignalKind distinguishes the two possible trade signals.
type SignalKind int

const (
	Buy SignalKind = iota
	Sell
)

// Signal is the outcome of one analyze call. Only one of QuoteAmount
// (Buy) or BaseQuantity (Sell) is meaningful, selected by Kind.
type Signal struct {
	Kind          SignalKind
	QuoteAmount  decimal.Decimal // meaningful when Kind == Buy
	BaseQuantity decimal.Decimal // meaningful when Kind == Sell
}

// Metadata is static descriptive data about a strategy, consumed by the
// registry and CLI listing, never by the engine's replay loop (expansion,
// SPEC_FULL.md §4.5, grounded on original_source's StrategyMetadata).
type Metadata struct {
	ID                 string
	Name               string
	Description        string
	Version            string
	Category           string
	RiskLevel          string
	MinBalance         decimal.Decimal
	MaxPositions       int
	SupportedIntervals []candle.Interval
}

// Strategy is the polymorphic analyzer the engine drives. Initialize is
// called exactly once before the first Analyze call; Analyze is then
// called exactly once per candle index in strictly increasing order and
// must be deterministic given the same parameters and candle prefix.
type Strategy interface {
	Initialize(params map[string]any) error
	Analyze(candles []candle.Candle, index int) (*Signal, error)
	LastReason() string
	Name() string
	Description() string
	ParameterSchema() map[string]any
	ValidateParameters(params map[string]any) error
	Metadata() Metadata
}

// Constructor builds a fresh, uninitialized Strategy instance.
type Constructor func() Strategy

// Registry is a name-keyed map of strategy constructors, resolved at
// config-parse time by cmd/backtestd or any future API layer. The engine
// itself never uses the Registry; it is handed an already-constructed
// Strategy value (SPEC_FULL.md §4.7's expansion note).
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a constructor under name, overwriting any prior entry.
func (r *Registry) Register(name string, ctor Constructor) {
	r.constructors[name] = ctor
}

// Get builds a new Strategy instance for name, or reports false if name is
// not registered.
func (r *Registry) Get(name string) (Strategy, bool) {
	ctor, ok := r.constructors[name]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Names returns every registered strategy name.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		out = append(out, name)
	}
	return out
}
