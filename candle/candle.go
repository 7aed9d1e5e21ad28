package candle

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is an immutable OHLCV record. Once constructed via New, none of
// its fields are ever mutated; every consumer (cache, strategy, engine)
// treats a Candle as a value type that can be shared freely across
// goroutines.
type Candle struct {
	OpenTime    time.Time
	CloseTime   time.Time
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      decimal.Decimal
	QuoteVolume decimal.Decimal
	TradesCount uint64
}

// New validates and constructs a Candle. It enforces the invariants the
// rest of the core relies on: OpenTime strictly precedes CloseTime, Low is
// the minimum of the four prices that matter and High the maximum, and
// Volume is never negative.
func New(openTime, closeTime time.Time, open, high, low, close, volume, quoteVolume decimal.Decimal, tradesCount uint64) (Candle, error) {
	c := Candle{
		OpenTime:    openTime,
		CloseTime:   closeTime,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       close,
		Volume:      volume,
		QuoteVolume: quoteVolume,
		TradesCount: tradesCount,
	}
	if err := c.validate(); err != nil {
		return Candle{}, err
	}
	return c, nil
}

func (c Candle) validate() error {
	if !c.OpenTime.Before(c.CloseTime) {
		return errInvalid("open_time must be before close_time")
	}
	if c.Low.GreaterThan(c.Open) || c.Low.GreaterThan(c.Close) {
		return errInvalid("low must not exceed open or close")
	}
	if c.High.LessThan(c.Open) || c.High.LessThan(c.Close) {
		return errInvalid("high must not be less than open or close")
	}
	if c.Volume.IsNegative() {
		return errInvalid("volume must not be negative")
	}
	return nil
}

type invalidCandleError string

func (e invalidCandleError) Error() string { return "invalid candle: " + string(e) }

func errInvalid(msg string) error { return invalidCandleError(msg) }
