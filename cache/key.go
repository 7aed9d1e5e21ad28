package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/vela-markets/backtestcore/candle"
)

// Key identifies a cached candle range. Equality is by value, so Key can be
// used directly as a Go map key.
type Key struct {
	Venue    string
	Symbol   string
	Interval candle.Interval
	TStart   int64 // unix millis
	TEnd     int64 // unix millis
}

// NewKey normalizes symbol to upper case, matching the spec's
// CacheKey(venue, symbol_uppercase, interval, t_start, t_end) tuple.
func NewKey(venue, symbol string, interval candle.Interval, tStart, tEnd time.Time) Key {
	return Key{
		Venue:    venue,
		Symbol:   strings.ToUpper(symbol),
		Interval: interval,
		TStart:   tStart.UnixMilli(),
		TEnd:     tEnd.UnixMilli(),
	}
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%d:%d", k.Venue, k.Symbol, k.Interval, k.TStart, k.TEnd)
}
