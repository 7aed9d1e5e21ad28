package fetch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vela-markets/backtestcore/candle"
	"github.com/vela-markets/backtestcore/internal/coreerr"
)

// Decoder turns a raw response body into a candle sequence. Kept separate
// from Transport so the wire format can be tested without a network, per
// the spec's fetcher REDESIGN FLAG.
type Decoder interface {
	Decode(body []byte) ([]candle.Candle, error)
}

// CryptoKlineDecoder decodes the venue's 12-field kline array format:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume,
//  tradesCount, takerBuyBase, takerBuyQuote, ignore].
type CryptoKlineDecoder struct{}

func (CryptoKlineDecoder) Decode(body []byte) ([]candle.Candle, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, coreerr.Wrap(coreerr.Parse, "decode klines", err)
	}
	out := make([]candle.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 9 {
			return nil, coreerr.New(coreerr.Parse, fmt.Sprintf("kline row %d: expected >=9 fields, got %d", i, len(row)))
		}
		openMS, err := parseInt64(row[0])
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "open time", err)
		}
		open, err := parseDecimalField(row[1])
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "open", err)
		}
		high, err := parseDecimalField(row[2])
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "high", err)
		}
		low, err := parseDecimalField(row[3])
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "low", err)
		}
		closePrice, err := parseDecimalField(row[4])
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "close", err)
		}
		volume, err := parseDecimalField(row[5])
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "volume", err)
		}
		closeMS, err := parseInt64(row[6])
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "close time", err)
		}
		quoteVolume, err := parseDecimalField(row[7])
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "quote volume", err)
		}
		tradesCount, err := parseInt64(row[8])
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "trades count", err)
		}

		c, err := candle.New(
			time.UnixMilli(openMS).UTC(),
			time.UnixMilli(closeMS).UTC(),
			open, high, low, closePrice, volume, quoteVolume,
			uint64(tradesCount),
		)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "invalid kline candle", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseInt64(raw json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number or string: %s", raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.IntPart(), nil
}

func parseDecimalField(raw json.RawMessage) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decimal.NewFromString(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return decimal.Decimal{}, fmt.Errorf("not a string or number: %s", raw)
	}
	return decimal.NewFromFloat(f), nil
}
