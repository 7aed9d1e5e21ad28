package fetch

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vela-markets/backtestcore/candle"
	"github.com/vela-markets/backtestcore/internal/coreerr"
)

// EquitiesDailyDecoder decodes the "TIME_SERIES_DAILY" style response:
// an object with a "Time Series (Daily)" key mapping YYYY-MM-DD to
// {"1. open","2. high","3. low","4. close","5. volume"}. Market hours are
// fixed per the spec: open 14:30 UTC, close 21:00 UTC. Quote volume and
// trade count are not provided upstream and default to zero.
type EquitiesDailyDecoder struct{}

type equitiesDailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type equitiesDailyResponse struct {
	TimeSeries map[string]equitiesDailyBar `json:"Time Series (Daily)"`
}

func (EquitiesDailyDecoder) Decode(body []byte) ([]candle.Candle, error) {
	var resp equitiesDailyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, coreerr.Wrap(coreerr.Parse, "decode daily time series", err)
	}
	out := make([]candle.Candle, 0, len(resp.TimeSeries))
	for dateStr, bar := range resp.TimeSeries {
		day, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "bar date", err)
		}
		open, err := decimal.NewFromString(bar.Open)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "open", err)
		}
		high, err := decimal.NewFromString(bar.High)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "high", err)
		}
		low, err := decimal.NewFromString(bar.Low)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "low", err)
		}
		closePrice, err := decimal.NewFromString(bar.Close)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "close", err)
		}
		volume, err := decimal.NewFromString(bar.Volume)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "volume", err)
		}
		openTime := time.Date(day.Year(), day.Month(), day.Day(), 14, 30, 0, 0, time.UTC)
		closeTime := time.Date(day.Year(), day.Month(), day.Day(), 21, 0, 0, 0, time.UTC)
		c, err := candle.New(openTime, closeTime, open, high, low, closePrice, volume, decimal.Zero, 0)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.Parse, "invalid daily candle", err)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out, nil
}
