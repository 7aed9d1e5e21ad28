package fetch

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vela-markets/backtestcore/cache"
	"github.com/vela-markets/backtestcore/candle"
	"github.com/vela-markets/backtestcore/ratelimit"
)

// fakeSeriesTransport serves kline pages out of a pre-built in-memory
// candle series, filtered/capped the way the real venue endpoint would be.
// callCount lets tests assert idempotence (property 5: a second fetch for
// the same range costs exactly zero additional round-trips on a cache hit).
type fakeSeriesTransport struct {
	series    []candle.Candle
	callCount int
}

func klineRow(c candle.Candle) []json.RawMessage {
	field := func(v any) json.RawMessage {
		b, _ := json.Marshal(v)
		return b
	}
	return []json.RawMessage{
		field(c.OpenTime.UnixMilli()),
		field(c.Open.String()),
		field(c.High.String()),
		field(c.Low.String()),
		field(c.Close.String()),
		field(c.Volume.String()),
		field(c.CloseTime.UnixMilli()),
		field(c.QuoteVolume.String()),
		field(int64(c.TradesCount)),
		field("0"),
		field("0"),
		field("0"),
	}
}

func (f *fakeSeriesTransport) Get(_ context.Context, rawURL string) (Response, error) {
	f.callCount++
	u, err := url.Parse(rawURL)
	if err != nil {
		return Response{}, err
	}
	q := u.Query()
	startMS, _ := strconv.ParseInt(q.Get("startTime"), 10, 64)
	endMS, _ := strconv.ParseInt(q.Get("endTime"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	start := time.UnixMilli(startMS)
	end := time.UnixMilli(endMS)

	var page [][]json.RawMessage
	for _, c := range f.series {
		if len(page) >= limit {
			break
		}
		if !c.OpenTime.Before(start) && c.OpenTime.Before(end) {
			page = append(page, klineRow(c))
		}
	}
	body, _ := json.Marshal(page)
	return Response{StatusCode: 200, Body: body}, nil
}

func buildSeries(n int, start time.Time, step time.Duration) []candle.Candle {
	out := make([]candle.Candle, 0, n)
	for i := 0; i < n; i++ {
		open := start.Add(time.Duration(i) * step)
		closeT := open.Add(step - time.Millisecond) // venue convention: close is 1ms before the next open
		c, err := candle.New(open, closeT,
			decimal.NewFromFloat(100), decimal.NewFromFloat(101), decimal.NewFromFloat(99),
			decimal.NewFromFloat(100.5), decimal.NewFromInt(10), decimal.NewFromInt(1000), 5)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

func TestCryptoFetcherChunkedAssembly(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := buildSeries(6, start, time.Minute)

	transport := &fakeSeriesTransport{series: series}
	c := cache.New(cache.Config{MaxSizeMB: 500, TTL: time.Hour, HotTTL: time.Hour, HotThreshold: 3})
	lim := ratelimit.New("binance", 1200)

	f := NewCryptoFetcher("binance", "http://fake", c, lim, transport)
	f.PageLimit = 2 // force multiple chunks over the 6-candle range
	f.InterRequestDelay = 0

	end := start.Add(6 * time.Minute)
	got, err := f.Fetch(context.Background(), "BTCUSDT", candle.Interval1m, start, end)
	require.NoError(t, err)
	require.Len(t, got, 6)

	for i := 1; i < len(got); i++ {
		require.True(t, got[i].OpenTime.After(got[i-1].OpenTime), "open_time must be strictly increasing")
	}
	for _, cnd := range got {
		require.False(t, cnd.OpenTime.Before(start))
		require.True(t, cnd.OpenTime.Before(end))
	}
	require.Greater(t, transport.callCount, 1, "6 candles at page size 2 must take more than one round-trip")
}

func TestCryptoFetcherIdempotence(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := buildSeries(3, start, time.Minute)
	transport := &fakeSeriesTransport{series: series}
	c := cache.New(cache.Config{MaxSizeMB: 500, TTL: time.Hour, HotTTL: time.Hour, HotThreshold: 3})
	lim := ratelimit.New("binance", 1200)

	f := NewCryptoFetcher("binance", "http://fake", c, lim, transport)
	f.InterRequestDelay = 0
	end := start.Add(3 * time.Minute)

	first, err := f.Fetch(context.Background(), "BTCUSDT", candle.Interval1m, start, end)
	require.NoError(t, err)
	callsAfterFirst := transport.callCount

	second, err := f.Fetch(context.Background(), "BTCUSDT", candle.Interval1m, start, end)
	require.NoError(t, err)
	require.Equal(t, callsAfterFirst, transport.callCount, "a cache hit must cost zero additional round-trips")
	require.Equal(t, first, second)
}

func TestCryptoFetcherRejectsBadRequest(t *testing.T) {
	c := cache.New(cache.DefaultConfig())
	lim := ratelimit.New("binance", 1200)
	f := NewCryptoFetcher("binance", "http://fake", c, lim, &fakeSeriesTransport{})

	_, err := f.Fetch(context.Background(), "BTCUSDT", candle.Interval1m, time.Now(), time.Now().Add(-time.Minute))
	require.Error(t, err)

	_, err = f.Fetch(context.Background(), "", candle.Interval1m, time.Now(), time.Now().Add(time.Minute))
	require.Error(t, err)

	_, err = f.Fetch(context.Background(), "btc-usd", candle.Interval1m, time.Now(), time.Now().Add(time.Minute))
	require.Error(t, err, "lower-case/punctuated symbols must be rejected")
}
