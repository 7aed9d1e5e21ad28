package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vela-markets/backtestcore/cache"
	"github.com/vela-markets/backtestcore/candle"
)

type fakeBodyTransport struct {
	body       []byte
	statusCode int
}

func (f fakeBodyTransport) Get(context.Context, string) (Response, error) {
	status := f.statusCode
	if status == 0 {
		status = 200
	}
	return Response{StatusCode: status, Body: f.body}, nil
}

const equitiesFixture = `{
  "Meta Data": {"2. Symbol": "IBM"},
  "Time Series (Daily)": {
    "2024-01-03": {"1. open": "101", "2. high": "105", "3. low": "100", "4. close": "104", "5. volume": "1000"},
    "2024-01-02": {"1. open": "100", "2. high": "102", "3. low": "99", "4. close": "101", "5. volume": "900"},
    "2024-01-10": {"1. open": "110", "2. high": "111", "3. low": "108", "4. close": "109", "5. volume": "1100"}
  }
}`

func TestEquitiesDecoderSortsAscending(t *testing.T) {
	candles, err := EquitiesDailyDecoder{}.Decode([]byte(equitiesFixture))
	require.NoError(t, err)
	require.Len(t, candles, 3)
	for i := 1; i < len(candles); i++ {
		require.True(t, candles[i].OpenTime.After(candles[i-1].OpenTime))
	}
	require.Equal(t, 14, candles[0].OpenTime.Hour())
	require.Equal(t, 21, candles[0].CloseTime.Hour())
	require.True(t, candles[0].QuoteVolume.IsZero())
}

func TestEquitiesFetcherFiltersRange(t *testing.T) {
	c := cache.New(cache.DefaultConfig())
	f := NewEquitiesFetcher("alphavantage", "http://fake", "key", c, fakeBodyTransport{body: []byte(equitiesFixture)})

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	got, err := f.Fetch(context.Background(), "IBM", candle.Interval1d, start, end)
	require.NoError(t, err)
	require.Len(t, got, 2, "the 2024-01-10 bar must be filtered out of [2024-01-02, 2024-01-05)")
}

func TestEquitiesFetcherRejectsUnsupportedInterval(t *testing.T) {
	c := cache.New(cache.DefaultConfig())
	f := NewEquitiesFetcher("alphavantage", "http://fake", "key", c, fakeBodyTransport{})
	_, err := f.Fetch(context.Background(), "IBM", candle.Interval1h, time.Now(), time.Now().Add(time.Hour))
	require.Error(t, err)
}

func TestEquitiesFetcherMapsRateLimitStatus(t *testing.T) {
	c := cache.New(cache.DefaultConfig())
	f := NewEquitiesFetcher("alphavantage", "http://fake", "key", c, fakeBodyTransport{statusCode: 429})
	_, err := f.Fetch(context.Background(), "IBM", candle.Interval1d, time.Now(), time.Now().Add(time.Hour))
	require.Error(t, err)
}

func TestEquitiesFetcherRejectsLowerCaseSymbol(t *testing.T) {
	c := cache.New(cache.DefaultConfig())
	f := NewEquitiesFetcher("alphavantage", "http://fake", "key", c, fakeBodyTransport{body: []byte(equitiesFixture)})
	_, err := f.Fetch(context.Background(), "ibm", candle.Interval1d, time.Now(), time.Now().Add(time.Hour))
	require.Error(t, err)
}
