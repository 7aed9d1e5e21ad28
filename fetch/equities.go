package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/vela-markets/backtestcore/cache"
	"github.com/vela-markets/backtestcore/candle"
	"github.com/vela-markets/backtestcore/internal/coreerr"
)

// EquitiesFetcher issues a single "outputsize=full" request and filters the
// result client-side, per §4.3's equities variant. Supported intervals are
// restricted to daily/weekly/monthly; the upstream only ever returns daily
// bars, so weekly/monthly requests are served from the same daily series,
// filtered and sorted but not aggregated into wider bars (Open Question 1,
// SPEC_FULL.md §9).
type EquitiesFetcher struct {
	Venue     string
	BaseURL   string
	APIKey    string
	Cache     *cache.Cache
	Transport Transport
	Decoder   Decoder
}

func NewEquitiesFetcher(venue, baseURL, apiKey string, c *cache.Cache, tr Transport) *EquitiesFetcher {
	return &EquitiesFetcher{
		Venue:     venue,
		BaseURL:   baseURL,
		APIKey:    apiKey,
		Cache:     c,
		Transport: tr,
		Decoder:   EquitiesDailyDecoder{},
	}
}

func (f *EquitiesFetcher) supported(i candle.Interval) bool {
	switch i {
	case candle.Interval1d, candle.Interval1w, candle.Interval1M:
		return true
	default:
		return false
	}
}

func (f *EquitiesFetcher) Fetch(ctx context.Context, symbol string, interval candle.Interval, start, end time.Time) ([]candle.Candle, error) {
	if !(start.Before(end)) {
		return nil, coreerr.New(coreerr.BadRequest, "t_start must be before t_end")
	}
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	if !f.supported(interval) {
		return nil, coreerr.New(coreerr.BadRequest, fmt.Sprintf("equities fetcher does not support interval %q", interval))
	}

	key := cache.NewKey(f.Venue, symbol, interval, start, end)
	if hit, ok := f.Cache.Get(key); ok {
		return hit, nil
	}

	url := fmt.Sprintf("%s/query?function=TIME_SERIES_DAILY&symbol=%s&outputsize=full&apikey=%s",
		f.BaseURL, symbol, f.APIKey)
	resp, err := f.Transport.Get(ctx, url)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.ExternalService, "daily series request", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode, resp.Body)
	}

	all, err := f.Decoder.Decode(resp.Body)
	if err != nil {
		return nil, err
	}

	filtered := make([]candle.Candle, 0, len(all))
	for _, c := range all {
		if !c.OpenTime.Before(start) && c.OpenTime.Before(end) {
			filtered = append(filtered, c)
		}
	}

	f.Cache.Store(key, filtered)
	return filtered, nil
}
