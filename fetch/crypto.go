package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/vela-markets/backtestcore/cache"
	"github.com/vela-markets/backtestcore/candle"
	"github.com/vela-markets/backtestcore/internal/coreerr"
	"github.com/vela-markets/backtestcore/ratelimit"
)

// CryptoFetcher pages a crypto venue's klines endpoint forward in time
// under a shared rate limiter, reassembling the full requested range and
// writing the result back to the cache.
//
// Grounded on the teacher's tools/backfill_bridge_paged.go, which pages
// the same kind of endpoint but walks backward from "now"; this fetcher
// inverts that to the spec's forward-paging, cursor-advances-by-close-time
// algorithm (§4.3), and on the HTTP/error-handling side follows
// broker_binance.go's status-code branching and context-aware requests.
type CryptoFetcher struct {
	Venue     string
	BaseURL   string
	Cache     *cache.Cache
	Limiter   *ratelimit.Limiter
	Transport Transport
	Decoder   Decoder

	// InterRequestDelay is the courtesy sleep between chunk requests,
	// defaulting to 100ms per the spec.
	InterRequestDelay time.Duration
	// PageLimit is the max candles the remote API returns per page.
	PageLimit int
}

// NewCryptoFetcher builds a CryptoFetcher with spec defaults.
func NewCryptoFetcher(venue, baseURL string, c *cache.Cache, lim *ratelimit.Limiter, tr Transport) *CryptoFetcher {
	return &CryptoFetcher{
		Venue:             venue,
		BaseURL:           baseURL,
		Cache:             c,
		Limiter:           lim,
		Transport:         tr,
		Decoder:           CryptoKlineDecoder{},
		InterRequestDelay: 100 * time.Millisecond,
		PageLimit:         1000,
	}
}

func (f *CryptoFetcher) Fetch(ctx context.Context, symbol string, interval candle.Interval, start, end time.Time) ([]candle.Candle, error) {
	if !(start.Before(end)) {
		return nil, coreerr.New(coreerr.BadRequest, "t_start must be before t_end")
	}
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	if !interval.Valid() {
		return nil, coreerr.New(coreerr.BadRequest, fmt.Sprintf("unsupported interval %q", interval))
	}

	key := cache.NewKey(f.Venue, symbol, interval, start, end)
	if hit, ok := f.Cache.Get(key); ok {
		return hit, nil
	}

	nominal, err := candle.NominalDuration(interval)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.BadRequest, "interval", err)
	}
	chunkSpan := nominal * time.Duration(f.PageLimit)

	var assembled []candle.Candle
	cursor := start
	for cursor.Before(end) {
		chunkEnd := cursor.Add(chunkSpan)
		if chunkEnd.After(end) {
			chunkEnd = end
		}

		if err := f.Limiter.WaitIfNeeded(ctx); err != nil {
			return nil, err
		}
		if !f.Limiter.Admit(1) {
			if err := f.Limiter.WaitIfNeeded(ctx); err != nil {
				return nil, err
			}
		}

		url := fmt.Sprintf("%s/klines?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=%d",
			f.BaseURL, symbol, interval, cursor.UnixMilli(), chunkEnd.UnixMilli(), f.PageLimit)

		resp, err := f.Transport.Get(ctx, url)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.ExternalService, "kline request", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, classifyStatus(resp.StatusCode, resp.Body)
		}
		f.Limiter.Record(1)

		page, err := f.Decoder.Decode(resp.Body)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		assembled = append(assembled, page...)
		last := page[len(page)-1]
		cursor = last.CloseTime.Add(time.Millisecond)
		if len(page) < f.PageLimit {
			// A short page is the tail of the available range.
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.InterRequestDelay):
		}
	}

	f.Cache.Store(key, assembled)
	return assembled, nil
}
