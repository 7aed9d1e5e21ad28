// Package fetch implements the chunked backfill fetchers that sit between
// the cache (§4.2) and a remote venue API (§4.3).
//
// Transport and Decoder are split deliberately, per the spec's REDESIGN
// FLAG: "split HTTP transport from decoding in the fetcher". This mirrors
// the teacher's broker_binance.go pattern of an http.Client round-trip
// followed by a pure JSON-to-struct decode function, but promotes both
// halves to first-class, independently testable interfaces.
package fetch

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Response is the raw result of one HTTP round-trip: status code and body
// bytes. Higher layers never see *http.Response directly.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport performs a single GET request and returns the raw response.
// It does not interpret status codes or decode the body; that is the
// Decoder's job plus the caller's error-taxonomy mapping (see errors.go).
type Transport interface {
	Get(ctx context.Context, url string) (Response, error)
}

// HTTPTransport is the default Transport, a thin wrapper over a reused
// *http.Client, matching the teacher's BinanceBridge{hc: &http.Client{...}}
// long-lived-client idiom.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport builds an HTTPTransport with the given timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{Timeout: timeout}}
}

func (t *HTTPTransport) Get(ctx context.Context, url string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, err
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}
	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}
