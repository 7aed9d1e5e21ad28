package fetch

import (
	"fmt"

	"github.com/vela-markets/backtestcore/internal/coreerr"
)

// validateSymbol enforces SPEC_FULL.md §4.3's precondition: symbol must be
// non-empty and upper-case alphanumeric.
func validateSymbol(symbol string) error {
	if symbol == "" {
		return coreerr.New(coreerr.BadRequest, "symbol must not be empty")
	}
	for _, r := range symbol {
		isUpperAlpha := r >= 'A' && r <= 'Z'
		isDigit := r >= '0' && r <= '9'
		if !isUpperAlpha && !isDigit {
			return coreerr.New(coreerr.BadRequest, fmt.Sprintf("symbol %q must be upper-case alphanumeric", symbol))
		}
	}
	return nil
}

// classifyStatus maps an HTTP status code to the spec's error taxonomy,
// matching the teacher's fmt.Errorf("bridge X %d: %s", status, body)
// wrapping idiom but returning a typed *coreerr.Error instead of a bare
// string so callers can branch on kind.
func classifyStatus(status int, body []byte) error {
	switch status {
	case 429:
		return coreerr.New(coreerr.RateLimit, fmt.Sprintf("rate limited: %s", truncate(body)))
	case 418:
		return coreerr.New(coreerr.Banned, fmt.Sprintf("banned: %s", truncate(body)))
	default:
		return coreerr.New(coreerr.ExternalService, fmt.Sprintf("unexpected status %d: %s", status, truncate(body)))
	}
}

func truncate(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
