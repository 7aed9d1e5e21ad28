// Package obs wires the ambient logging and Prometheus metrics surface
// shared by the cache, rate limiter, fetchers and engine.
//
// Logging upgrades the teacher's log.Printf calls to structured
// github.com/rs/zerolog output (SPEC_FULL.md §1a); metrics keep the
// teacher's metrics.go idiom of package-level collectors registered once
// in init() via prometheus.MustRegister, renamed to this subsystem's
// domain (cache/limiter/fetch/engine counters and gauges instead of
// orders/decisions/exit-reasons).
package obs

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the process-wide structured logger, writing to stderr. main sets
// the global log level at boot (SetLevel); every other package accepts a zerolog.Logger (or uses
// this default) rather than reaching for the standard log package.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

// SetLevel adjusts the global minimum log level, e.g. from a
// LOG_LEVEL env var at boot.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
