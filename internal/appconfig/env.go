// Package appconfig loads runtime configuration from the environment,
// following the teacher's env.go getEnv*-helper idiom (same names, same
// defaulting behavior) but replacing its hand-rolled whitelist .env
// scanner with github.com/joho/godotenv, per SPEC_FULL.md §1a's ambient
// configuration decision: the pack shows a real ecosystem loader
// (ChoSanghyuk/blackholedex, aristath/sentinel both depend on it), so the
// ad-hoc parser is not preserved.
package appconfig

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file from the current or parent directory if
// present. Missing files are not an error — matching the teacher's
// loadBotEnv(), which silently proceeds when no .env is found.
func LoadDotEnv() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Config bundles the cache/limiter/fetcher environment knobs named in
// SPEC_FULL.md §6.
type Config struct {
	MaxCacheSizeMB       int
	CacheTTLSeconds      int
	CacheHotTTLSeconds   int
	CacheHotThreshold    int
	CacheEvictionFraction float64
	RateLimitWeightPerMinute int
	VenueAPIBaseURL      string
	VenueHTTPTimeout     time.Duration
}

// LoadFromEnv builds a Config from the process environment, applying the
// spec's documented defaults for every unset key.
func LoadFromEnv() Config {
	return Config{
		MaxCacheSizeMB:           getEnvInt("MAX_CACHE_SIZE_MB", 500),
		CacheTTLSeconds:          getEnvInt("CACHE_TTL_SECONDS", 300),
		CacheHotTTLSeconds:       getEnvInt("CACHE_HOT_TTL_SECONDS", 900),
		CacheHotThreshold:        getEnvInt("CACHE_HOT_THRESHOLD", 3),
		CacheEvictionFraction:    getEnvFloat("CACHE_EVICTION_FRACTION", 0.2),
		RateLimitWeightPerMinute: getEnvInt("RATE_LIMIT_WEIGHT_PER_MINUTE", 1200),
		VenueAPIBaseURL:          getEnv("VENUE_API_BASE_URL", ""),
		VenueHTTPTimeout:         time.Duration(getEnvInt("VENUE_HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}
