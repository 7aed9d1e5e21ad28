package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/mem"
)

// Collectors mirror the teacher's metrics.go init()+MustRegister pattern,
// renamed to this subsystem's domain: cache occupancy, rate-limiter
// budget, fetch round-trips and backtest runs, instead of orders/
// decisions/exit-reasons.
var (
	CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_entries_total",
		Help: "Number of candle ranges currently cached.",
	})
	CacheHotEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hot_entries_total",
		Help: "Number of cached entries classified as hot.",
	})
	CacheEstimatedSizeMB = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_estimated_size_mb",
		Help: "Estimated cache footprint in megabytes.",
	})
	RateLimiterWeightUsed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ratelimiter_weight_used",
		Help: "Current weight used in the active rate-limit window, per venue.",
	}, []string{"venue"})
	FetchRoundTrips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fetch_round_trips_total",
		Help: "Remote candle-page requests issued, per venue.",
	}, []string{"venue"})
	BacktestRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backtest_runs_total",
		Help: "Completed backtest runs, by outcome.",
	}, []string{"outcome"})
	BacktestEquity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "backtest_equity_usd",
		Help: "Portfolio total value of the most recently replayed candle.",
	})
	HostMemoryUsedPct = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "host_memory_used_percent",
		Help: "Host memory utilization, sampled via gopsutil alongside the cache's own size heuristic.",
	})
)

func init() {
	prometheus.MustRegister(
		CacheEntries,
		CacheHotEntries,
		CacheEstimatedSizeMB,
		RateLimiterWeightUsed,
		FetchRoundTrips,
		BacktestRuns,
		BacktestEquity,
		HostMemoryUsedPct,
	)
}

// SampleHostMemory refreshes HostMemoryUsedPct from gopsutil. It is
// best-effort: a read failure leaves the gauge at its last value.
func SampleHostMemory() {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return
	}
	HostMemoryUsedPct.Set(vm.UsedPercent)
}
