// Package metrics implements the Prometheus recorder behind the store,
// source chain and daily job metric interfaces.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records service metrics using Prometheus.
type Recorder struct {
	fetchAttempts        *prometheus.CounterVec
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
	lastPrice            *prometheus.GaugeVec
	durableWriteFailures prometheus.Counter
	dailyJobOutcomes     *prometheus.CounterVec
	dailyJobDuration     prometheus.Histogram
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetchAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundpulse_fetch_attempts_total",
				Help: "Source fetch attempts by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		cacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fundpulse_cache_hits_total",
				Help: "Memory tier hits",
			},
		),
		cacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fundpulse_cache_misses_total",
				Help: "Memory tier misses",
			},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fundpulse_last_price",
				Help: "Last stored price for a symbol",
			},
			[]string{"symbol"},
		),
		durableWriteFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fundpulse_durable_write_failures_total",
				Help: "Snapshot writes that failed",
			},
		),
		dailyJobOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundpulse_daily_job_total",
				Help: "Daily job trigger outcomes",
			},
			[]string{"outcome"},
		),
		dailyJobDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fundpulse_daily_job_duration_seconds",
				Help:    "Daily job duration in seconds",
				Buckets: []float64{0.1, 1, 5, 15, 60, 180, 600},
			},
		),
	}
}

// RecordFetch records one source attempt.
func (r *Recorder) RecordFetch(source, outcome string) {
	r.fetchAttempts.WithLabelValues(source, outcome).Inc()
}

// RecordCacheHit records a memory tier hit.
func (r *Recorder) RecordCacheHit() {
	r.cacheHits.Inc()
}

// RecordCacheMiss records a memory tier miss.
func (r *Recorder) RecordCacheMiss() {
	r.cacheMisses.Inc()
}

// RecordLastPrice records the last stored price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordDurableWriteFailure records a failed snapshot write.
func (r *Recorder) RecordDurableWriteFailure() {
	r.durableWriteFailures.Inc()
}

// RecordDailyJob records one daily job trigger.
func (r *Recorder) RecordDailyJob(outcome string, duration time.Duration) {
	r.dailyJobOutcomes.WithLabelValues(outcome).Inc()
	if outcome == "started" || outcome == "took_over" {
		r.dailyJobDuration.Observe(duration.Seconds())
	}
}
