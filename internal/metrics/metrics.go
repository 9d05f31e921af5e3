// Package metrics exposes Prometheus collectors for the sync pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncItemsTotal       *prometheus.CounterVec
	syncRunsTotal        *prometheus.CounterVec
	syncBytesTotal       prometheus.Counter
	syncChunksTotal      prometheus.Counter
	httpRequestsTotal    *prometheus.CounterVec
	downloadDurationSecs prometheus.Histogram
	syncRunDurationSecs  prometheus.Histogram
	syncItemsInFlight    prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. It is safe to call multiple times.
func Init() {
	once.Do(func() {
		syncItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_items_total",
				Help: "Listed items processed, labeled by outcome (added/updated/skipped/failed).",
			},
			[]string{"outcome"},
		)

		syncRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_runs_total",
				Help: "Completed sync runs, labeled by result (ok/error).",
			},
			[]string{"result"},
		)

		syncBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sync_download_bytes_total",
				Help: "Total bytes downloaded from the corpus.",
			},
		)

		syncChunksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sync_chunks_total",
				Help: "Total chunks pushed to the indexing gateway.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_http_requests_total",
				Help: "Outbound HTTP requests, labeled by method and result (ok/error).",
			},
			[]string{"method", "result"},
		)

		downloadDurationSecs = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sync_download_duration_seconds",
				Help:    "Histogram of document download latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		)

		syncRunDurationSecs = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sync_run_duration_seconds",
				Help:    "Histogram of whole-run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		syncItemsInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sync_items_in_flight",
				Help: "Items currently being processed by workers.",
			},
		)
	})
}

// ObserveItem records the terminal outcome of one listed item.
func ObserveItem(outcome string) {
	if syncItemsTotal != nil {
		syncItemsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveRun records a completed run and its duration.
func ObserveRun(result string, d time.Duration) {
	if syncRunsTotal != nil {
		syncRunsTotal.WithLabelValues(result).Inc()
	}
	if syncRunDurationSecs != nil {
		syncRunDurationSecs.Observe(d.Seconds())
	}
}

// AddBytes accounts for downloaded bytes.
func AddBytes(n int64) {
	if syncBytesTotal != nil && n > 0 {
		syncBytesTotal.Add(float64(n))
	}
}

// AddChunks accounts for chunks pushed to the gateway.
func AddChunks(n int) {
	if syncChunksTotal != nil && n > 0 {
		syncChunksTotal.Add(float64(n))
	}
}

// ObserveRequest records one outbound HTTP request.
func ObserveRequest(method string, err error) {
	if httpRequestsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	httpRequestsTotal.WithLabelValues(method, result).Inc()
}

// ObserveDownload records a download latency.
func ObserveDownload(d time.Duration) {
	if downloadDurationSecs != nil {
		downloadDurationSecs.Observe(d.Seconds())
	}
}

// ItemStarted marks an item as in flight.
func ItemStarted() {
	if syncItemsInFlight != nil {
		syncItemsInFlight.Inc()
	}
}

// ItemFinished marks an item as done.
func ItemFinished() {
	if syncItemsInFlight != nil {
		syncItemsInFlight.Dec()
	}
}
