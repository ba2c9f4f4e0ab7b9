package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tradeconnect_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostsPublished counts listings transitioning to published.
	PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradeconnect_posts_published_total",
		Help: "Total number of listings published",
	})

	// ViewsTracked counts deduplicated post views recorded.
	ViewsTracked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradeconnect_views_tracked_total",
		Help: "Total number of deduplicated post views recorded",
	})
)

// ObserveQuery records the latency of a database query started at start.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		ObserveQuery(operation, table, start)
	}
}
