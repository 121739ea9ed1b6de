// Package metrics registers the Prometheus counters and histograms
// this server exposes, grounded on the `metrics` type in the real
// protomaps/go-pmtiles pmtiles-server.go (cache hit/miss counters,
// bucket-fetch latency).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every counter/histogram the coordinator and backends
// report to.
type Metrics struct {
	TileCacheHits       prometheus.Counter
	TileCacheMisses     prometheus.Counter
	DirectoryCacheHits   prometheus.Counter
	DirectoryCacheMisses prometheus.Counter
	PostgresQueryLatency prometheus.Histogram
	BucketFetchLatency   prometheus.Histogram
	BucketFetchErrors    prometheus.Counter
}

// New creates and registers every metric against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TileCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tileserv_tile_cache_hits_total",
			Help: "Tile cache hits.",
		}),
		TileCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tileserv_tile_cache_misses_total",
			Help: "Tile cache misses (computed, possibly shared via single-flight).",
		}),
		DirectoryCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tileserv_pmtiles_directory_cache_hits_total",
			Help: "PMTiles directory cache hits.",
		}),
		DirectoryCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tileserv_pmtiles_directory_cache_misses_total",
			Help: "PMTiles directory cache misses.",
		}),
		PostgresQueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tileserv_postgres_query_duration_seconds",
			Help:    "Latency of per-tile Postgres queries.",
			Buckets: prometheus.DefBuckets,
		}),
		BucketFetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tileserv_pmtiles_bucket_fetch_duration_seconds",
			Help:    "Latency of PMTiles archive range reads.",
			Buckets: prometheus.DefBuckets,
		}),
		BucketFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tileserv_pmtiles_bucket_fetch_errors_total",
			Help: "PMTiles archive range-read failures.",
		}),
	}

	reg.MustRegister(
		m.TileCacheHits, m.TileCacheMisses,
		m.DirectoryCacheHits, m.DirectoryCacheMisses,
		m.PostgresQueryLatency, m.BucketFetchLatency, m.BucketFetchErrors,
	)
	return m
}
