// Package metrics declares the Prometheus collectors exported on /metrics.
// Collectors register with the default registry at package init.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Votes counts applied votes by outcome (created, updated, deleted).
	Votes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nextgen_votes_total",
		Help: "Votes applied to posts by outcome",
	}, []string{"outcome"})

	// SlugCollisions counts slug candidates rejected as already taken.
	SlugCollisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nextgen_slug_collisions_total",
		Help: "Slug candidates rejected because they were taken, by entity",
	}, []string{"entity"})

	// TreeMutationDuration tracks structural tree mutations, renumbering
	// included.
	TreeMutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nextgen_tree_mutation_duration_seconds",
		Help:    "Tree mutation duration in seconds by tree and operation",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"tree", "operation"})

	// AssetCleanup counts processed asset cleanup jobs by status.
	AssetCleanup = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nextgen_asset_cleanup_total",
		Help: "Asset cleanup jobs by status (queued, deleted, failed)",
	}, []string{"status"})

	// AutolikeRuns counts autolike runs by status.
	AutolikeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nextgen_autolike_runs_total",
		Help: "Autolike runs by status (liked, skipped, failed)",
	}, []string{"status"})

	// HTTPRequestDuration tracks requests served by the ops listener.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nextgen_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})

	// Panics counts handler panics caught by the recovery middleware.
	Panics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nextgen_http_panics_total",
		Help: "Handler panics recovered by the HTTP middleware",
	})
)

// ObserveTree records the duration of a tree mutation that started at
// start.
func ObserveTree(tree, operation string, start time.Time) {
	TreeMutationDuration.WithLabelValues(tree, operation).Observe(time.Since(start).Seconds())
}
