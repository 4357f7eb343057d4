// Package telemetry exposes Prometheus metrics for export runs and the
// optional HTTP listener that serves them.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks the number of remote API requests issued,
	// labeled by crawl mode.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgexport_requests_total",
			Help: "The total number of remote API requests issued.",
		},
		[]string{"mode"},
	)
	// RecordsTotal tracks the number of records written to sinks,
	// labeled by crawl mode.
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgexport_records_total",
			Help: "The total number of records written.",
		},
		[]string{"mode"},
	)
	// DroppedOutOfWindowTotal tracks items discarded by the date-window
	// filter. An expected, non-error outcome.
	DroppedOutOfWindowTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgexport_dropped_out_of_window_total",
		Help: "The total number of items dropped by the date-window filter.",
	})
	// RateLimitHitsTotal tracks runs terminated by a server flood wait.
	RateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tgexport_rate_limit_hits_total",
		Help: "The total number of times the exporter was rate limited.",
	})
)
