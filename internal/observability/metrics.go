// Package observability exposes Prometheus metrics for the service.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every counter the service records.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	CommandsResolved  *prometheus.CounterVec
	GuardRejections   *prometheus.CounterVec
	StoreCommits      prometheus.Counter
	StoreCommitErrors prometheus.Counter
	StoreTxDuration   prometheus.Histogram
	ParserFailures    prometheus.Counter
	SnapshotsRecorded prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		CommandsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_commands_resolved_total",
			Help: "Natural-language commands resolved, by final intent.",
		}, []string{"intent"}),
		GuardRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_sync_guard_rejections_total",
			Help: "Sync payloads rejected, by guard name.",
		}, []string{"guard"}),
		StoreCommits: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_store_commits_total",
			Help: "Successful portfolio document commits.",
		}),
		StoreCommitErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_store_commit_errors_total",
			Help: "Store transactions that aborted or failed to persist.",
		}),
		StoreTxDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "folio_store_tx_duration_seconds",
			Help:    "End-to-end duration of store transactions.",
			Buckets: prometheus.DefBuckets,
		}),
		ParserFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_parser_failures_total",
			Help: "Upstream parser calls that failed or returned garbage.",
		}),
		SnapshotsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "folio_snapshots_recorded_total",
			Help: "Daily portfolio snapshots appended.",
		}),
	}
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
