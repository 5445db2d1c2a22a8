// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectorstore_upstream_requests_total",
			Help: "Requests issued to the package registry, by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "connectorstore_upstream_request_duration_milliseconds",
			Help:    "Registry request duration in milliseconds",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"endpoint"},
	)
	RetryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectorstore_retry_failures_total",
			Help: "Failed attempts observed by the retry wrapper",
		},
		[]string{"operation"},
	)
	SubQueries = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "connectorstore_search_subqueries",
			Help:    "Number of sub-queries a single search expanded into",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 50},
		},
	)
	FacetCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectorstore_facet_cache_lookups_total",
			Help: "Facet cache lookups by result (hit, miss, expired, error)",
		},
		[]string{"result"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectorstore_http_requests_total",
			Help: "API requests served, by route pattern and status code",
		},
		[]string{"route", "code"},
	)
	EnrichBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectorstore_enrich_batches_total",
			Help: "Pull-count enrichment batches by outcome",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(UpstreamRequests)
	prometheus.MustRegister(UpstreamDuration)
	prometheus.MustRegister(RetryAttempts)
	prometheus.MustRegister(SubQueries)
	prometheus.MustRegister(FacetCache)
	prometheus.MustRegister(EnrichBatches)
	prometheus.MustRegister(HTTPRequests)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
