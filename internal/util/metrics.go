package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Total number of cart mutations by operation",
	}, []string{"op"})

	CartLoadCorruptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_load_corrupt_total",
		Help: "Total number of persisted carts discarded as unparseable",
	})

	OrdersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_submitted_total",
		Help: "Total number of orders accepted by the order service",
	})

	OrdersSubmitFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_submit_failed_total",
		Help: "Total number of failed order submissions",
	}, []string{"reason"})

	DraftsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_drafts_started_total",
		Help: "Total number of product draft sessions opened",
	}, []string{"mode"})

	DraftsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_drafts_submitted_total",
		Help: "Total number of product drafts accepted by the product service",
	})

	DraftsSubmitFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_drafts_submit_failed_total",
		Help: "Total number of failed product draft submissions",
	})

	TrackingStatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracking_status_updates_total",
		Help: "Total number of order status updates by source",
	}, []string{"source"})

	TrackingFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracking_fallbacks_total",
		Help: "Total number of tracking reads served from the cached snapshot",
	})

	CatalogSyncLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_sync_latency_seconds",
		Help:    "Latency of full catalog sync runs",
		Buckets: prometheus.DefBuckets,
	})

	RemoteRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "remote_request_duration_seconds",
		Help:    "Latency of calls to the backend services",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "operation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
