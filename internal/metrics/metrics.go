package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReturnsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retur_returns_created_total",
		Help: "Total number of return requests successfully submitted.",
	})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retur_transitions_total",
		Help: "Total number of successful workflow transitions.",
	},
		[]string{"action"},
	)

	ReturnsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retur_returns_deleted_total",
		Help: "Total number of return requests deleted.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retur_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)

	RecordsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retur_records_loaded",
		Help: "Number of return records returned by the last full reload.",
	})

	OutboxPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retur_outbox_published_total",
		Help: "Total number of outbox events delivered to the broker.",
	})

	OutboxFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retur_outbox_failed_total",
		Help: "Total number of outbox delivery attempts that failed.",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retur_http_requests_total",
		Help: "HTTP requests by route and status code.",
	},
		[]string{"route", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "retur_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	},
		[]string{"route"},
	)
)
