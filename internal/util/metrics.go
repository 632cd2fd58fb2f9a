package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommitmentsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commitments_accepted_total",
		Help: "Total number of commitments accepted into the ledger",
	})

	CommitmentsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commitments_rejected_total",
		Help: "Total number of rejected commitment attempts",
	}, []string{"reason"})

	CommitmentsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commitments_cancelled_total",
		Help: "Total number of cancelled commitments",
	})

	DealsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deals_created_total",
		Help: "Total number of deals created",
	}, []string{"origin"})

	DealsFulfilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deals_fulfilled_total",
		Help: "Total number of deals that reached their target quantity",
	})

	DealsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deals_expired_total",
		Help: "Total number of deals expired past their deadline",
	})

	DealsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deals_closed_total",
		Help: "Total number of deals closed by an administrator",
	})

	CommitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "commitment_commit_latency_seconds",
		Help:    "Latency of the atomic commit operation",
		Buckets: prometheus.DefBuckets,
	})

	CommitRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commitment_commit_retries_total",
		Help: "Total number of transparent retries on storage write conflicts",
	})

	SourcingRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sourcing_runs_total",
		Help: "Total number of deal discovery runs",
	})

	SourcingDealsFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sourcing_deals_found_total",
		Help: "Total number of draft deals produced by discovery",
	})

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
