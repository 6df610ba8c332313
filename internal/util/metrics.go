package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Total number of product reservations created",
	})

	ReservationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_failed_total",
		Help: "Total number of failed reservation creations",
	}, []string{"reason"})

	ReservationTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_transitions_total",
		Help: "Total number of applied reservation status transitions",
	}, []string{"status"})

	ReservationTransitionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_transition_failures_total",
		Help: "Total number of rejected or failed reservation transitions",
	}, []string{"reason"})

	StoreRankingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_ranking_latency_seconds",
		Help:    "Latency of loading and ranking stores by distance",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	LocationResolutionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "location_resolution_failures_total",
		Help: "Total number of failed location resolutions",
	}, []string{"reason"})

	AuditEventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_audit_events_total",
		Help: "Reservation events handled by the audit worker",
	}, []string{"result"})

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
