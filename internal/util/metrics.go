package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Total number of pending reservations created",
	})

	ReservationsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_confirmed_total",
		Help: "Total number of reservations confirmed by payment",
	})

	ReservationsCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_cancelled_total",
		Help: "Total number of cancelled reservations",
	}, []string{"reason"})

	ReservationsRefundedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_refunded_total",
		Help: "Total number of refunded reservations",
	})

	ReservationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_failed_total",
		Help: "Total number of rejected reservation requests",
	}, []string{"reason"})

	SweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweep_runs_total",
		Help: "Total number of reconciliation sweep runs",
	})

	SweepResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_resolved_total",
		Help: "Stale pending reservations resolved by the sweep",
	}, []string{"outcome"})

	VouchersIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vouchers_issued_total",
		Help: "Total number of vouchers issued",
	})

	VoucherRedemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voucher_redemptions_total",
		Help: "Voucher redemption attempts by result",
	}, []string{"result"})

	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Payment gateway calls by operation and result",
	}, []string{"operation", "result"})

	GatewayRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_latency_seconds",
		Help:    "Latency of payment gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Gateway webhook events by type",
	}, []string{"event"})

	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of confirmation notifications sent",
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
