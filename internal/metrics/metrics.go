package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relief_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relief_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// OTP
	OTPSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relief_otp_sent_total",
		Help: "OTP emails by result",
	}, []string{"result"})

	OTPVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relief_otp_verifications_total",
		Help: "OTP verification attempts by result",
	}, []string{"result"})

	// Назначения
	AllocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relief_allocations_total",
		Help: "Resource allocations created",
	})

	AllocationDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relief_allocation_decisions_total",
		Help: "Allocation decisions by outcome",
	}, []string{"decision"})

	IncidentStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relief_incident_status_changes_total",
		Help: "Incident status changes by target status",
	}, []string{"status"})

	// Email
	EmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relief_emails_total",
		Help: "Outbound emails by template and result",
	}, []string{"template", "result"})

	// WebSocket
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relief_ws_connections",
		Help: "Open notification websocket connections",
	})
)

// Result - метка результата для счетчиков
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
