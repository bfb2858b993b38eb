package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the portal backend.
type Metrics struct {
	RegistrationsSubmitted prometheus.Counter
	OTPIssued              prometheus.Counter
	OTPVerified            *prometheus.CounterVec
	StatusTransitions      prometheus.Counter
	FanoutDeliveries       prometheus.Counter
	OutboundMessages       *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portal_registrations_submitted_total",
			Help: "Total number of registration applications submitted",
		}),
		OTPIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portal_otp_issued_total",
			Help: "Total number of one-time codes issued",
		}),
		OTPVerified: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_otp_verified_total",
			Help: "One-time code verification attempts by outcome",
		}, []string{"outcome"}),
		StatusTransitions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portal_status_transitions_total",
			Help: "Total number of application status transitions",
		}),
		FanoutDeliveries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portal_fanout_deliveries_total",
			Help: "Real-time events delivered to connected admin sessions",
		}),
		OutboundMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_outbound_messages_total",
			Help: "Outbound email/SMS attempts by channel and result",
		}, []string{"channel", "result"}),
	}
}
