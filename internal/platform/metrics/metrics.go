// Package metrics registers the Prometheus instruments shared across modules.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	MedicationsCreated    prometheus.Counter
	AdministrationsLogged *prometheus.CounterVec
	AlertsRaised          *prometheus.CounterVec
	AlertsResolved        prometheus.Counter
	AuditSessionsOpened   prometheus.Counter
	AuditSessionsDecided  *prometheus.CounterVec
	NotifierPublishErrors prometheus.Counter
	NotifierDropped       prometheus.Counter
	RequestDuration       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return newWith(prometheus.DefaultRegisterer)
}

// NewForTest registers metrics on a private registry so parallel tests do not
// collide on duplicate registration.
func NewForTest() *Metrics {
	return newWith(prometheus.NewRegistry())
}

func newWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MedicationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "medledger_medications_created_total",
			Help: "Total medication records created in the registry",
		}),
		AdministrationsLogged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medledger_administrations_logged_total",
			Help: "Total administration events logged, by action",
		}, []string{"action"}),
		AlertsRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medledger_alerts_raised_total",
			Help: "Total alerts raised, by severity",
		}, []string{"severity"}),
		AlertsResolved: factory.NewCounter(prometheus.CounterOpts{
			Name: "medledger_alerts_resolved_total",
			Help: "Total alerts resolved by staff",
		}),
		AuditSessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "medledger_audit_sessions_opened_total",
			Help: "Total medication audit sessions opened",
		}),
		AuditSessionsDecided: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medledger_audit_sessions_decided_total",
			Help: "Total audit sessions reaching a terminal state, by outcome",
		}, []string{"outcome"}),
		NotifierPublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "medledger_notifier_publish_errors_total",
			Help: "Change-event publishes that failed and were swallowed",
		}),
		NotifierDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "medledger_notifier_dropped_total",
			Help: "Change events dropped because the async buffer was full",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medledger_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
