package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
)

const namespace = "lbsync"

// Metrics groups every collector lbsync exports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Reconciliations  *prometheus.CounterVec
	ReconcileSeconds prometheus.Histogram
	ServiceLinks     prometheus.Gauge
	Certificates     prometheus.Gauge
	SkippedServices  prometheus.Gauge
	Events           *prometheus.CounterVec
	Subscribed       prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Reconciliations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation passes by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		ReconcileSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation passes, retries included",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ServiceLinks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_links",
			Help:      "Service link entries pushed by the last successful pass",
		}),
		Certificates: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "certificates",
			Help:      "Certificates pushed by the last successful pass",
		}),
		SkippedServices: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "skipped_services",
			Help:      "Linked services left out of the last pass because of invalid labels",
		}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Platform events received, by source and outcome",
		}, []string{"source", "outcome"}),
		Subscribed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscription_up",
			Help:      "1 while the event subscription is connected",
		}),
	}
}

// ObserveReport records a finished pass.
func (m *Metrics) ObserveReport(r domain.Report) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(r.Trigger, string(r.Outcome)).Inc()
	m.ReconcileSeconds.Observe(r.Duration.Seconds())
	if r.Outcome == domain.OutcomeDone {
		m.ServiceLinks.Set(float64(r.ServiceLinks))
		m.Certificates.Set(float64(r.Certificates))
		m.SkippedServices.Set(float64(r.Skipped))
	}
}

// ObserveEvent counts an event by where it came from and what happened.
func (m *Metrics) ObserveEvent(source string, outcome domain.Outcome) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(source, string(outcome)).Inc()
}

// SetSubscribed flags the event subscription as up or down.
func (m *Metrics) SetSubscribed(up bool) {
	if m == nil {
		return
	}
	if up {
		m.Subscribed.Set(1)
		return
	}
	m.Subscribed.Set(0)
}
