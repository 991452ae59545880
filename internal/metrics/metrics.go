// Package metrics exposes Prometheus counters for webhook handling and email
// delivery. Values are fed from the event bus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaharia-lab/inboxmailer/internal/eventbus"
)

const namespace = "inboxmailer"

// Metrics holds the service's collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	WebhooksReceived *prometheus.CounterVec
	EmailsSent       *prometheus.CounterVec
	EmailFailures    *prometheus.CounterVec
	WebhookDuration  *prometheus.HistogramVec
}

// New creates a Metrics with its own registry, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		WebhooksReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_received_total",
			Help:      "Webhook deliveries received, by handling result.",
		}, []string{"result"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Notification emails accepted by the mail provider.",
		}, []string{"provider"}),
		EmailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_failures_total",
			Help:      "Notification emails that could not be delivered, by reason.",
		}, []string{"reason"}),
		WebhookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Time to handle a webhook delivery end to end.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.WebhooksReceived,
		m.EmailsSent,
		m.EmailFailures,
		m.WebhookDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Listen is an eventbus.Listener that updates counters from published events.
func (m *Metrics) Listen(e eventbus.Event) {
	switch e.Type {
	case eventbus.TypeWebhookHandled:
		m.WebhooksReceived.WithLabelValues(e.Result).Inc()
		m.WebhookDuration.WithLabelValues(e.Result).Observe(e.Duration.Seconds())
	case eventbus.TypeEmailSent:
		m.EmailsSent.WithLabelValues(e.Provider).Inc()
	case eventbus.TypeEmailFailed:
		m.EmailFailures.WithLabelValues(e.Reason).Inc()
	}
}
