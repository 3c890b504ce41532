package uas

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are the UAS call/transaction gauges and counters wired to
// prometheus/client_golang (§10.2), grounded on arzzra-soft_phone's
// promauto-based MetricsCollector (pkg/dialog/metrics.go).
type metrics struct {
	activeDialogs    prometheus.Gauge
	invitesReceived  prometheus.Counter
	responsesSent    *prometheus.CounterVec
	callsRejected405 prometheus.Counter
}

// newMetrics registers onto a private registry, not the global default one,
// so that multiple UAS instances (one per test, one per process) never
// collide on prometheus's duplicate-registration panic.
func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		activeDialogs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sipua",
			Subsystem: "uas",
			Name:      "active_dialogs",
			Help:      "Number of confirmed or early dialogs currently tracked by the call table.",
		}),
		invitesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sipua",
			Subsystem: "uas",
			Name:      "invites_received_total",
			Help:      "Total INVITE requests received, including re-INVITEs.",
		}),
		responsesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sipua",
			Subsystem: "uas",
			Name:      "responses_sent_total",
			Help:      "Total responses sent by the UAS, labeled by status class.",
		}, []string{"class"}),
		callsRejected405: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sipua",
			Subsystem: "uas",
			Name:      "method_not_allowed_total",
			Help:      "Total requests rejected with 405 Method Not Allowed.",
		}),
	}
}

func statusClass(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	case status < 600:
		return "5xx"
	default:
		return "6xx"
	}
}
