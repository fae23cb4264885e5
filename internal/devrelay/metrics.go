package devrelay

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	stored   *prometheus.CounterVec
	relayed  prometheus.Counter
	rejected *prometheus.CounterVec
	sockets  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		stored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fcsrelay",
			Name:      "messages_stored_total",
			Help:      "Envelopes persisted, by conversation kind.",
		}, []string{"kind"}),
		relayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fcsrelay",
			Name:      "frames_relayed_total",
			Help:      "Frames fanned out to room sockets.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fcsrelay",
			Name:      "messages_rejected_total",
			Help:      "Sends refused, by reason.",
		}, []string{"reason"}),
		sockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fcsrelay",
			Name:      "sockets_open",
			Help:      "Currently connected room sockets.",
		}),
	}
	reg.MustRegister(m.stored, m.relayed, m.rejected, m.sockets)
	return m
}

func kindLabel(group bool) string {
	if group {
		return "group"
	}
	return "direct"
}
