package relay

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus counters for relay traffic.
type Metrics struct {
	Published  prometheus.Counter
	Dropped    prometheus.Counter
	Received   prometheus.Counter
	Suppressed prometheus.Counter
	Malformed  prometheus.Counter
}

// NewMetrics registers relay collectors with the provided registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realtime", Subsystem: "relay", Name: "published_total",
			Help: "Events published to the broker.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realtime", Subsystem: "relay", Name: "dropped_total",
			Help: "Events dropped because the broker link was down or publish failed.",
		}),
		Received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realtime", Subsystem: "relay", Name: "received_total",
			Help: "Envelopes received from the broker.",
		}),
		Suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realtime", Subsystem: "relay", Name: "suppressed_total",
			Help: "Self-originated envelopes discarded by echo suppression.",
		}),
		Malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realtime", Subsystem: "relay", Name: "malformed_total",
			Help: "Envelopes dropped because they failed to decode.",
		}),
	}

	for _, collector := range []prometheus.Collector{m.Published, m.Dropped, m.Received, m.Suppressed, m.Malformed} {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, fmt.Errorf("register relay collector: %w", err)
		}
	}

	return m, nil
}
