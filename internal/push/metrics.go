package push

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for push delivery.
type Metrics struct {
	Connections   prometheus.Gauge
	SentFrames    prometheus.Counter
	DroppedFrames prometheus.Counter
}

// NewMetrics registers push collectors with the provided registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "realtime", Subsystem: "push", Name: "connections",
			Help: "Live WebSocket connections held by this instance.",
		}),
		SentFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realtime", Subsystem: "push", Name: "sent_frames_total",
			Help: "Frames written to client connections.",
		}),
		DroppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "realtime", Subsystem: "push", Name: "dropped_frames_total",
			Help: "Frames dropped because a client's send buffer was full.",
		}),
	}

	for _, collector := range []prometheus.Collector{m.Connections, m.SentFrames, m.DroppedFrames} {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, fmt.Errorf("register push collector: %w", err)
		}
	}

	return m, nil
}
