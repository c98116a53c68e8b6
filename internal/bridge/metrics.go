package bridge

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the bridge's instrumentation. One Metrics instance is
// shared across reconnects and bridge rebuilds, because collectors can
// only be registered once; pass the same instance to every Bridge of a
// module instance.
type Metrics struct {
	APIRequests       *prometheus.CounterVec
	APILatency        *prometheus.HistogramVec
	PollCycles        *prometheus.CounterVec
	ConfirmMismatches prometheus.Counter
	Connected         prometheus.Gauge
	CachedPorts       prometheus.Gauge
}

// NewMetrics builds unregistered collectors; register them wherever the
// host exposes metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poedeck",
			Name:      "api_requests_total",
			Help:      "Controller API calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		APILatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "poedeck",
			Name:      "api_request_seconds",
			Help:      "Controller API call latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poedeck",
			Name:      "poll_cycles_total",
			Help:      "Poll cycle runs by cycle and outcome.",
		}, []string{"cycle", "outcome"}),
		ConfirmMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "poedeck",
			Name:      "confirm_mismatches_total",
			Help:      "Confirmation re-checks that found hardware state differing from the optimistic write.",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "poedeck",
			Name:      "connected",
			Help:      "1 while a controller session is established.",
		}),
		CachedPorts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "poedeck",
			Name:      "cached_ports",
			Help:      "Port entries currently held in the state cache.",
		}),
	}
}

// Collectors returns everything to register.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.APIRequests,
		m.APILatency,
		m.PollCycles,
		m.ConfirmMismatches,
		m.Connected,
		m.CachedPorts,
	}
}
