package announce

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "mdns_announce"

// Metrics counts record registrations, poll failures and the session state.
type Metrics struct {
	records      *prometheus.CounterVec
	pollFailures prometheus.Counter
	state        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_total",
			Help:      "Records added to the entry group, by kind and result.",
		}, []string{"kind", "result"}),
		pollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "poll_failures_total",
			Help:      "Failed iterations of the responder event dispatch.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "session_state",
			Help:      "Announcement session state (0 uninitialized .. 4 committed).",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.records, m.pollFailures, m.state} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) record(kind RecordKind, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.records.WithLabelValues(kind.String(), result).Inc()
}

func (m *Metrics) pollFailed() {
	if m == nil {
		return
	}
	m.pollFailures.Inc()
}

func (m *Metrics) setState(s State) {
	if m == nil {
		return
	}
	m.state.Set(float64(s))
}
