package lebai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records client activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	actions     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	streamBytes prometheus.Counter
}

// NewMetrics creates the client metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lebai",
			Name:      "actions_total",
			Help:      "Requests sent to the robot, by command and outcome.",
		}, []string{"cmd", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lebai",
			Name:      "action_duration_seconds",
			Help:      "Round-trip time of robot requests.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"cmd"}),
		streamBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lebai",
			Name:      "stream_bytes_total",
			Help:      "Bytes received from task log streams.",
		}),
	}

	for _, c := range []prometheus.Collector{m.actions, m.duration, m.streamBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Outcome labels for lebai_actions_total.
const (
	outcomeOK        = "ok"
	outcomeDevice    = "device_error"
	outcomeTransport = "transport_error"
)

func (m *Metrics) observe(cmd, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(cmd, outcome).Inc()
	m.duration.WithLabelValues(cmd).Observe(elapsed.Seconds())
}

func (m *Metrics) addStreamBytes(n int) {
	if m == nil {
		return
	}
	m.streamBytes.Add(float64(n))
}
