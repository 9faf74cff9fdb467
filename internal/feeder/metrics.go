package feeder

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes feeder counters to Prometheus.
type Metrics struct {
	ticks      prometheus.Counter
	sent       prometheus.Counter
	failed     prometheus.Counter
	tapErrors  prometheus.Counter
	latency    prometheus.Histogram
	leak       prometheus.Gauge
	lowBattery prometheus.Gauge
}

// NewMetrics creates the feeder metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydronom_feeder_ticks_total",
			Help: "Ticks executed by the feeder loop.",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydronom_feeder_sent_total",
			Help: "Records accepted by the transport.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydronom_feeder_send_failures_total",
			Help: "Records the transport failed to deliver.",
		}),
		tapErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydronom_feeder_tap_errors_total",
			Help: "Errors returned by secondary record writers.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hydronom_feeder_send_latency_seconds",
			Help:    "Duration of a single transport send.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		leak: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hydronom_feeder_leak_active",
			Help: "1 once the leak fault is active.",
		}),
		lowBattery: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hydronom_feeder_low_battery_active",
			Help: "1 once the low-battery fault is active.",
		}),
	}
	reg.MustRegister(m.ticks, m.sent, m.failed, m.tapErrors, m.latency, m.leak, m.lowBattery)
	return m
}

func (m *Metrics) observeSend(o Outcome) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.latency.Observe(o.Latency.Seconds())
	if o.OK {
		m.sent.Inc()
	} else {
		m.failed.Inc()
	}
}

func (m *Metrics) observeFaults(leak, lowBattery bool) {
	if m == nil {
		return
	}
	m.leak.Set(boolGauge(leak))
	m.lowBattery.Set(boolGauge(lowBattery))
}

func (m *Metrics) observeTapError() {
	if m == nil {
		return
	}
	m.tapErrors.Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
