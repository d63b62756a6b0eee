package audit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports audit outcomes to Prometheus.
type Metrics struct {
	findings *prometheus.GaugeVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewMetrics creates the audit collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tickerguard",
			Subsystem: "audit",
			Name:      "findings",
			Help:      "Failing findings from the most recent run, by plugin and severity.",
		}, []string{"plugin", "severity"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tickerguard",
			Subsystem: "audit",
			Name:      "run_seconds",
			Help:      "Plugin run duration.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"plugin"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tickerguard",
			Subsystem: "audit",
			Name:      "plugin_errors_total",
			Help:      "Plugin runs that returned an error.",
		}, []string{"plugin"}),
	}
	reg.MustRegister(m.findings, m.duration, m.errors)
	return m
}

func (m *Metrics) observe(res PluginResult) {
	m.duration.WithLabelValues(res.PluginID).Observe(res.Duration.Seconds())
	if res.Err != nil {
		m.errors.WithLabelValues(res.PluginID).Inc()
		return
	}
	counts := map[Severity]int{SeverityLow: 0, SeverityMedium: 0, SeverityHigh: 0}
	for _, f := range res.Findings {
		if f.Failed() {
			counts[f.Severity]++
		}
	}
	for sev, n := range counts {
		m.findings.WithLabelValues(res.PluginID, string(sev)).Set(float64(n))
	}
}
