package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "misra"

// Metrics counts driver and sandbox activity for one run. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	passes          prometheus.Counter
	rewrites        *prometheus.CounterVec
	sandboxRuns     *prometheus.CounterVec
	violations      *prometheus.GaugeVec
	passRewriteHist prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		passes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "driver",
			Name:      "passes_total",
			Help:      "Full tree passes performed while applying corrections",
		}),
		rewrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "driver",
			Name:      "rewrites_total",
			Help:      "Rule applications that changed the tree",
		}, []string{"rule", "outcome"}),
		sandboxRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sandbox",
			Name:      "rebuilds_total",
			Help:      "Rebuilds of disposable units by result",
		}, []string{"result"}),
		violations: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "violations",
			Help:      "Violations recorded at the end of the run",
		}, []string{"severity"}),
		passRewriteHist: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "driver",
			Name:      "pass_rewrites",
			Help:      "Rewrites performed per pass",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
	}
}

// Gatherer exposes the collected metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// WriteTextfile stores the metrics in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Gatherer())
}

func (m *Metrics) observePass(rewrites int) {
	if m == nil {
		return
	}
	m.passes.Inc()
	m.passRewriteHist.Observe(float64(rewrites))
}

func (m *Metrics) observeRewrite(rule string, o Outcome) {
	if m == nil {
		return
	}
	m.rewrites.WithLabelValues(rule, o.Change.String()).Inc()
}

func (m *Metrics) observeSandbox(ok bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if ok {
		result = "accepted"
	}
	m.sandboxRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) observeViolations(errors, warnings int) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues("error").Set(float64(errors))
	m.violations.WithLabelValues("warning").Set(float64(warnings))
}
