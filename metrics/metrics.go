// Package metrics records solver statistics as Prometheus metrics.
package metrics

import (
	"io"
	"os"

	"github.com/milosgajdos/go-approx/dp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Solve results used as label values.
const (
	ResultOK         = "ok"
	ResultInfeasible = "infeasible"
	ResultError      = "error"
)

// Metrics holds solver collectors.
type Metrics struct {
	solves     *prometheus.CounterVec
	duration   prometheus.Histogram
	edges      prometheus.Counter
	violations prometheus.Counter
	success    prometheus.Gauge
}

// New creates solver collectors and registers them with reg.
// It returns error if any collector fails to register.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "approx_solve_total",
				Help: "Total number of solver runs by result",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "approx_solve_duration_seconds",
				Help:    "Duration of solver runs",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),
		edges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "approx_edges_total",
				Help: "Total number of evaluated lattice transitions",
			},
		),
		violations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "approx_dwell_violations_total",
				Help: "Total number of transitions violating a dwell time constraint",
			},
		),
		success: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "approx_solve_success",
				Help: "Whether the last solver run found a feasible path",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.solves, m.duration, m.edges, m.violations, m.success} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Record records the statistics of a finished run.
func (m *Metrics) Record(st dp.Stats, success bool) {
	result := ResultOK
	if !success {
		result = ResultInfeasible
	}

	m.solves.WithLabelValues(result).Inc()
	m.duration.Observe(st.Duration.Seconds())
	m.edges.Add(float64(st.Edges))
	m.violations.Add(float64(st.Violations))

	if success {
		m.success.Set(1)
	} else {
		m.success.Set(0)
	}
}

// RecordError records a failed run.
func (m *Metrics) RecordError() {
	m.solves.WithLabelValues(ResultError).Inc()
	m.success.Set(0)
}

// WriteText writes all metrics gathered from g to w in the text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}

	return nil
}

// WriteFile writes all metrics gathered from g to the file at path.
func WriteFile(path string, g prometheus.Gatherer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := WriteText(f, g); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
