package reporting

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the harness's own ambient observability (SPEC_FULL.md
// DOMAIN STACK), independent of whatever metrics the system under test
// exposes: run counters by classification, a gauge of each worker's
// current step, and a histogram of simulated-vs-real time ratio.
type Metrics struct {
	runsTotal   *prometheus.CounterVec
	currentStep *prometheus.GaugeVec
	timeRatio   prometheus.Histogram
	registry    *prometheus.Registry
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dst_sim",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by classification.",
		}, []string{"result"}),
		currentStep: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dst_sim",
			Name:      "current_step",
			Help:      "Latest virtual step observed per worker.",
		}, []string{"worker"}),
		timeRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dst_sim",
			Name:      "sim_to_real_time_ratio",
			Help:      "Ratio of simulated time to real wall-clock time per run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	reg.MustRegister(m.runsTotal, m.currentStep, m.timeRatio)
	return m
}

// ObserveRun records one completed run's classification and time ratio.
func (m *Metrics) ObserveRun(successful bool, realMs, simMs int64) {
	if successful {
		m.runsTotal.WithLabelValues("success").Inc()
	} else {
		m.runsTotal.WithLabelValues("fail").Inc()
	}
	if realMs > 0 {
		m.timeRatio.Observe(float64(simMs) / float64(realMs))
	}
}

// SetStep records a worker's latest virtual step, for the gauge a
// dashboard or external Prometheus scrape can chart alongside the TUI.
func (m *Metrics) SetStep(workerID int, step uint64) {
	m.currentStep.WithLabelValues(workerIDLabel(workerID)).Set(float64(step))
}

func workerIDLabel(id int) string {
	if id == 0 {
		return "main"
	}
	return strconv.Itoa(id)
}

// Handler returns the /metrics HTTP handler for --metrics-addr.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
