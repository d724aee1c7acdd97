package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metricsSink mirrors Collector recordings into Prometheus collectors,
// exposed alongside the JSON status endpoint for scraping.
type metricsSink struct {
	workers       prometheus.Gauge
	active        prometheus.Gauge
	meanLatency   prometheus.Gauge
	controlError  prometheus.Gauge
	completions   prometheus.Counter
	latencyHist   prometheus.Histogram
	sloCompliance prometheus.Gauge
}

// NewMetricsSink creates and registers the simulator's gauges/counters on
// the given registerer. The run command passes a dedicated
// prometheus.NewRegistry() that /metrics serves; tests pass a fresh
// registry per collector to avoid duplicate registration.
func NewMetricsSink(reg prometheus.Registerer) *metricsSink {
	m := &metricsSink{
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadsim_workers",
			Help: "Current number of workers in the pool.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadsim_active_requests",
			Help: "Number of requests currently in flight (busy workers + pending queue) at the last sample.",
		}),
		meanLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadsim_mean_inflight_latency_seconds",
			Help: "Mean in-flight latency at the last sampler tick.",
		}),
		controlError: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadsim_control_error_seconds",
			Help: "Setpoint minus measured latency at the last sampler tick.",
		}),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loadsim_completions_total",
			Help: "Total number of completed requests.",
		}),
		latencyHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "loadsim_completion_latency_seconds",
			Help:    "Distribution of per-request completion latency.",
			Buckets: prometheus.DefBuckets,
		}),
		sloCompliance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadsim_slo_compliance_percent",
			Help: "Most recently computed SLO compliance percentage.",
		}),
	}

	reg.MustRegister(m.workers, m.active, m.meanLatency, m.controlError, m.completions, m.latencyHist, m.sloCompliance)
	return m
}

func (m *metricsSink) observeSample(p SamplePoint) {
	m.workers.Set(float64(p.NWorkers))
	m.active.Set(float64(p.NActive))
	m.meanLatency.Set(p.MeanLatency)
	m.controlError.Set(p.Error)
}

func (m *metricsSink) observeCompletion(latency float64) {
	m.completions.Inc()
	m.latencyHist.Observe(latency)
}

func (m *metricsSink) observeSLO(pct float64) {
	m.sloCompliance.Set(pct)
}
