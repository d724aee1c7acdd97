// Package collector is the thread-safe, append-only time-series store for
// the simulator: sampler points and request completions in, snapshots and
// an SLO percentage out.
package collector

import (
	"sync"
	"time"
)

// SamplePoint is one Sampler tick.
type SamplePoint struct {
	T                 float64
	MeanLatency       float64
	NWorkers          int
	NActive           int
	Error             float64
	ArrivalsSinceLast int
}

// CompletionPoint is one Worker completion.
type CompletionPoint struct {
	T       float64
	Latency float64
}

// Collector stores samples and completions and computes SLO compliance.
type Collector struct {
	mu          sync.RWMutex
	samples     []SamplePoint
	completions []CompletionPoint

	simStart time.Time
	metrics  *metricsSink // nil if Prometheus export is disabled
}

// New creates an empty Collector anchored at simStart. Pass a non-nil
// *metricsSink (see metrics.go) to additionally mirror every record into
// Prometheus.
func New(simStart time.Time, m *metricsSink) *Collector {
	return &Collector{simStart: simStart, metrics: m}
}

// RecordSample appends a sampler point.
func (c *Collector) RecordSample(p SamplePoint) {
	c.mu.Lock()
	c.samples = append(c.samples, p)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.observeSample(p)
	}
}

// RecordCompletion appends a completion point. Implements worker.CompletionRecorder.
func (c *Collector) RecordCompletion(t, latency float64) {
	c.mu.Lock()
	c.completions = append(c.completions, CompletionPoint{T: t, Latency: latency})
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.observeCompletion(latency)
	}
}

// Snapshot returns copies of both series, safe for a visualiser to read
// concurrently with further recording.
func (c *Collector) Snapshot() ([]SamplePoint, []CompletionPoint) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	samples := make([]SamplePoint, len(c.samples))
	copy(samples, c.samples)
	completions := make([]CompletionPoint, len(c.completions))
	copy(completions, c.completions)
	return samples, completions
}

// SLOCompliance returns the percentage of completions within windowS of
// now (actual elapsed simulation time, not the last recorded completion)
// whose latency did not exceed setpointS+bandS. Fast completions never
// count against compliance. Returns 100 when there are no completions in
// the window — including once a run has gone idle long enough that every
// recorded completion has aged out.
func (c *Collector) SLOCompliance(windowS, setpointS, bandS float64) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.completions) == 0 {
		return 100
	}

	now := time.Since(c.simStart).Seconds()
	lowerBound := now - windowS
	threshold := setpointS + bandS

	var total, within int
	for _, cp := range c.completions {
		if cp.T < lowerBound {
			continue
		}
		total++
		if cp.Latency <= threshold {
			within++
		}
	}

	if total == 0 {
		return 100
	}

	pct := float64(within) / float64(total) * 100
	if c.metrics != nil {
		c.metrics.observeSLO(pct)
	}
	return pct
}
