package collector

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(time.Now(), NewMetricsSink(reg))
}

// newTestCollectorAt backdates simStart so that elapsedS seconds have
// already passed when the returned Collector measures "now" — letting a
// test place completions at specific simulation-relative timestamps.
func newTestCollectorAt(t *testing.T, elapsedS float64) *Collector {
	t.Helper()
	reg := prometheus.NewRegistry()
	simStart := time.Now().Add(-time.Duration(elapsedS * float64(time.Second)))
	return New(simStart, NewMetricsSink(reg))
}

func TestSLOComplianceNoCompletionsReturns100(t *testing.T) {
	c := newTestCollector(t)
	assert.Equal(t, 100.0, c.SLOCompliance(60, 1.0, 0.2))
}

func TestSLOComplianceWorkedExample(t *testing.T) {
	// latencies {0.1, 0.2, 0.5, 1.1, 1.3}, setpoint 1.0, band 0.2
	// -> threshold 1.2 -> 4 of 5 comply -> 80.0
	c := newTestCollector(t)
	latencies := []float64{0.1, 0.2, 0.5, 1.1, 1.3}
	for i, lat := range latencies {
		c.RecordCompletion(float64(i), lat)
	}

	got := c.SLOCompliance(60, 1.0, 0.2)
	assert.InDelta(t, 80.0, got, 1e-9)
}

func TestSLOComplianceBandCoveringEverythingIsAlways100(t *testing.T) {
	c := newTestCollector(t)
	for i, lat := range []float64{0.1, 5.0, 10.0} {
		c.RecordCompletion(float64(i), lat)
	}
	assert.Equal(t, 100.0, c.SLOCompliance(60, 0, 1000))
}

func TestSLOComplianceWindowExcludesOldCompletions(t *testing.T) {
	c := newTestCollectorAt(t, 100) // "now" is 100s into the run
	c.RecordCompletion(0, 5.0)      // old, non-compliant, outside window
	c.RecordCompletion(100, 0.1)    // recent, compliant

	got := c.SLOCompliance(10, 1.0, 0.2)
	assert.Equal(t, 100.0, got)
}

// A bad completion should stop counting against compliance once it ages
// out of the window, even if it's the only completion the run ever saw —
// SLOCompliance must measure against wall-clock elapsed time, not the
// timestamp of the last recorded completion.
func TestSLOComplianceIdlePeriodAfterBadCompletionReturns100(t *testing.T) {
	c := newTestCollectorAt(t, 200) // 200s into the run, long past the window
	c.RecordCompletion(0, 5.0)      // the only completion ever recorded, non-compliant

	got := c.SLOCompliance(10, 1.0, 0.2)
	assert.Equal(t, 100.0, got)
}

func TestSnapshotReturnsIndependentCopies(t *testing.T) {
	c := newTestCollector(t)
	c.RecordSample(SamplePoint{T: 1, MeanLatency: 0.5, NWorkers: 2})
	c.RecordCompletion(1, 0.3)

	samples, completions := c.Snapshot()
	require.Len(t, samples, 1)
	require.Len(t, completions, 1)

	samples[0].MeanLatency = 999
	samples2, _ := c.Snapshot()
	assert.Equal(t, 0.5, samples2[0].MeanLatency)
}
