package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReceiver struct {
	mu       sync.Mutex
	arrivals []float64
}

func (f *fakeReceiver) ReceiveRequest(arrival, processing float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.arrivals = append(f.arrivals, arrival)
}

func (f *fakeReceiver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.arrivals)
}

func TestFixedBaselineEmitsAtApproximatelyConfiguredRate(t *testing.T) {
	rec := &fakeReceiver{}
	c := New(rec, Config{FBaseHz: 50, BaseProcessingS: 0.01, Variant: BaselineFixed}, nil)
	c.Start(time.Now())
	defer c.Stop()

	require.Eventually(t, func() bool { return rec.count() >= 5 }, time.Second, time.Millisecond)
}

func TestJitteredBaselineEmitsWithinExpectedRange(t *testing.T) {
	rec := &fakeReceiver{}
	c := New(rec, Config{FBaseHz: 50, BaseProcessingS: 0.01, Variant: BaselineJittered}, nil)
	c.Start(time.Now())
	defer c.Stop()

	require.Eventually(t, func() bool { return rec.count() >= 3 }, time.Second, time.Millisecond)
}

func TestBaselineDisabledWhenFBaseHzNonPositive(t *testing.T) {
	rec := &fakeReceiver{}
	c := New(rec, Config{FBaseHz: 0}, nil)
	c.Start(time.Now())
	defer c.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestStopIsIdempotentAndStartIsSingleFlight(t *testing.T) {
	rec := &fakeReceiver{}
	c := New(rec, Config{FBaseHz: 50}, nil)
	c.Start(time.Now())
	c.Start(time.Now()) // second Start must be a no-op, not a second goroutine
	c.Stop()
	c.Stop() // must not panic on double-close
}

func TestBurstOverlapIsRejectedAndSingleFlight(t *testing.T) {
	rec := &fakeReceiver{}
	c := New(rec, Config{}, nil)
	c.Start(time.Now())
	defer c.Stop()

	c.TriggerBurst(200*time.Millisecond, 200)
	require.Eventually(t, func() bool { return c.BurstActive() }, time.Second, time.Millisecond)

	c.TriggerBurst(200*time.Millisecond, 200) // ignored: a burst is already running

	require.Eventually(t, func() bool { return !c.BurstActive() }, time.Second, time.Millisecond)
}

func TestBurstStopsIssuingRequestsAfterDuration(t *testing.T) {
	rec := &fakeReceiver{}
	c := New(rec, Config{}, nil)
	c.Start(time.Now())
	defer c.Stop()

	c.TriggerBurst(100*time.Millisecond, 200)
	require.Eventually(t, func() bool { return !c.BurstActive() }, time.Second, time.Millisecond)

	n := rec.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, rec.count(), "no further arrivals should land once the burst window closes")
}

func TestBurstNonPositiveFreqFallsBackToDefaultRate(t *testing.T) {
	rec := &fakeReceiver{}
	c := New(rec, Config{}, nil)
	c.Start(time.Now())
	defer c.Stop()

	c.TriggerBurst(100*time.Millisecond, 0)
	require.Eventually(t, func() bool { return rec.count() > 0 }, time.Second, time.Millisecond)
}
