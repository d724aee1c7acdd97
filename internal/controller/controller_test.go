package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"loadsim/internal/sampler"
)

func sampleCtx(errorS float64) sampler.SampleContext {
	return sampler.SampleContext{Error: errorS}
}

type fakeActuator struct {
	signals []float64
}

func (f *fakeActuator) Scale(signal float64) {
	f.signals = append(f.signals, signal)
}

func TestThresholdTermDeadbandZone(t *testing.T) {
	act := &fakeActuator{}
	c := New(0, 0, 0.1, act, nil)

	got := c.Compute(0.05) // |error| < deadband
	assert.Equal(t, 0.0, got)
}

func TestThresholdTermMidBandShrinksWhenErrorPositive(t *testing.T) {
	// error > 0 means system is faster than needed -> shrink -> negative term.
	act := &fakeActuator{}
	c := New(0, 0, 0.1, act, nil)
	got := c.Compute(0.3) // deadband <= |error| < deadband+0.6
	assert.Equal(t, -1.0, got)
}

func TestThresholdTermMidBandGrowsWhenErrorNegative(t *testing.T) {
	act := &fakeActuator{}
	c := New(0, 0, 0.1, act, nil)
	got := c.Compute(-0.3)
	assert.Equal(t, 1.0, got)
}

func TestThresholdTermFarBandShrinksTwiceWhenErrorPositive(t *testing.T) {
	act := &fakeActuator{}
	c := New(0, 0, 0.1, act, nil)
	got := c.Compute(1.0) // |error| >= deadband+0.6
	assert.Equal(t, -2.0, got)
}

func TestThresholdTermFarBandGrowsTwiceWhenErrorNegative(t *testing.T) {
	act := &fakeActuator{}
	c := New(0, 0, 0.1, act, nil)
	got := c.Compute(-1.0)
	assert.Equal(t, 2.0, got)
}

// Invariant 9: deadband large enough to cover the observed error range
// yields a zero threshold term and a pure derivative; with zero Kd the
// scale signal never changes.
func TestLargeDeadbandWithZeroKdNeverChangesScale(t *testing.T) {
	act := &fakeActuator{}
	c := New(0, 0, 1000, act, nil)

	for _, e := range []float64{0.1, -0.2, 0.5, -0.9, 2.0} {
		got := c.Compute(e)
		assert.Equal(t, 0.0, got)
	}
}

func TestDerivativeTermRespondsToErrorChange(t *testing.T) {
	act := &fakeActuator{}
	c := New(0, 2.0, 1000, act, nil) // deadband huge -> pure derivative
	c.Compute(0.0)
	got := c.Compute(0.5) // error increased by 0.5 -> derivative = 2*0.5 = 1.0
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestOnSampleForwardsSignalToActuator(t *testing.T) {
	act := &fakeActuator{}
	c := New(0, 0, 0, act, nil)
	c.OnSample(sampleCtx(0.9))
	assert := assert.New(t)
	assert.Len(act.signals, 1)
	assert.Equal(-2.0, act.signals[0])
}
