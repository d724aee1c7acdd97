// Package controller implements the PD feedback controller: a discretised
// threshold term plus a derivative term, instead of a continuous
// proportional term, for hysteresis against oscillation near the setpoint.
package controller

import (
	"sync"

	"go.uber.org/zap"

	"loadsim/internal/sampler"
)

// ScaleActuator is satisfied by internal/manager.Manager.
type ScaleActuator interface {
	Scale(signal float64)
}

// thresholdBand is the fixed intermediate threshold band width.
const thresholdBand = 0.6

// Controller holds PD gains and the previous error for the derivative term.
type Controller struct {
	actuator ScaleActuator
	log      *zap.SugaredLogger

	// Kp is retained for future tuning; the thresholded term does not use
	// it directly.
	Kp float64
	Kd float64

	mu       sync.Mutex
	deadband float64
	prevErr  float64
}

// New creates a Controller with the given gains and deadband (seconds).
func New(kp, kd, deadband float64, actuator ScaleActuator, log *zap.SugaredLogger) *Controller {
	return &Controller{
		actuator: actuator,
		log:      log,
		Kp:       kp,
		Kd:       kd,
		deadband: deadband,
	}
}

// SetDeadband updates the hysteresis band (seconds).
func (c *Controller) SetDeadband(d float64) {
	c.mu.Lock()
	c.deadband = d
	c.mu.Unlock()
}

// Deadband returns the current hysteresis band.
func (c *Controller) Deadband() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadband
}

// OnSample implements sampler.Controller.
func (c *Controller) OnSample(ctx sampler.SampleContext) {
	signal := c.compute(ctx.Error)
	if c.log != nil {
		c.log.Infow("control signal", "error_s", ctx.Error, "signal", signal)
	}
	if c.actuator != nil {
		c.actuator.Scale(signal)
	}
}

// compute returns the scale signal for the given error and updates prevErr.
// Exposed at package level (not just via OnSample) so tests can exercise
// the PD math directly without a fake Manager.
func (c *Controller) compute(errorS float64) float64 {
	c.mu.Lock()
	deadband := c.deadband
	prev := c.prevErr
	c.prevErr = errorS
	c.mu.Unlock()

	threshold := thresholdTerm(errorS, deadband)
	derivative := c.Kd * (errorS - prev)
	return threshold + derivative
}

// Compute is the exported form of compute, for callers that want the raw
// control signal without an attached actuator (e.g. tests, or a
// what-if endpoint).
func (c *Controller) Compute(errorS float64) float64 {
	return c.compute(errorS)
}

// thresholdTerm implements the discretised threshold table.
func thresholdTerm(errorS, deadband float64) float64 {
	abs := errorS
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs < deadband:
		return 0
	case abs < deadband+thresholdBand:
		if errorS > 0 {
			return -1
		}
		return 1
	default:
		if errorS > 0 {
			return -2
		}
		return 2
	}
}
