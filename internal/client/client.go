// Package client implements the synthetic workload generator: a steady
// baseline arrival process plus an on-demand bounded-duration burst mode.
package client

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RequestReceiver is satisfied by internal/manager.Manager.
type RequestReceiver interface {
	ReceiveRequest(arrival, processing float64)
}

// BaselineVariant selects the inter-arrival distribution of the baseline task.
type BaselineVariant int

const (
	// BaselineFixed issues requests at a constant 1/f_base interval.
	BaselineFixed BaselineVariant = iota
	// BaselineJittered draws each inter-arrival uniformly from
	// [0.5/f_base, 1.5/f_base], the legacy baseline distribution.
	BaselineJittered
)

// Config holds the Client's tunable parameters.
type Config struct {
	FBaseHz         float64
	BaseProcessingS float64
	Variant         BaselineVariant
}

// Client generates baseline load and supports one concurrent burst.
type Client struct {
	receiver RequestReceiver
	cfg      Config
	log      *zap.SugaredLogger

	simStart time.Time

	stop    chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex

	burstMu     sync.Mutex
	burstActive bool

	rng *rand.Rand
}

// New creates a Client. It does not start generating load — call Start.
func New(receiver RequestReceiver, cfg Config, log *zap.SugaredLogger) *Client {
	return &Client{
		receiver: receiver,
		cfg:      cfg,
		log:      log,
		stop:     make(chan struct{}),
		rng:      rand.New(rand.NewSource(1)),
	}
}

// Start boots the baseline generator task, anchored at simStart.
func (c *Client) Start(simStart time.Time) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.simStart = simStart
	c.mu.Unlock()

	c.wg.Add(1)
	go c.runBaseline()
}

// Stop signals termination and waits (bounded) for all tasks to finish.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	close(c.stop)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		if c.log != nil {
			c.log.Warnw("client stop timed out")
		}
	}
}

func (c *Client) emit(now time.Time) {
	arrival := now.Sub(c.simStart).Seconds()
	c.receiver.ReceiveRequest(arrival, c.cfg.BaseProcessingS)
}

func (c *Client) runBaseline() {
	defer c.wg.Done()

	if c.cfg.FBaseHz <= 0 {
		if c.log != nil {
			c.log.Warnw("baseline disabled: non-positive f_base_hz", "f_base_hz", c.cfg.FBaseHz)
		}
		return
	}

	switch c.cfg.Variant {
	case BaselineJittered:
		c.runJittered()
	default:
		c.runFixed()
	}
}

func (c *Client) runFixed() {
	limiter := rate.NewLimiter(rate.Limit(c.cfg.FBaseHz), 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c.stop
		cancel()
	}()

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		select {
		case <-c.stop:
			return
		default:
		}
		c.emit(time.Now())
	}
}

func (c *Client) runJittered() {
	meanS := 1 / c.cfg.FBaseHz
	minS := meanS * 0.5
	maxS := meanS * 1.5

	for {
		wait := minS + c.rng.Float64()*(maxS-minS)
		select {
		case <-c.stop:
			return
		case <-time.After(time.Duration(wait * float64(time.Second))):
		}
		c.emit(time.Now())
	}
}

// TriggerBurst starts a bounded-duration elevated-rate task. Overlapping
// calls are ignored with a warning.
func (c *Client) TriggerBurst(duration time.Duration, freqHz float64) {
	c.burstMu.Lock()
	if c.burstActive {
		c.burstMu.Unlock()
		if c.log != nil {
			c.log.Warnw("burst already active, ignoring overlapping trigger")
		}
		return
	}
	c.burstActive = true
	c.burstMu.Unlock()

	if c.log != nil {
		c.log.Warnw("burst started", "duration", duration, "freq_hz", freqHz)
	}

	c.wg.Add(1)
	go c.runBurst(duration, freqHz)
}

func (c *Client) runBurst(duration time.Duration, freqHz float64) {
	defer c.wg.Done()
	defer func() {
		c.burstMu.Lock()
		c.burstActive = false
		c.burstMu.Unlock()
		if c.log != nil {
			c.log.Infow("burst finished")
		}
	}()

	if freqHz <= 0 {
		freqHz = 100 // fallback rate for a non-positive request
	}

	limiter := rate.NewLimiter(rate.Limit(freqHz), 1)
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()
	go func() {
		<-c.stop
		cancel()
	}()

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		select {
		case <-c.stop:
			return
		default:
		}
		c.emit(time.Now())
	}
}

// BurstActive reports whether a burst task is currently running.
func (c *Client) BurstActive() bool {
	c.burstMu.Lock()
	defer c.burstMu.Unlock()
	return c.burstActive
}
