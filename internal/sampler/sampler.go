// Package sampler implements the periodic latency sampler that sets the
// control-loop cadence: a background loop that measures mean in-flight
// latency and drives the Controller. The interval is re-read on every
// tick rather than fixed at construction, since it can change at runtime.
package sampler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"loadsim/internal/collector"
	"loadsim/internal/worker"
)

// ManagerView is the read-only slice of Manager the Sampler needs. It never
// mutates queues, workers or the setpoint.
type ManagerView interface {
	Workers() []*worker.Worker
	SnapshotPending() []worker.Request
	TakeNewCount() int
}

// SampleContext is what the Controller receives on every tick.
type SampleContext struct {
	Error       float64
	MeanLatency float64
	NActive     int
	NWorkers    int
	Setpoint    float64
}

// Controller is satisfied by internal/controller.Controller.
type Controller interface {
	OnSample(ctx SampleContext)
}

// Recorder is satisfied by internal/collector.Collector.
type Recorder interface {
	RecordSample(p collector.SamplePoint)
}

// Sampler periodically measures mean in-flight latency and drives the Controller.
type Sampler struct {
	manager    ManagerView
	controller Controller
	collector  Recorder
	simStart   time.Time
	log        *zap.SugaredLogger

	mu       sync.Mutex
	setpoint float64
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// New creates a Sampler with the given initial setpoint (seconds) and
// sampling interval.
func New(manager ManagerView, controller Controller, collector Recorder, simStart time.Time, setpoint float64, interval time.Duration, log *zap.SugaredLogger) *Sampler {
	return &Sampler{
		manager:    manager,
		controller: controller,
		collector:  collector,
		simStart:   simStart,
		log:        log,
		setpoint:   setpoint,
		interval:   interval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the tick loop in a new goroutine.
func (s *Sampler) Start() {
	go s.loop()
}

// Stop signals the loop to exit and waits for it to do so.
func (s *Sampler) Stop() {
	close(s.stop)
	<-s.done
}

// SetSetpoint updates the desired latency. Non-positive values are
// rejected (logged, previous value kept).
func (s *Sampler) SetSetpoint(v float64) {
	if v <= 0 {
		if s.log != nil {
			s.log.Warnw("rejected setpoint update", "value_s", v)
		}
		return
	}
	s.mu.Lock()
	s.setpoint = v
	s.mu.Unlock()
}

// Setpoint returns the current desired latency.
func (s *Sampler) Setpoint() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setpoint
}

// SetInterval updates the sampling cadence. Non-positive values are
// rejected (logged, previous value kept).
func (s *Sampler) SetInterval(d time.Duration) {
	if d <= 0 {
		if s.log != nil {
			s.log.Warnw("rejected interval update", "value", d)
		}
		return
	}
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()
}

func (s *Sampler) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Sampler) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-time.After(s.currentInterval()):
		}
		s.tick()
	}
}

func (s *Sampler) tick() {
	tRef := time.Since(s.simStart).Seconds()

	var sum float64
	var count int

	for _, w := range s.manager.Workers() {
		busy, arrival, _ := w.Current()
		if busy {
			sum += tRef - arrival
			count++
		}
	}

	for _, req := range s.manager.SnapshotPending() {
		sum += tRef - req.ArrivalTime
		count++
	}

	var meanLatency float64
	nActive := 0
	if count > 0 {
		meanLatency = sum / float64(count)
		nActive = count
	}

	setpoint := s.Setpoint()
	errorS := setpoint - meanLatency
	arrivals := s.manager.TakeNewCount()
	nWorkers := len(s.manager.Workers())

	if s.collector != nil {
		s.collector.RecordSample(collector.SamplePoint{
			T:                 tRef,
			MeanLatency:       meanLatency,
			NWorkers:          nWorkers,
			NActive:           nActive,
			Error:             errorS,
			ArrivalsSinceLast: arrivals,
		})
	}

	if s.log != nil {
		s.log.Debugw("sample tick", "t", tRef, "mean_latency_s", meanLatency, "n_active", nActive, "n_workers", nWorkers, "error_s", errorS)
	}

	if s.controller != nil {
		s.controller.OnSample(SampleContext{
			Error:       errorS,
			MeanLatency: meanLatency,
			NActive:     nActive,
			NWorkers:    nWorkers,
			Setpoint:    setpoint,
		})
	}
}
