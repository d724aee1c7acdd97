// Package worker implements a single-request-at-a-time processing unit.
//
// A Worker owns a one-slot inbox. The Manager (internal/manager) reserves a
// free-worker semaphore token before calling Submit, so Submit itself never
// blocks and never rejects.
package worker

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Request is an immutable unit of simulated work.
type Request struct {
	ArrivalTime    float64 // simulation-relative seconds, monotonic
	ProcessingTime float64 // seconds, >= 0
}

// State is the worker's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateProcessing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CompletionRecorder receives a completion point whenever a worker finishes
// a request. internal/collector.Collector implements this.
type CompletionRecorder interface {
	RecordCompletion(t, latency float64)
}

// FreeNotifier is released exactly once per completion. internal/manager.Manager
// implements this as its free-worker semaphore.
type FreeNotifier interface {
	NotifyFree()
}

// sentinel terminates the processing loop. ArrivalTime is unreachable by a
// real request (simulation time never goes negative), which is what the
// loop checks for instead of a second channel.
var sentinel = Request{ArrivalTime: math.Inf(-1)}

// Worker processes one Request at a time.
type Worker struct {
	ID int

	inbox     chan Request
	done      chan struct{}
	free      FreeNotifier
	collector CompletionRecorder
	simStart  time.Time
	log       *zap.SugaredLogger

	mu             sync.Mutex
	busy           bool
	currentArrival float64
	state          State
}

// New creates a Worker. It does not start the processing loop — call Start.
func New(id int, simStart time.Time, free FreeNotifier, collector CompletionRecorder, log *zap.SugaredLogger) *Worker {
	return &Worker{
		ID:        id,
		inbox:     make(chan Request, 1),
		done:      make(chan struct{}),
		free:      free,
		collector: collector,
		simStart:  simStart,
		log:       log,
		state:     StateIdle,
	}
}

// Start launches the processing loop in a new goroutine.
func (w *Worker) Start() {
	go w.loop()
}

// Stop places the sentinel in the inbox and waits (bounded) for the loop to
// exit. A request the worker is still processing finishes first; if that
// takes longer than 2 s the state is forced to stopped. The Manager calls
// Stop on an idle worker from DestroyWorker, and on every worker from
// Shutdown once the dispatcher has exited, so no Submit competes with the
// sentinel.
func (w *Worker) Stop() {
	select {
	case w.inbox <- sentinel:
	case <-w.done:
		// already stopped
		return
	}

	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
		if w.log != nil {
			w.log.Warnw("worker stop timed out, forcing stopped state", "worker_id", w.ID)
		}
		w.setState(StateStopped)
	}
}

// Submit hands a request to the worker. The caller must already hold a
// reserved free-worker slot; Submit never blocks and never rejects.
func (w *Worker) Submit(req Request) {
	req.ProcessingTime = sanitizeProcessing(req.ProcessingTime)
	// Mark busy before handing over, so a dispatcher scan that runs before
	// the loop dequeues the request does not see this worker as free.
	w.setCurrent(true, req.ArrivalTime)
	w.inbox <- req
}

func sanitizeProcessing(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0
	}
	return p
}

// IsFree reports whether the worker is idle.
func (w *Worker) IsFree() bool {
	busy, _, _ := w.Current()
	return !busy
}

// Current returns (busy, arrival, ok). ok is false iff the worker is idle
// (arrival is meaningless in that case).
func (w *Worker) Current() (bool, float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy, w.currentArrival, w.busy
}

// State returns the worker's lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Worker) setCurrent(busy bool, arrival float64) {
	w.mu.Lock()
	w.busy = busy
	w.currentArrival = arrival
	w.mu.Unlock()
}

// loop is the worker's single goroutine: block on inbox, process, repeat.
func (w *Worker) loop() {
	defer close(w.done)
	for {
		req := <-w.inbox
		if req == sentinel {
			w.setState(StateStopped)
			return
		}

		w.setState(StateProcessing)
		w.setCurrent(true, req.ArrivalTime)

		if req.ProcessingTime > 0 {
			time.Sleep(time.Duration(req.ProcessingTime * float64(time.Second)))
		}

		w.setCurrent(false, 0)
		w.setState(StateIdle)

		w.free.NotifyFree()

		now := time.Since(w.simStart).Seconds()
		if w.collector != nil {
			w.collector.RecordCompletion(now, now-req.ArrivalTime)
		}
	}
}
