// Package manager owns the worker set, the pending-request queue and the
// dispatcher goroutine that pairs them up.
package manager

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"loadsim/internal/worker"
)

// CompletionRecorder is satisfied by internal/collector.Collector.
type CompletionRecorder interface {
	RecordCompletion(t, latency float64)
}

type queueItem struct {
	req      worker.Request
	sentinel bool
}

// Manager owns workers, the pending-request queue and the dispatcher.
type Manager struct {
	log       *zap.SugaredLogger
	collector CompletionRecorder
	simStart  time.Time

	workersMu sync.Mutex
	workers   []*worker.Worker
	nextID    int

	boundsMu   sync.Mutex
	minWorkers int
	maxWorkers int

	queueMu sync.Mutex
	queue   []queueItem

	newCountMu sync.Mutex
	newCount   int

	pendingWG sync.WaitGroup

	arrivalSem *semaphore
	freeSem    *semaphore

	dispatcherDone chan struct{}
}

// New creates a Manager with no workers yet. Call CreateWorker (directly or
// via an initial Scale) to populate it to minWorkers.
func New(minWorkers, maxWorkers int, simStart time.Time, collector CompletionRecorder, log *zap.SugaredLogger) *Manager {
	if minWorkers < 1 {
		minWorkers = 1
	}
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}
	m := &Manager{
		log:            log,
		collector:      collector,
		simStart:       simStart,
		minWorkers:     minWorkers,
		maxWorkers:     maxWorkers,
		arrivalSem:     newSemaphore(),
		freeSem:        newSemaphore(),
		dispatcherDone: make(chan struct{}),
	}
	go m.dispatchLoop()
	return m
}

// NotifyFree implements worker.FreeNotifier; called once per completion.
func (m *Manager) NotifyFree() {
	m.freeSem.Release()
}

// CreateWorker allocates the next ID, starts a worker and releases one
// free-worker token. Atomic with respect to other Manager mutations.
func (m *Manager) CreateWorker() *worker.Worker {
	m.workersMu.Lock()
	id := m.nextID
	m.nextID++
	w := worker.New(id, m.simStart, m, m.collector, m.log)
	w.Start()
	m.workers = append(m.workers, w)
	count := len(m.workers)
	m.workersMu.Unlock()

	m.freeSem.Release()

	if m.log != nil {
		m.log.Infow("worker created", "worker_id", id, "worker_count", count)
	}
	return w
}

// DestroyWorker removes at most one idle worker. No-op (logged) if at or
// below min_workers, or if no idle worker is currently reserved by the
// free-worker semaphore.
func (m *Manager) DestroyWorker() {
	m.boundsMu.Lock()
	min := m.minWorkers
	m.boundsMu.Unlock()

	m.workersMu.Lock()
	count := len(m.workers)
	m.workersMu.Unlock()

	if count <= min {
		if m.log != nil {
			m.log.Warnw("scale-down below minimum refused", "worker_count", count, "min_workers", min)
		}
		return
	}

	if !m.freeSem.TryAcquire() {
		if m.log != nil {
			m.log.Debugw("no idle worker to destroy")
		}
		return
	}

	m.workersMu.Lock()
	idx := -1
	for i, w := range m.workers {
		if w.IsFree() {
			idx = i
			break
		}
	}
	var target *worker.Worker
	if idx >= 0 {
		target = m.workers[idx]
		m.workers = append(m.workers[:idx], m.workers[idx+1:]...)
	}
	remaining := len(m.workers)
	m.workersMu.Unlock()

	if target == nil {
		// Transient inconsistency: the semaphore said a worker was free but
		// the scan found none (e.g. it was claimed between Acquire and the
		// scan in a way the dispatcher's own Acquire should have prevented).
		// Return the token rather than lose accounting.
		if m.log != nil {
			m.log.Errorw("destroy_worker: semaphore token without a matching idle worker, returning token")
		}
		m.freeSem.Release()
		return
	}

	target.Stop()
	if m.log != nil {
		m.log.Infow("worker destroyed", "worker_id", target.ID, "worker_count", remaining)
	}
}

// ReceiveRequest is non-blocking: it appends to the queue, bumps the
// arrivals-since-last counter and releases the arrival-notifier once.
func (m *Manager) ReceiveRequest(arrival, processing float64) {
	m.queueMu.Lock()
	m.queue = append(m.queue, queueItem{req: worker.Request{ArrivalTime: arrival, ProcessingTime: processing}})
	m.queueMu.Unlock()

	m.newCountMu.Lock()
	m.newCount++
	m.newCountMu.Unlock()

	m.pendingWG.Add(1)
	m.arrivalSem.Release()
}

// SnapshotPending returns a copy of pending (arrival, processing) pairs.
func (m *Manager) SnapshotPending() []worker.Request {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	out := make([]worker.Request, 0, len(m.queue))
	for _, it := range m.queue {
		if !it.sentinel {
			out = append(out, it.req)
		}
	}
	return out
}

// TakeNewCount returns and zeroes the arrivals-since-last counter.
func (m *Manager) TakeNewCount() int {
	m.newCountMu.Lock()
	defer m.newCountMu.Unlock()
	n := m.newCount
	m.newCount = 0
	return n
}

// ClearPending drains the queue atomically, releasing the dispatcher's wait
// for each removed request (pendingWG.Done, matching Python's task_done) and
// decrementing the arrival-notifier for each one so the dispatcher does not
// later pop a now-nonexistent entry.
func (m *Manager) ClearPending() {
	m.queueMu.Lock()
	removed := 0
	for _, it := range m.queue {
		if !it.sentinel {
			removed++
		}
	}
	m.queue = nil
	m.queueMu.Unlock()

	for i := 0; i < removed; i++ {
		m.arrivalSem.TryAcquire()
		m.pendingWG.Done()
	}

	if m.log != nil && removed > 0 {
		m.log.Warnw("pending queue cleared", "requests_dropped", removed)
	}
}

// Workers returns a snapshot copy of the worker list, in insertion order.
func (m *Manager) Workers() []*worker.Worker {
	m.workersMu.Lock()
	defer m.workersMu.Unlock()
	out := make([]*worker.Worker, len(m.workers))
	copy(out, m.workers)
	return out
}

// WorkerCount returns the current number of workers.
func (m *Manager) WorkerCount() int {
	m.workersMu.Lock()
	defer m.workersMu.Unlock()
	return len(m.workers)
}

// MinWorkers returns the configured floor.
func (m *Manager) MinWorkers() int {
	m.boundsMu.Lock()
	defer m.boundsMu.Unlock()
	return m.minWorkers
}

// MaxWorkers returns the configured ceiling.
func (m *Manager) MaxWorkers() int {
	m.boundsMu.Lock()
	defer m.boundsMu.Unlock()
	return m.maxWorkers
}

// SetMaxWorkers updates the scale ceiling. Invalid values (below min or
// below the current worker count) are rejected: logged and left unchanged.
func (m *Manager) SetMaxWorkers(n int) {
	m.boundsMu.Lock()
	min := m.minWorkers
	m.boundsMu.Unlock()

	count := m.WorkerCount()
	if n < min || n < count {
		if m.log != nil {
			m.log.Warnw("rejected max_workers update", "requested", n, "min_workers", min, "worker_count", count)
		}
		return
	}

	m.boundsMu.Lock()
	m.maxWorkers = n
	m.boundsMu.Unlock()
}

// Scale is the actuator: it commands the worker count toward
// clamp(ceil(actual+signal), min, max) by issuing the necessary
// CreateWorker/DestroyWorker calls.
func (m *Manager) Scale(signal float64) {
	actual := m.WorkerCount()
	min := m.MinWorkers()
	max := m.MaxWorkers()

	desired := int(math.Ceil(float64(actual) + signal))
	if desired < min {
		desired = min
	}
	if desired > max {
		desired = max
	}

	if desired == actual {
		return
	}

	if desired > actual {
		for i := 0; i < desired-actual; i++ {
			m.CreateWorker()
		}
		return
	}

	for i := 0; i < actual-desired; i++ {
		m.DestroyWorker()
	}
}

// dispatchLoop is the single dispatcher goroutine.
func (m *Manager) dispatchLoop() {
	defer close(m.dispatcherDone)
	for {
		m.arrivalSem.Acquire()

		m.queueMu.Lock()
		if len(m.queue) == 0 {
			// ClearPending emptied the queue after this token was taken and
			// has already accounted for the removed request.
			m.queueMu.Unlock()
			continue
		}
		item := m.queue[0]
		m.queue = m.queue[1:]
		m.queueMu.Unlock()

		if item.sentinel {
			return
		}

		m.freeSem.Acquire()

		m.workersMu.Lock()
		var target *worker.Worker
		for _, w := range m.workers {
			if w.IsFree() {
				target = w
				break
			}
		}
		m.workersMu.Unlock()

		if target != nil {
			target.Submit(item.req)
		} else {
			// Invariant breach: the free-worker semaphore said a worker was
			// idle but none was found. Put the token back so accounting
			// stays correct and surface the bug loudly.
			if m.log != nil {
				m.log.Errorw("dispatch: free-worker token without a matching idle worker")
			}
			m.freeSem.Release()
		}

		m.pendingWG.Done()
	}
}

// Shutdown drains gracefully: wait for the pending queue to empty, post a
// sentinel, join the dispatcher, then stop every worker.
func (m *Manager) Shutdown() {
	m.pendingWG.Wait()

	m.queueMu.Lock()
	m.queue = append(m.queue, queueItem{sentinel: true})
	m.queueMu.Unlock()
	m.arrivalSem.Release()

	<-m.dispatcherDone

	for _, w := range m.Workers() {
		w.Stop()
	}

	if m.log != nil {
		m.log.Infow("manager shut down")
	}
}
