package manager

// semaphore is a counting semaphore backed by a buffered channel, used for
// both the arrival-notifier and the free-worker counter so neither side
// has to spin-poll. Capacity is fixed generously large at construction
// time since the number of outstanding tokens is bounded by the number of
// live workers/pending requests, never by channel capacity.
type semaphore struct {
	tokens chan struct{}
}

const semaphoreCapacity = 1 << 20

func newSemaphore() *semaphore {
	return &semaphore{tokens: make(chan struct{}, semaphoreCapacity)}
}

// Release adds one token. It panics if the semaphore is already at
// capacity, since that can only follow an accounting bug.
func (s *semaphore) Release() {
	select {
	case s.tokens <- struct{}{}:
	default:
		panic("semaphore overflow")
	}
}

// Acquire blocks until a token is available.
func (s *semaphore) Acquire() {
	<-s.tokens
}

// TryAcquire removes one token without blocking. Returns false if none
// were available.
func (s *semaphore) TryAcquire() bool {
	select {
	case <-s.tokens:
		return true
	default:
		return false
	}
}

// Len returns the (momentary, racy-by-nature) count of available tokens.
func (s *semaphore) Len() int {
	return len(s.tokens)
}
