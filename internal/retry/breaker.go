package retry

import "sync"

// Breaker trips after a run of consecutive failures. It does not block
// calls; callers use Open to decide when to re-probe the backend.
type Breaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	open      bool
}

// NewBreaker creates a breaker that opens after threshold failures.
func NewBreaker(threshold int) *Breaker {
	if threshold <= 0 {
		threshold = 3 // default
	}
	return &Breaker{threshold: threshold}
}

// RecordFailure counts one failure and reports whether this one tripped
// the breaker.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if !b.open && b.failures >= b.threshold {
		b.open = true
		return true
	}
	return false
}

// RecordSuccess closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

// Open reports whether the failure threshold has been reached.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
