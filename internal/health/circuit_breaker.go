/* *****************************************************************************
 * Nehonix XyPriss System CLI
 * (see health.go for full license header)
 ***************************************************************************** */

package health

import (
	"sync"
	"sync/atomic"
	"time"
)

// CircuitBreaker lets the gateway stop hammering a service's health check
// after repeated consecutive failures, retrying only after a cooldown.
// It never blocks a start attempt — only repeated probing during waits.
type CircuitBreaker struct {
	enabled     bool
	threshold   uint32
	timeout     time.Duration
	failures    uint32
	lastFailure time.Time
	mu          sync.Mutex
}

// NewCircuitBreaker builds a breaker. If enabled is false, Allow always
// returns true and the other methods are no-ops.
func NewCircuitBreaker(enabled bool, threshold uint32, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{enabled: enabled, threshold: threshold, timeout: timeout}
}

// Allow reports whether a new probe attempt may proceed.
func (cb *CircuitBreaker) Allow() bool {
	if !cb.enabled {
		return true
	}
	if atomic.LoadUint32(&cb.failures) < cb.threshold {
		return true
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return time.Since(cb.lastFailure) > cb.timeout
}

// RecordSuccess resets the failure counter.
func (cb *CircuitBreaker) RecordSuccess() {
	if !cb.enabled {
		return
	}
	atomic.StoreUint32(&cb.failures, 0)
}

// RecordFailure increments the failure counter and, once it crosses the
// threshold, starts the cooldown window.
func (cb *CircuitBreaker) RecordFailure() {
	if !cb.enabled {
		return
	}
	prev := atomic.AddUint32(&cb.failures, 1)
	if prev >= cb.threshold {
		cb.mu.Lock()
		cb.lastFailure = time.Now()
		cb.mu.Unlock()
	}
}
