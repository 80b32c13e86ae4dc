package solana

import (
	"sync"
	"time"
)

// BreakerState is the per-endpoint circuit state.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // endpoint usable
	BreakerOpen                         // recent failures, skip for now
	BreakerHalfOpen                     // cooled off, allow a probe call
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// endpointBreaker trips an endpoint out of the failover rotation after a run
// of consecutive failures, and lets it back in after a cooldown. An OPEN
// breaker only skips the endpoint for the current call; it never ejects the
// endpoint from the ranked list.
type endpointBreaker struct {
	mu                  sync.Mutex
	state               BreakerState
	consecutiveFailures uint32
	tripThreshold       uint32
	cooldown            time.Duration
	openedAt            time.Time
}

func newEndpointBreaker(tripThreshold uint32, cooldown time.Duration) *endpointBreaker {
	if tripThreshold == 0 {
		tripThreshold = 5
	}
	if cooldown == 0 {
		cooldown = 30 * time.Second
	}
	return &endpointBreaker{
		state:         BreakerClosed,
		tripThreshold: tripThreshold,
		cooldown:      cooldown,
	}
}

// Allow reports whether the endpoint should be tried on this call.
func (b *endpointBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.cooldown {
		b.state = BreakerHalfOpen
	}
	return b.state != BreakerOpen
}

// OnSuccess closes the breaker and clears the failure run.
func (b *endpointBreaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.consecutiveFailures = 0
}

// OnFailure records a failure; a half-open probe failure re-opens immediately.
func (b *endpointBreaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	if b.state == BreakerHalfOpen || b.consecutiveFailures >= b.tripThreshold {
		b.state = BreakerOpen
		b.openedAt = time.Now()
	}
}

// State returns the current state, applying the cooldown transition.
func (b *endpointBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.cooldown {
		b.state = BreakerHalfOpen
	}
	return b.state
}
