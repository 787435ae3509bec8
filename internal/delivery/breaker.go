package delivery

import (
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker trips after failThreshold consecutive gateway failures and lets a
// single probe through once coolDown has elapsed.
type Breaker struct {
	mu            sync.Mutex
	state         breakerState
	failures      int
	failThreshold int
	coolDown      time.Duration
	retryAt       time.Time
	probing       bool
	now           func() time.Time
}

func NewBreaker(threshold int, coolDown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	return &Breaker{failThreshold: threshold, coolDown: coolDown, now: time.Now}
}

// Ready reports whether Allow would succeed right now, without claiming the probe.
func (b *Breaker) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case stateOpen:
		return b.now().After(b.retryAt) && !b.probing
	case stateHalfOpen:
		return !b.probing
	default:
		return true
	}
}

// Allow claims a send slot; in half-open state only one caller gets it.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if !b.now().After(b.retryAt) || b.probing {
			return false
		}
		b.state = stateHalfOpen
		b.probing = true
		return true
	case stateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = stateClosed
	b.probing = false
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.trip()
		return
	}
	b.failures++
	if b.failures >= b.failThreshold {
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = stateOpen
	b.retryAt = b.now().Add(b.coolDown)
	b.probing = false
}

func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}
