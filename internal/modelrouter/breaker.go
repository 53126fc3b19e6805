package modelrouter

import (
	"sync"
	"time"

	"contractintel/internal/obs"
)

// State is one of the three circuit-breaker states.
type State string

const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half_open"
)

// breaker is a process-wide, single-writer-at-a-time circuit breaker
// counting consecutive failures. No library in the dependency surface
// provides this shape; it follows the same small
// mutex-guarded stateful-component pattern as the orchestrator's
// RedisDedupeStore, generalized to a state machine.
type breaker struct {
	mu sync.Mutex

	state               State
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    bool

	failMax     int
	resetAfter  time.Duration
	halfOpenMax int

	clock obs.Clock
	log   obs.Logger
}

func newBreaker(failMax int, resetAfter time.Duration, halfOpenMax int, clock obs.Clock, log obs.Logger) *breaker {
	if halfOpenMax <= 0 {
		halfOpenMax = 1
	}
	return &breaker{
		state:       Closed,
		failMax:     failMax,
		resetAfter:  resetAfter,
		halfOpenMax: halfOpenMax,
		clock:       clock,
		log:         log,
	}
}

// allow reports whether a call may proceed, transitioning Open->HalfOpen
// once resetAfter has elapsed.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.clock.Now().Sub(b.openedAt) >= b.resetAfter {
			b.transition(HalfOpen)
			b.halfOpenInFlight = true
			return true
		}
		return false
	case HalfOpen:
		if b.halfOpenInFlight {
			return false
		}
		b.halfOpenInFlight = true
		return true
	default:
		return true
	}
}

// recordSuccess clears the failure counter and closes the breaker.
func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
	b.halfOpenInFlight = false
	if b.state != Closed {
		b.transition(Closed)
	}
}

// recordFailure increments the consecutive-failure counter and opens the
// breaker once failMax is reached (or immediately, from HalfOpen).
func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.halfOpenInFlight = false

	if b.state == HalfOpen {
		b.transition(Open)
		return
	}
	b.consecutiveFailures++
	if b.consecutiveFailures >= b.failMax {
		b.transition(Open)
	}
}

func (b *breaker) currentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition must be called with b.mu held.
func (b *breaker) transition(to State) {
	from := b.state
	b.state = to
	if to == Open {
		b.openedAt = b.clock.Now()
	}
	if to == Closed {
		b.consecutiveFailures = 0
	}
	if from != to {
		b.log.Info("circuit breaker state transition", map[string]any{
			"from": string(from), "to": string(to), "consecutive_failures": b.consecutiveFailures,
		})
	}
}
