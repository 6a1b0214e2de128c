package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calling a failing dependency for a cool-down period.
//
//	Closed   -> Open      after failThreshold consecutive failures
//	Open     -> HalfOpen  once openTimeout has elapsed; one probe is let through
//	HalfOpen -> Closed    on probe success, back to Open on failure
//
// Cancelled or expired contexts are the caller's doing and do not count as
// failures.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         State
	failCount     int
	failThreshold int
	openTimeout   time.Duration
	openedAt      time.Time
	probing       bool
	onChange      func(from, to State)

	now func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given thresholds.
func NewCircuitBreaker(failThreshold int, openTimeout time.Duration) *CircuitBreaker {
	if failThreshold < 1 {
		failThreshold = 1
	}
	return &CircuitBreaker{
		state:         StateClosed,
		failThreshold: failThreshold,
		openTimeout:   openTimeout,
		now:           time.Now,
	}
}

// OnStateChange registers a callback invoked, outside the lock, on every
// transition.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	cb.onChange = fn
	cb.mu.Unlock()
}

// Do runs fn unless the circuit is open.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(ctx, err)
	return err
}

// Allow reports whether a call would currently be let through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		return cb.now().Sub(cb.openedAt) >= cb.openTimeout
	case StateHalfOpen:
		return !cb.probing
	}
	return true
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	var from, to State
	changed := false
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.openTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		from, to, changed = cb.state, StateHalfOpen, true
		cb.state = StateHalfOpen
		cb.probing = true
	case StateHalfOpen:
		if cb.probing {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	notify := cb.onChange
	cb.mu.Unlock()

	if changed && notify != nil {
		notify(from, to)
	}
	return nil
}

func (cb *CircuitBreaker) record(ctx context.Context, err error) {
	cb.mu.Lock()
	from := cb.state
	cb.probing = false

	switch {
	case err == nil:
		cb.failCount = 0
		cb.state = StateClosed
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		if cb.state == StateHalfOpen {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	default:
		cb.failCount++
		if cb.state == StateHalfOpen || cb.failCount >= cb.failThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	}
	to := cb.state
	notify := cb.onChange
	cb.mu.Unlock()

	if from != to && notify != nil {
		notify(from, to)
	}
}

// CurrentState returns the current state of the circuit breaker.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
