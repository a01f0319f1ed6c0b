package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrCircuitOpen = errors.New("circuit open")

// State of a circuit breaker
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// BreakerConfig configures a CircuitBreaker
type BreakerConfig struct {
	// WindowSize is the number of most recent calls considered when closed
	WindowSize int
	// MinimumCalls must be recorded before the failure rate is evaluated
	MinimumCalls int
	// FailureRateThreshold is the failure percentage (0-100] that opens the circuit
	FailureRateThreshold float64
	// OpenDuration is how long the circuit rejects calls before allowing trials
	OpenDuration time.Duration
	// HalfOpenMaxCalls trial calls must all succeed to close the circuit again
	HalfOpenMaxCalls int
}

// DefaultBreakerConfig mirrors the publisher settings used in production
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		WindowSize:           10,
		MinimumCalls:         5,
		FailureRateThreshold: 50,
		OpenDuration:         30 * time.Second,
		HalfOpenMaxCalls:     3,
	}
}

// BreakerOption customizes a CircuitBreaker
type BreakerOption func(*CircuitBreaker)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) {
		if now != nil {
			cb.now = now
		}
	}
}

// WithStateChangeHook is called with the lock released after every state change
func WithStateChangeHook(hook func(name string, from, to State)) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = hook
	}
}

// CircuitBreaker guards an unreliable call with a count-based sliding window
type CircuitBreaker struct {
	mu sync.Mutex

	name          string
	config        BreakerConfig
	now           func() time.Time
	onStateChange func(name string, from, to State)

	state    State
	window   []bool
	next     int
	recorded int
	failures int
	openedAt time.Time

	halfOpenInFlight  int
	halfOpenSuccesses int

	trips    int64
	rejected int64
}

func NewCircuitBreaker(name string, config BreakerConfig, opts ...BreakerOption) *CircuitBreaker {
	if config.WindowSize <= 0 {
		config.WindowSize = 1
	}
	if config.MinimumCalls <= 0 || config.MinimumCalls > config.WindowSize {
		config.MinimumCalls = config.WindowSize
	}
	if config.FailureRateThreshold <= 0 || config.FailureRateThreshold > 100 {
		config.FailureRateThreshold = 100
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}

	cb := &CircuitBreaker{
		name:   name,
		config: config,
		now:    time.Now,
		state:  StateClosed,
		window: make([]bool, config.WindowSize),
	}

	for _, opt := range opts {
		opt(cb)
	}

	return cb
}

// Execute runs fn unless the circuit is open, in which case ErrCircuitOpen is returned
// without calling fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.allow(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.record(err == nil)
	return err
}

// State returns the current state, moving open to half-open when the cooldown elapsed
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	from, to := cb.advance()
	state := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
	return state
}

// Trips returns how many times the circuit has opened
func (cb *CircuitBreaker) Trips() int64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.trips
}

// Rejected returns how many calls were short-circuited
func (cb *CircuitBreaker) Rejected() int64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.rejected
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	from, to := cb.advance()

	var err error
	switch cb.state {
	case StateOpen:
		cb.rejected++
		err = ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenInFlight+cb.halfOpenSuccesses >= cb.config.HalfOpenMaxCalls {
			cb.rejected++
			err = ErrCircuitOpen
		} else {
			cb.halfOpenInFlight++
		}
	}
	cb.mu.Unlock()

	cb.notify(from, to)
	return err
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mu.Lock()
	from := cb.state

	switch cb.state {
	case StateHalfOpen:
		cb.halfOpenInFlight--
		if !success {
			cb.trip()
		} else {
			cb.halfOpenSuccesses++
			if cb.halfOpenSuccesses >= cb.config.HalfOpenMaxCalls {
				cb.reset()
			}
		}
	case StateClosed:
		cb.observe(success)
		if cb.recorded >= cb.config.MinimumCalls && cb.failureRate() >= cb.config.FailureRateThreshold {
			cb.trip()
		}
	}

	to := cb.state
	cb.mu.Unlock()

	if from != to {
		cb.notify(from, to)
	}
}

// advance must be called with the lock held
func (cb *CircuitBreaker) advance() (State, State) {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.OpenDuration {
		cb.state = StateHalfOpen
		cb.halfOpenInFlight = 0
		cb.halfOpenSuccesses = 0
		return StateOpen, StateHalfOpen
	}
	return cb.state, cb.state
}

func (cb *CircuitBreaker) observe(success bool) {
	if cb.recorded == len(cb.window) {
		if !cb.window[cb.next] {
			cb.failures--
		}
	} else {
		cb.recorded++
	}

	cb.window[cb.next] = success
	if !success {
		cb.failures++
	}
	cb.next = (cb.next + 1) % len(cb.window)
}

func (cb *CircuitBreaker) failureRate() float64 {
	if cb.recorded == 0 {
		return 0
	}
	return float64(cb.failures) * 100 / float64(cb.recorded)
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.trips++
	cb.clearWindow()
}

func (cb *CircuitBreaker) reset() {
	cb.state = StateClosed
	cb.clearWindow()
}

func (cb *CircuitBreaker) clearWindow() {
	for i := range cb.window {
		cb.window[i] = false
	}
	cb.next = 0
	cb.recorded = 0
	cb.failures = 0
	cb.halfOpenInFlight = 0
	cb.halfOpenSuccesses = 0
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from != to && cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}
