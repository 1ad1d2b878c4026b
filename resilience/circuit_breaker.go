package resilience

import (
	"sync"
	"time"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive failures before tripping
	ResetTimeout     time.Duration // time in Open before probing Half-Open
	HalfOpenMaxCalls int           // calls allowed through while Half-Open
	Metrics          MetricsCollector
}

// DefaultCircuitBreakerConfig returns reasonable defaults for guarding
// one endpoint.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
		Metrics:          NoopMetrics,
	}
}

// CircuitBreaker is a classic three-state breaker: Closed lets
// everything through, Open rejects everything until ResetTimeout
// elapses, Half-Open allows a trickle of probe calls to decide whether
// to close again. It wraps the handler Registry's provider calls when
// a caller attaches one; a FailureThreshold of 0 or less disables it
// ("never trip"), while DefaultCircuitBreakerConfig sets a threshold
// of 5.
type CircuitBreaker struct {
	mu sync.Mutex

	config CircuitBreakerConfig
	state  CircuitState

	consecutiveFailures int
	openedAt            time.Time
	halfOpenCalls       int
}

// NewCircuitBreaker builds a CircuitBreaker from config.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.Metrics == nil {
		config.Metrics = NoopMetrics
	}
	return &CircuitBreaker{config: config, state: StateClosed}
}

// CanExecute reports whether a call should be allowed through right
// now, transitioning Open -> Half-Open once ResetTimeout has elapsed.
func (cb *CircuitBreaker) CanExecute() bool {
	if cb.config.FailureThreshold <= 0 {
		return true // disabled
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.config.ResetTimeout {
			cb.transition(StateHalfOpen)
			cb.halfOpenCalls = 0
			return cb.admitHalfOpenLocked()
		}
		cb.config.Metrics.RecordRejection(cb.config.Name)
		return false
	case StateHalfOpen:
		return cb.admitHalfOpenLocked()
	default:
		return true
	}
}

func (cb *CircuitBreaker) admitHalfOpenLocked() bool {
	if cb.halfOpenCalls >= cb.config.HalfOpenMaxCalls {
		cb.config.Metrics.RecordRejection(cb.config.Name)
		return false
	}
	cb.halfOpenCalls++
	return true
}

// RecordSuccess closes the circuit (from Half-Open) or simply resets
// the failure count (from Closed).
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	if cb.state != StateClosed {
		cb.transition(StateClosed)
	}
	cb.config.Metrics.RecordSuccess(cb.config.Name)
}

// RecordFailure trips the breaker to Open once FailureThreshold
// consecutive failures have been seen (or immediately, from
// Half-Open).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.config.Metrics.RecordFailure(cb.config.Name, "handler_error")

	if cb.state == StateHalfOpen {
		cb.transition(StateOpen)
		cb.openedAt = time.Now()
		return
	}

	cb.consecutiveFailures++
	if cb.config.FailureThreshold > 0 && cb.consecutiveFailures >= cb.config.FailureThreshold {
		cb.transition(StateOpen)
		cb.openedAt = time.Now()
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	if from != to {
		cb.config.Metrics.RecordStateChange(cb.config.Name, from.String(), to.String())
	}
}

// State returns the current state, for tests and diagnostics.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
