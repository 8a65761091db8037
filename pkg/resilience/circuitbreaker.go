// Package resilience provides a circuit breaker for outbound webhook
// destinations. A destination that keeps failing is suspended for a cooldown
// period so every pending message does not wait out the full request timeout.
package resilience

import (
	"sync"
	"time"

	"ai-agent-portal/backend/pkg/logger"
)

// State is the current circuit breaker state
type State string

const (
	// StateClosed allows requests through
	StateClosed State = "closed"
	// StateOpen short-circuits requests until the cooldown expires
	StateOpen State = "open"
	// StateHalfOpen admits probe requests after the cooldown
	StateHalfOpen State = "half-open"
)

// Config holds circuit breaker thresholds
type Config struct {
	FailureThreshold uint          // consecutive failures before opening
	SuccessThreshold uint          // successes in half-open before closing
	Cooldown         time.Duration // how long an open circuit stays open
}

// DefaultConfig returns thresholds suitable for webhook destinations
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         60 * time.Second,
	}
}

// CircuitBreaker tracks the health of one destination
type CircuitBreaker struct {
	name   string
	config Config
	log    *logger.Logger

	mu              sync.Mutex
	state           State
	failureCount    uint
	successCount    uint
	nextAttemptTime time.Time
}

// NewCircuitBreaker creates a closed circuit breaker for one destination
func NewCircuitBreaker(name string, config Config, log *logger.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:   name,
		config: config,
		log:    log,
		state:  StateClosed,
	}
}

// Allow reports whether a request to this destination may proceed. An open
// circuit transitions to half-open once the cooldown has expired.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Now().After(cb.nextAttemptTime) {
			cb.state = StateHalfOpen
			cb.successCount = 0
			cb.log.Info("Circuit breaker half-open", "destination", cb.name)
			return true
		}
		return false
	case StateHalfOpen:
		return cb.successCount < cb.config.SuccessThreshold
	}
	return false
}

// RecordSuccess notes a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failureCount = 0
			cb.log.Info("Circuit breaker closed", "destination", cb.name)
		}
	}
}

// RecordFailure notes a failed request, opening the circuit when the
// destination has failed too many times in a row.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.open()
		}
	case StateHalfOpen:
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.nextAttemptTime = time.Now().Add(cb.config.Cooldown)
	cb.log.Warn("Circuit breaker opened",
		"destination", cb.name,
		"failures", cb.failureCount,
		"retryAt", cb.nextAttemptTime.Format(time.RFC3339),
	)
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Registry hands out one circuit breaker per destination name
type Registry struct {
	mu       sync.Mutex
	config   Config
	log      *logger.Logger
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates an empty registry sharing one config
func NewRegistry(config Config, log *logger.Logger) *Registry {
	return &Registry{
		config:   config,
		log:      log,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// For returns the breaker for a destination, creating it on first use
func (r *Registry) For(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[name]
	if !ok {
		cb = NewCircuitBreaker(name, r.config, r.log)
		r.breakers[name] = cb
	}
	return cb
}
