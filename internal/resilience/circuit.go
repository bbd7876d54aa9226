package resilience

import (
	"context"
	"sync"
	"time"
)

// Circuit breaker states.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// ErrCircuitOpen is returned by Execute when the circuit is open and the
// recovery timeout has not yet elapsed.
var ErrCircuitOpen = &Error{Kind: KindInternal, Message: "circuit breaker is open"}

// CircuitBreakerConfig configures a single named circuit.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive failures before opening. Default 5.
	SuccessThreshold int           // consecutive half-open successes before closing. Default 3.
	RecoveryTimeout  time.Duration // time open before admitting a half-open probe. Default 60s.
	Timeout          time.Duration // per-call deadline. Default 30s.
	OnStateChange    func(name, from, to string)
}

func (c *CircuitBreakerConfig) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 3
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// CircuitBreaker implements a closed/open/half_open state machine:
// closed counts consecutive failures and trips to open past
// FailureThreshold; open rejects calls until RecoveryTimeout elapses
// since the last failure, then moves to half_open; half_open admits
// calls and closes after SuccessThreshold consecutive successes, or
// reopens on any failure.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       string
	failures    int
	successes   int
	lastFailure time.Time
}

// NewCircuitBreaker creates a circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	config.applyDefaults()
	return &CircuitBreaker{config: config, state: StateClosed}
}

// Execute runs fn under circuit-breaker protection and the breaker's
// per-call deadline. Expiry of that deadline counts as a failure (spec
// §4.6, "Expiry is counted as a failure").
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.canExecute(); err != nil {
		return err
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if cb.config.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, cb.config.Timeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err == nil && callCtx.Err() == context.DeadlineExceeded {
		err = New(KindTimeout, "operation exceeded circuit timeout")
	}
	cb.recordResult(err)
	return err
}

func (cb *CircuitBreaker) canExecute() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) >= cb.config.RecoveryTimeout {
			cb.transitionTo(StateHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.successes = 0
		cb.lastFailure = time.Now()

		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.config.FailureThreshold {
				cb.transitionTo(StateOpen)
			}
		case StateHalfOpen:
			cb.transitionTo(StateOpen)
		}
		return
	}

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(StateClosed)
		}
	}
}

// transitionTo must be called with cb.mu held.
func (cb *CircuitBreaker) transitionTo(newState string) {
	oldState := cb.state
	cb.state = newState
	cb.failures = 0
	cb.successes = 0
	if cb.config.OnStateChange != nil && oldState != newState {
		go cb.config.OnStateChange(cb.config.Name, oldState, newState)
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker back to closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionTo(StateClosed)
}

// Stats is a point-in-time snapshot of a circuit breaker.
type Stats struct {
	Name      string
	State     string
	Failures  int
	Successes int
}

func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Stats{Name: cb.config.Name, State: cb.state, Failures: cb.failures, Successes: cb.successes}
}

// Registry manages the engine's named circuit breakers, created lazily
// on first use from a shared default config.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	defaults CircuitBreakerConfig
}

// NewRegistry creates a registry using defaults for any circuit created
// via Get.
func NewRegistry(defaults CircuitBreakerConfig) *Registry {
	return &Registry{breakers: make(map[string]*CircuitBreaker), defaults: defaults}
}

// Get returns the named circuit breaker, creating it with the registry's
// defaults if it doesn't exist yet.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cfg := r.defaults
	cfg.Name = name
	cb := NewCircuitBreaker(cfg)
	r.breakers[name] = cb
	return cb
}

// AllStats returns a snapshot of every circuit breaker created so far.
func (r *Registry) AllStats() []Stats {
	r.mu.Lock()
	names := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		names = append(names, cb)
	}
	r.mu.Unlock()

	stats := make([]Stats, 0, len(names))
	for _, cb := range names {
		stats = append(stats, cb.Stats())
	}
	return stats
}
