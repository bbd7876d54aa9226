package resilience

import (
	"context"
	"sync"
)

// Known circuit names shared by the registry, swarm, hive, and
// coordinator packages.
const (
	CircuitAgentActivation    = "agent_activation"
	CircuitAgentCoordination  = "agent_coordination"
	CircuitDemocraticDecision = "democratic_decision"
	CircuitContextManagement  = "context_management"
)

// Engine composes the circuit breaker registry and retry policy into the
// single resilience wrapper every externally invoked operation in the
// registry, swarm, hive, and coordinator packages passes through:
// circuit_breaker(retry(op)).
type Engine struct {
	circuits *Registry
	retry    RetryConfig

	mu       sync.Mutex
	overrides map[string]RetryConfig
}

// NewEngine builds a resilience engine with the given circuit-breaker
// defaults and retry policy, and pre-creates the four known circuits so
// their state is visible (e.g. via circuit_status) before first use.
func NewEngine(circuitDefaults CircuitBreakerConfig, retry RetryConfig) *Engine {
	e := &Engine{
		circuits:  NewRegistry(circuitDefaults),
		retry:     retry,
		overrides: make(map[string]RetryConfig),
	}
	for _, name := range []string{CircuitAgentActivation, CircuitAgentCoordination, CircuitDemocraticDecision, CircuitContextManagement} {
		e.circuits.Get(name)
	}
	return e
}

// SetRetryOverride installs a circuit-specific retry policy, overriding
// the engine default for calls to Wrap(name, ...).
func (e *Engine) SetRetryOverride(name string, cfg RetryConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overrides[name] = cfg
}

func (e *Engine) retryConfigFor(name string) RetryConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cfg, ok := e.overrides[name]; ok {
		return cfg
	}
	return e.retry
}

// Wrap executes op under the named circuit breaker, retrying recoverable
// failures with full-jitter backoff inside each circuit-breaker call. A
// trip in the breaker short-circuits further attempts immediately rather
// than letting retry exhaust its budget against a known-bad dependency.
func (e *Engine) Wrap(ctx context.Context, name string, op func(context.Context) error) error {
	cb := e.circuits.Get(name)
	retryCfg := e.retryConfigFor(name)
	return cb.Execute(ctx, func(callCtx context.Context) error {
		return Retry(callCtx, retryCfg, op)
	})
}

// Circuits exposes the underlying registry, e.g. for the control bridge's
// circuit_status action.
func (e *Engine) Circuits() *Registry {
	return e.circuits
}
