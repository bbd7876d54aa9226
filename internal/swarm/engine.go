package swarm

import (
	"context"
	"sync"
	"time"

	"github.com/haasonsaas/hiveswarm/internal/infra"
	"github.com/haasonsaas/hiveswarm/internal/registry"
	"github.com/haasonsaas/hiveswarm/internal/resilience"
)

// defaultMaxConcurrentTasks bounds how many CoordinateSwarmTask calls may
// run at once across every swarm, independent of per-circuit retry and
// breaker limits. It exists so a burst of bridge requests degrades into
// queueing rather than unbounded goroutine fan-out against proposers.
const defaultMaxConcurrentTasks = 64

// Engine owns the live set of swarms and the registry it draws agents
// from. It is the single writer for swarm membership and task queues;
// the control bridge only reaches swarms through these methods.
type Engine struct {
	registry *registry.Registry
	proposer Proposer
	res      *resilience.Engine
	inFlight *infra.Semaphore

	mu            sync.RWMutex
	swarms        map[string]*Swarm
	globalHistory map[string]map[string]any
}

// NewEngine builds a swarm engine backed by reg for agent lookups and
// proposer for task execution.
func NewEngine(reg *registry.Registry, proposer Proposer, res *resilience.Engine) *Engine {
	return &Engine{
		registry:      reg,
		proposer:      proposer,
		res:           res,
		inFlight:      infra.NewSemaphore(defaultMaxConcurrentTasks),
		swarms:        make(map[string]*Swarm),
		globalHistory: make(map[string]map[string]any),
	}
}

// SetConcurrencyLimit replaces the engine's default bound on concurrent
// CoordinateSwarmTask calls. Safe to call once at startup, before any
// task is coordinated.
func (e *Engine) SetConcurrencyLimit(max int64) {
	e.inFlight = infra.NewSemaphore(max)
}

// CreateSwarm is idempotent on id: a second call with the same id
// returns the existing swarm unchanged.
func (e *Engine) CreateSwarm(ctx context.Context, id string, topology Topology, initialAgents []string) (*Swarm, error) {
	e.mu.Lock()
	if existing, ok := e.swarms[id]; ok {
		e.mu.Unlock()
		return existing, nil
	}
	s := newSwarm(id, topology)
	e.swarms[id] = s
	e.mu.Unlock()

	for _, agentID := range initialAgents {
		cfg, err := e.activateAgent(ctx, agentID)
		if err != nil {
			return nil, err
		}
		role := AssignRole(topology, cfg.CoordinationPriority, cfg.Capability.SpecializationDomains)
		s.addAgent(newSwarmAgent(cfg, role))
	}
	return s, nil
}

// activateAgent activates agentID through the registry, guarded by the
// agent_activation circuit. Rejection is driven by the agent's own
// max_concurrent_swarms resource requirement, when it states one.
func (e *Engine) activateAgent(ctx context.Context, agentID string) (registry.AgentConfig, error) {
	validate := func(cfg registry.AgentConfig) error {
		limit, ok := cfg.ResourceRequirements["max_concurrent_swarms"]
		if !ok {
			return nil
		}
		max, ok := toInt(limit)
		if !ok || max <= 0 {
			return nil
		}
		if e.membershipCount(agentID) >= max {
			return resilience.New(resilience.KindResourceExhausted, "agent at max_concurrent_swarms: "+agentID)
		}
		return nil
	}

	var cfg registry.AgentConfig
	run := func(context.Context) error {
		c, err := e.registry.Activate(agentID, validate)
		cfg = c
		return err
	}
	if e.res != nil {
		if err := e.res.Wrap(ctx, resilience.CircuitAgentActivation, run); err != nil {
			return registry.AgentConfig{}, err
		}
		return cfg, nil
	}
	if err := run(ctx); err != nil {
		return registry.AgentConfig{}, err
	}
	return cfg, nil
}

// membershipCount returns how many live swarms currently count agentID
// as a member.
func (e *Engine) membershipCount(agentID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	count := 0
	for _, s := range e.swarms {
		if _, ok := s.agentByID(agentID); ok {
			count++
		}
	}
	return count
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Get returns the swarm for id, if it exists.
func (e *Engine) Get(id string) (*Swarm, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.swarms[id]
	return s, ok
}

// CoordinateSwarmTask appends task_id to the swarm's queue, runs the
// topology's strategy under the resilience engine's agent_coordination
// circuit, records a collective_memory entry, and returns the result.
func (e *Engine) CoordinateSwarmTask(ctx context.Context, swarmID string, task CoordinationTask) (Result, error) {
	s, ok := e.Get(swarmID)
	if !ok {
		return Result{}, resilience.New(resilience.KindUnknownSwarm, "unknown swarm: "+swarmID)
	}

	if err := e.inFlight.Acquire(ctx, 1); err != nil {
		return Result{}, resilience.Wrap(resilience.KindResourceExhausted, "coordination concurrency limit", err)
	}
	defer e.inFlight.Release(1)

	s.enqueueTask(task.TaskID)

	start := time.Now()
	var result Result
	run := func(callCtx context.Context) error {
		r, err := strategyFor(s.currentTopology())(callCtx, s, task, e.proposer)
		result = r
		return err
	}

	var err error
	if e.res != nil {
		err = e.res.Wrap(ctx, resilience.CircuitAgentCoordination, run)
	} else {
		err = run(ctx)
	}
	latency := time.Since(start)

	s.rememberTask(task.TaskID, map[string]any{
		"result":      result,
		"latency_ms":  latency.Milliseconds(),
		"error":       errString(err),
		"completed_at": time.Now(),
	})

	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// DissolveSwarm archives the swarm's collective memory into a global
// history keyed by swarm id and removes the swarm from the live set.
func (e *Engine) DissolveSwarm(swarmID string, saveResults bool) (bool, error) {
	e.mu.Lock()
	s, ok := e.swarms[swarmID]
	if !ok {
		e.mu.Unlock()
		return false, resilience.New(resilience.KindUnknownSwarm, "unknown swarm: "+swarmID)
	}
	delete(e.swarms, swarmID)
	if saveResults {
		e.globalHistory[swarmID] = s.CollectiveMemory()
	}
	e.mu.Unlock()

	for _, a := range s.Agents() {
		if e.membershipCount(a.AgentID) == 0 {
			e.registry.Deactivate(a.AgentID)
		}
	}
	return saveResults, nil
}

// GetSwarmStatus returns a point-in-time snapshot of swarmID.
func (e *Engine) GetSwarmStatus(swarmID string) (Status, error) {
	s, ok := e.Get(swarmID)
	if !ok {
		return Status{}, resilience.New(resilience.KindUnknownSwarm, "unknown swarm: "+swarmID)
	}

	agents := s.Agents()
	snapshots := make([]Snapshot, 0, len(agents))
	for _, a := range agents {
		snapshots = append(snapshots, Snapshot{AgentID: a.AgentID, Role: a.Role, Load: a.Load(), Trust: a.TrustScore})
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		SwarmID:   s.SwarmID,
		Topology:  s.Topology,
		Health:    s.HealthScore,
		CreatedAt: s.CreatedAt,
		Agents:    snapshots,
	}, nil
}

// List returns every live swarm id.
func (e *Engine) List() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.swarms))
	for id := range e.swarms {
		ids = append(ids, id)
	}
	return ids
}

// History returns the archived collective memory for a dissolved swarm.
func (e *Engine) History(swarmID string) (map[string]any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.globalHistory[swarmID]
	return h, ok
}
