package registry

import (
	"sort"
	"sync"

	"github.com/haasonsaas/hiveswarm/internal/resilience"
)

// StatusFunc is the abstract status-update side effect invoked on
// activation and deactivation. It MUST NOT block the caller; Registry
// always invokes it in a separate goroutine.
type StatusFunc func(agentID string, active bool)

// Registry is the agent_id -> AgentConfig catalog plus the subset
// currently active. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]AgentConfig
	order    []string // registration order, for Shutdown
	active   map[string]bool
	onStatus StatusFunc
}

// New creates an empty registry. onStatus may be nil.
func New(onStatus StatusFunc) *Registry {
	return &Registry{
		byID:     make(map[string]AgentConfig),
		active:   make(map[string]bool),
		onStatus: onStatus,
	}
}

// Register inserts cfg, rejecting a duplicate agent_id.
func (r *Registry) Register(cfg AgentConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[cfg.AgentID]; exists {
		return resilience.New(resilience.KindInvalidInput, "agent already registered: "+cfg.AgentID)
	}
	r.byID[cfg.AgentID] = cfg.Clone()
	r.order = append(r.order, cfg.AgentID)
	return nil
}

// Activate is idempotent: re-activating an already-active agent returns
// its config without side effects. Fails with KindUnknownAgent if
// agent_id isn't registered, or KindResourceExhausted if validate
// rejects activation.
func (r *Registry) Activate(agentID string, validate func(AgentConfig) error) (AgentConfig, error) {
	r.mu.Lock()
	cfg, ok := r.byID[agentID]
	if !ok {
		r.mu.Unlock()
		return AgentConfig{}, resilience.New(resilience.KindUnknownAgent, "unknown agent: "+agentID)
	}
	if r.active[agentID] {
		r.mu.Unlock()
		return cfg.Clone(), nil
	}
	r.mu.Unlock()

	if validate != nil {
		if err := validate(cfg); err != nil {
			return AgentConfig{}, resilience.Wrap(resilience.KindResourceExhausted, "activation rejected for "+agentID, err)
		}
	}

	r.mu.Lock()
	r.active[agentID] = true
	r.mu.Unlock()

	r.notify(agentID, true)
	return cfg.Clone(), nil
}

// Deactivate is idempotent: a no-op on an inactive or unknown id.
func (r *Registry) Deactivate(agentID string) {
	r.mu.Lock()
	wasActive := r.active[agentID]
	delete(r.active, agentID)
	r.mu.Unlock()

	if wasActive {
		r.notify(agentID, false)
	}
}

func (r *Registry) notify(agentID string, active bool) {
	if r.onStatus == nil {
		return
	}
	go r.onStatus(agentID, active)
}

// IsActive reports whether agentID is currently active.
func (r *Registry) IsActive(agentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[agentID]
}

// Get returns the registered config for agentID.
func (r *Registry) Get(agentID string) (AgentConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byID[agentID]
	if !ok {
		return AgentConfig{}, false
	}
	return cfg.Clone(), true
}

// FindByCapabilities returns every registered agent whose specialization
// domains intersect required, sorted by coordination_priority descending
// then agent_id ascending.
func (r *Registry) FindByCapabilities(required []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[string]bool, len(required))
	for _, d := range required {
		want[d] = true
	}

	var matches []AgentConfig
	for _, cfg := range r.byID {
		for _, domain := range cfg.Capability.SpecializationDomains {
			if want[domain] {
				matches = append(matches, cfg)
				break
			}
		}
	}
	sortByPriorityThenID(matches)

	ids := make([]string, len(matches))
	for i, cfg := range matches {
		ids[i] = cfg.AgentID
	}
	return ids
}

// ListActive returns the ids of every currently active agent, sorted.
func (r *Registry) ListActive() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.active))
	for id, active := range r.active {
		if active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// List returns every registered agent config, in registration order.
func (r *Registry) List() []AgentConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AgentConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out
}

// Shutdown deactivates every active agent in registry order.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	order := append([]string(nil), r.order...)
	r.mu.RUnlock()

	for _, id := range order {
		r.Deactivate(id)
	}
}
