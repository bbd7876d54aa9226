package hive

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/haasonsaas/hiveswarm/internal/registry"
	"github.com/haasonsaas/hiveswarm/internal/resilience"
	"github.com/haasonsaas/hiveswarm/internal/rng"
)

// signatureKey groups decision history for emergent-pattern detection.
type signatureKey struct {
	method           Method
	participantCount int
}

// Engine owns the hive's node graph, active/resolved decisions, and the
// shared memory store. It is the hive's single writer; the control
// bridge only reaches it through these methods.
type Engine struct {
	registry *registry.Registry
	res      *resilience.Engine
	noise    rng.Source
	delay    rng.Source
	sleep    func(context.Context, time.Duration)

	Memory *MemoryStore

	mu              sync.RWMutex
	nodes           map[string]*Node
	activeDecisions map[string]*Decision
	historyByKey    map[signatureKey][]Signature
}

// Option configures a newly-built Engine.
type Option func(*Engine)

// WithNoiseSource overrides the RNG used for expertise-vector noise.
func WithNoiseSource(src rng.Source) Option { return func(e *Engine) { e.noise = src } }

// WithDeliberationSource overrides the RNG used for per-node vote delay.
func WithDeliberationSource(src rng.Source) Option { return func(e *Engine) { e.delay = src } }

// WithSleep overrides the deliberation sleep function, primarily so
// tests can skip real wall-clock waits.
func WithSleep(fn func(context.Context, time.Duration)) Option {
	return func(e *Engine) { e.sleep = fn }
}

// NewEngine builds a hive engine backed by reg for agent lookups.
func NewEngine(reg *registry.Registry, res *resilience.Engine, opts ...Option) *Engine {
	e := &Engine{
		registry:        reg,
		res:             res,
		noise:           rng.NewSource(time.Now().UnixNano()),
		delay:           rng.NewSource(time.Now().UnixNano()),
		sleep:           defaultSleep,
		Memory:          NewMemoryStore(nil),
		nodes:           make(map[string]*Node),
		activeDecisions: make(map[string]*Decision),
		historyByKey:    make(map[signatureKey][]Signature),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InitNodes creates one hive node per agent id, wiring expertise vectors
// from each agent's registered capabilities (or the given override
// capabilities, if non-empty) and connecting every new node to existing
// ones whose cosine similarity clears the threshold.
func (e *Engine) InitNodes(agentIDs []string, capabilityOverride []string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing := make([]*Node, 0, len(e.nodes))
	for _, n := range e.nodes {
		existing = append(existing, n)
	}

	nodeIDs := make([]string, 0, len(agentIDs))
	for _, agentID := range agentIDs {
		caps := capabilityOverride
		if len(caps) == 0 {
			if cfg, ok := e.registry.Get(agentID); ok {
				caps = cfg.Capability.SpecializationDomains
			}
		}
		vector := BuildExpertiseVector(caps, e.noise)
		nodeID := "node_" + agentID
		node := newNode(nodeID, agentID, vector)
		connectNewNode(node, existing)

		e.nodes[nodeID] = node
		existing = append(existing, node)
		nodeIDs = append(nodeIDs, nodeID)
	}
	return nodeIDs, nil
}

func (e *Engine) nodeList() []*Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Node, 0, len(e.nodes))
	for _, n := range e.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

func (e *Engine) nodesByID() map[string]*Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]*Node, len(e.nodes))
	for id, n := range e.nodes {
		out[id] = n
	}
	return out
}

// InitiateDecision registers an active decision with every current node
// as a participant, runs the per-node vote collectors under timeout,
// resolves the decision, records its behavioral signature, archives it
// to history, and returns the outcome.
func (e *Engine) InitiateDecision(ctx context.Context, decisionID, question string, options []Option, method Method, timeout time.Duration) (Outcome, error) {
	nodes := e.nodeList()
	participants := make([]string, 0, len(nodes))
	for _, n := range nodes {
		participants = append(participants, n.AgentID)
	}

	decision := newDecision(decisionID, question, options, method, participants)

	e.mu.Lock()
	e.activeDecisions[decisionID] = decision
	e.mu.Unlock()

	var outcome Outcome
	run := func(callCtx context.Context) error {
		collectCtx := callCtx
		var cancel context.CancelFunc
		if timeout > 0 {
			collectCtx, cancel = context.WithTimeout(callCtx, timeout)
			defer cancel()
		}
		collectVotes(collectCtx, decision, nodes, e.delay, e.sleep)
		outcome = resolve(decision, e.nodesByID())
		return nil
	}

	var err error
	if e.res != nil {
		err = e.res.Wrap(ctx, resilience.CircuitDemocraticDecision, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return Outcome{}, err
	}

	e.recordSignature(method, len(participants), outcome)

	e.mu.Lock()
	delete(e.activeDecisions, decisionID)
	e.mu.Unlock()

	return outcome, nil
}

func (e *Engine) recordSignature(method Method, participantCount int, outcome Outcome) {
	key := signatureKey{method: method, participantCount: participantCount}
	sig := Signature{
		Method:           method,
		ParticipantCount: participantCount,
		ConsensusReached: outcome.ConsensusReached,
		Confidence:       outcome.Confidence,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.historyByKey[key] = append(e.historyByKey[key], sig)
}

// IsEmergentPattern reports whether the most recent three behavioral
// signatures for {method, participantCount} show at least two with
// confidence > 0.8 and at least two with consensus_reached = true.
func (e *Engine) IsEmergentPattern(method Method, participantCount int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sigs := e.historyByKey[signatureKey{method: method, participantCount: participantCount}]
	if len(sigs) < 3 {
		return false
	}
	recent := sigs[len(sigs)-3:]

	highConfidence, reached := 0, 0
	for _, s := range recent {
		if s.Confidence > 0.8 {
			highConfidence++
		}
		if s.ConsensusReached {
			reached++
		}
	}
	return highConfidence >= 2 && reached >= 2
}

// Remember stores content into the hive's shared memory, returning its
// fragment id. Storage and retrieval are the hive's context-management
// surface, guarded by the same circuit as InitiateDecision.
func (e *Engine) Remember(ctx context.Context, content any, memType MemoryType, contributors []string, confidence float64) (string, error) {
	var fragmentID string
	run := func(context.Context) error {
		id, err := e.Memory.Store(content, memType, contributors, confidence)
		fragmentID = id
		return err
	}
	if e.res != nil {
		if err := e.res.Wrap(ctx, resilience.CircuitContextManagement, run); err != nil {
			return "", err
		}
		return fragmentID, nil
	}
	if err := run(ctx); err != nil {
		return "", err
	}
	return fragmentID, nil
}

// Recall queries the hive's shared memory.
func (e *Engine) Recall(ctx context.Context, query string, memType MemoryType, minConfidence float64) ([]Fragment, error) {
	var fragments []Fragment
	run := func(context.Context) error {
		f, err := e.Memory.Recall(query, memType, minConfidence)
		fragments = f
		return err
	}
	if e.res != nil {
		if err := e.res.Wrap(ctx, resilience.CircuitContextManagement, run); err != nil {
			return nil, err
		}
		return fragments, nil
	}
	if err := run(ctx); err != nil {
		return nil, err
	}
	return fragments, nil
}

// Status is a point-in-time snapshot of the hive for diagnostics.
type Status struct {
	NodeCount       int
	MemoryFragments int
	ActiveDecisions int
}

// GetStatus returns a snapshot of the hive's current size.
func (e *Engine) GetStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{
		NodeCount:       len(e.nodes),
		MemoryFragments: e.Memory.Len(),
		ActiveDecisions: len(e.activeDecisions),
	}
}
