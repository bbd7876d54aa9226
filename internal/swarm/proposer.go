package swarm

import "context"

// Proposal is one agent's contribution to a coordination task: a
// candidate plan, analysis, or execution result plus the confidence the
// agent assigns it.
type Proposal struct {
	AgentID             string
	Confidence          float64 // [0,1]
	Content             any
	MatchedCapabilities int
}

// Proposer is the abstract "agent worker" collaborator the swarm engine
// delegates real task execution to. Production wiring wraps an LLM-backed
// agent runtime; tests supply a deterministic stub.
type Proposer interface {
	Propose(ctx context.Context, agent *SwarmAgent, task CoordinationTask) (Proposal, error)
}

// ProposerFunc adapts a plain function to the Proposer interface.
type ProposerFunc func(ctx context.Context, agent *SwarmAgent, task CoordinationTask) (Proposal, error)

func (f ProposerFunc) Propose(ctx context.Context, agent *SwarmAgent, task CoordinationTask) (Proposal, error) {
	return f(ctx, agent, task)
}
