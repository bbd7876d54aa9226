package swarm

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// AssignRole derives a SwarmAgent's role deterministically from the
// swarm's topology and the agent's registry-sourced priority and domains.
func AssignRole(topology Topology, priority int, domains []string) Role {
	switch topology {
	case TopologyHierarchical:
		if priority >= 90 {
			return RoleQueen
		}
		if hasAny(domains, "orchestration", "coordination") {
			return RoleCoordinator
		}
		if hasAny(domains, "research", "analysis") {
			return RoleScout
		}
		return RoleSpecialist
	case TopologyMesh:
		if hasAny(domains, "coordination") {
			return RoleCoordinator
		}
		return RoleWorker
	case TopologyCollective:
		return RoleWorker
	case TopologyAdaptive:
		return RoleCoordinator
	default:
		return RoleWorker
	}
}

func hasAny(domains []string, candidates ...string) bool {
	want := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		want[c] = true
	}
	for _, d := range domains {
		if want[d] {
			return true
		}
	}
	return false
}

// matchedCapabilities counts how many of task's required capabilities
// agent's capability set covers.
func matchedCapabilities(agent *SwarmAgent, required []string) int {
	have := make(map[string]bool, len(agent.Capabilities))
	for _, c := range agent.Capabilities {
		have[c] = true
	}
	count := 0
	for _, r := range required {
		if have[r] {
			count++
		}
	}
	return count
}

// strategy is the shape every topology resolver implements.
type strategy func(ctx context.Context, s *Swarm, task CoordinationTask, proposer Proposer) (Result, error)

func strategyFor(topology Topology) strategy {
	switch topology {
	case TopologyHierarchical:
		return runHierarchical
	case TopologyMesh:
		return runMesh
	case TopologyCollective:
		return runCollective
	case TopologyAdaptive:
		return runAdaptive
	default:
		return runHierarchical
	}
}

// pickQueen returns the highest-priority agent in role queen, or, absent
// one, the agent with the most capabilities, ties broken by agent_id.
func pickQueen(agents []*SwarmAgent) *SwarmAgent {
	var queens []*SwarmAgent
	for _, a := range agents {
		if a.Role == RoleQueen {
			queens = append(queens, a)
		}
	}
	if len(queens) > 0 {
		sort.Slice(queens, func(i, j int) bool { return queens[i].AgentID < queens[j].AgentID })
		return queens[0]
	}

	var best *SwarmAgent
	for _, a := range agents {
		if best == nil {
			best = a
			continue
		}
		if a.NumCapabilities() > best.NumCapabilities() ||
			(a.NumCapabilities() == best.NumCapabilities() && a.AgentID < best.AgentID) {
			best = a
		}
	}
	return best
}

// subtask is one piece of the queen's strategy in the hierarchical
// topology.
type subtask struct {
	ID                   string
	Description          string
	Priority             int
	RequiredCapabilities []string
}

// bestWorker scores candidates by (matched capabilities * trust_score) -
// current_load, highest wins; ties broken by agent_id.
func bestWorker(candidates []*SwarmAgent, required []string) *SwarmAgent {
	var best *SwarmAgent
	var bestScore float64
	for _, a := range candidates {
		score := float64(matchedCapabilities(a, required))*a.TrustScore - a.Load()
		if best == nil || score > bestScore || (score == bestScore && a.AgentID < best.AgentID) {
			bestScore = score
			best = a
		}
	}
	return best
}

func runHierarchical(ctx context.Context, s *Swarm, task CoordinationTask, proposer Proposer) (Result, error) {
	agents := s.Agents()
	if len(agents) == 0 {
		return Result{Status: "error", Approach: "hierarchical"}, nil
	}

	queen := pickQueen(agents)
	subtasks := planSubtasks(task)

	workers := make([]*SwarmAgent, 0, len(agents))
	for _, a := range agents {
		if a.AgentID != queen.AgentID {
			workers = append(workers, a)
		}
	}
	if len(workers) == 0 {
		workers = agents
	}

	type subtaskResult struct {
		subtask    subtask
		worker     *SwarmAgent
		proposal   Proposal
		err        error
	}

	results := make([]subtaskResult, len(subtasks))
	group, gctx := errgroup.WithContext(ctx)
	for i, st := range subtasks {
		i, st := i, st
		worker := bestWorker(workers, st.RequiredCapabilities)
		if worker == nil {
			worker = queen
		}
		worker.AddLoad(0.1)
		group.Go(func() error {
			defer worker.AddLoad(-0.1)
			subCtx, cancel := context.WithCancel(gctx)
			defer cancel()
			p, err := proposer.Propose(subCtx, worker, CoordinationTask{
				TaskID:               st.ID,
				Description:          st.Description,
				RequiredCapabilities: st.RequiredCapabilities,
				Metadata:             task.Metadata,
			})
			results[i] = subtaskResult{subtask: st, worker: worker, proposal: p, err: err}
			return nil // failures in one subtask must not abort the others
		})
	}
	_ = group.Wait()

	var confidenceSum float64
	var confidenceCount int
	outputs := make([]map[string]any, 0, len(results))
	for _, r := range results {
		entry := map[string]any{"subtask_id": r.subtask.ID, "worker": r.worker.AgentID}
		if r.err != nil {
			entry["error"] = r.err.Error()
		} else {
			entry["content"] = r.proposal.Content
			entry["confidence"] = r.proposal.Confidence
			confidenceSum += r.proposal.Confidence
			confidenceCount++
		}
		outputs = append(outputs, entry)
	}

	overallConfidence := 0.0
	if confidenceCount > 0 {
		overallConfidence = confidenceSum / float64(confidenceCount)
	}

	queen.RecordEvent("integrated " + task.TaskID)
	return Result{
		Status:          "completed",
		Approach:        "hierarchical",
		Result:          map[string]any{"queen_agent": queen.AgentID, "subtasks": outputs},
		EfficiencyScore: overallConfidence,
		Extra:           map[string]any{"overall_confidence": overallConfidence},
	}, nil
}

// planSubtasks derives a sequence of subtasks from the task. In the
// absence of a richer planning model, each required capability becomes
// one subtask, preserving the order given.
func planSubtasks(task CoordinationTask) []subtask {
	if len(task.RequiredCapabilities) == 0 {
		return []subtask{{ID: task.TaskID + "-0", Description: task.Description, Priority: 1}}
	}
	out := make([]subtask, 0, len(task.RequiredCapabilities))
	for i, capability := range task.RequiredCapabilities {
		out = append(out, subtask{
			ID:                   task.TaskID + "-" + capability,
			Description:          task.Description,
			Priority:             len(task.RequiredCapabilities) - i,
			RequiredCapabilities: []string{capability},
		})
	}
	return out
}

func runMesh(ctx context.Context, s *Swarm, task CoordinationTask, proposer Proposer) (Result, error) {
	agents := s.Agents()
	if len(agents) == 0 {
		return Result{Status: "error", Approach: "mesh"}, nil
	}

	proposals := make([]Proposal, len(agents))
	errs := make([]error, len(agents))
	group, gctx := errgroup.WithContext(ctx)
	for i, a := range agents {
		i, a := i, a
		group.Go(func() error {
			p, err := proposer.Propose(gctx, a, task)
			proposals[i] = p
			errs[i] = err
			return nil
		})
	}
	_ = group.Wait()

	var winnerIdx = -1
	winnerScore := -1.0
	var trustSum float64
	for i, a := range agents {
		trustSum += a.TrustScore
		if errs[i] != nil {
			continue
		}
		score := proposals[i].Confidence * a.TrustScore
		if score > winnerScore {
			winnerScore = score
			winnerIdx = i
		}
	}

	if winnerIdx == -1 {
		return Result{Status: "error", Approach: "mesh"}, nil
	}

	consensusScore := 0.0
	if trustSum > 0 {
		consensusScore = agents[winnerIdx].TrustScore / trustSum
	}

	return Result{
		Status:          "completed",
		Approach:        "mesh",
		Result:          map[string]any{"winner": agents[winnerIdx].AgentID, "content": proposals[winnerIdx].Content},
		EfficiencyScore: consensusScore,
		Extra:           map[string]any{"consensus_score": consensusScore},
	}, nil
}

var collectiveAspects = []string{"requirements", "constraints", "opportunities", "risks"}

func runCollective(ctx context.Context, s *Swarm, task CoordinationTask, proposer Proposer) (Result, error) {
	agents := s.Agents()
	if len(agents) == 0 {
		return Result{Status: "error", Approach: "collective"}, nil
	}

	// Phase 1: each agent analyzes each aspect concurrently.
	type analysisKey struct {
		agentID string
		aspect  string
	}
	analyses := make(map[analysisKey]Proposal)
	var analysesMu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	for _, a := range agents {
		for _, aspect := range collectiveAspects {
			a, aspect := a, aspect
			group.Go(func() error {
				p, err := proposer.Propose(gctx, a, CoordinationTask{
					TaskID:      task.TaskID + "-" + aspect,
					Description: task.Description + " :: " + aspect,
					Metadata:    task.Metadata,
				})
				if err != nil {
					return nil
				}
				analysesMu.Lock()
				analyses[analysisKey{a.AgentID, aspect}] = p
				analysesMu.Unlock()
				return nil
			})
		}
	}
	_ = group.Wait()

	// Phase 2: aggregate by aspect.
	collectiveKnowledge := make(map[string][]any)
	for key, p := range analyses {
		collectiveKnowledge[key.aspect] = append(collectiveKnowledge[key.aspect], p.Content)
	}

	// Phase 3: each agent executes a subtask parameterized by the
	// aggregated knowledge, concurrently.
	execResults := make([]Proposal, len(agents))
	execErrs := make([]error, len(agents))
	group2, gctx2 := errgroup.WithContext(ctx)
	for i, a := range agents {
		i, a := i, a
		group2.Go(func() error {
			p, err := proposer.Propose(gctx2, a, CoordinationTask{
				TaskID:      task.TaskID,
				Description: task.Description,
				Metadata:    map[string]any{"collective_knowledge": collectiveKnowledge},
			})
			execResults[i] = p
			execErrs[i] = err
			return nil
		})
	}
	_ = group2.Wait()

	succeeded := 0
	contributions := make([]any, 0, len(agents))
	for i := range agents {
		if execErrs[i] == nil {
			succeeded++
			contributions = append(contributions, execResults[i].Content)
		}
	}

	participationRate := 0.0
	if len(agents) > 0 {
		participationRate = float64(succeeded) / float64(len(agents))
	}
	confidence := 0.9 * participationRate

	return Result{
		Status:          "completed",
		Approach:        "collective",
		Result:          map[string]any{"collective_knowledge": collectiveKnowledge, "solution": contributions},
		EfficiencyScore: confidence,
		Extra:           map[string]any{"participation_rate": participationRate},
	}, nil
}

func runAdaptive(ctx context.Context, s *Swarm, task CoordinationTask, proposer Proposer) (Result, error) {
	agentCount := s.agentCount()
	chosen := chooseAdaptiveTopology(task, agentCount)

	original := s.currentTopology()
	s.setTopology(chosen)
	defer s.setTopology(original)

	result, err := strategyFor(chosen)(ctx, s, task, proposer)
	result.Approach = "adaptive:" + string(chosen)
	return result, err
}

// chooseAdaptiveTopology implements the decision table from the
// component design: high-complexity non-urgent tasks go collective,
// larger+complex swarms go hierarchical, urgency always goes mesh, and
// everything else defaults to hierarchical.
func chooseAdaptiveTopology(task CoordinationTask, agentCount int) Topology {
	if task.Complexity > 0.8 && !task.TimeCritical {
		return TopologyCollective
	}
	if agentCount > 5 && task.Complexity > 0.5 {
		return TopologyHierarchical
	}
	if task.TimeCritical {
		return TopologyMesh
	}
	return TopologyHierarchical
}
