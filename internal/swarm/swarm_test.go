package swarm

import (
	"context"
	"testing"
	"time"

	"github.com/haasonsaas/hiveswarm/internal/registry"
	"github.com/haasonsaas/hiveswarm/internal/resilience"
)

func TestAssignRole_Hierarchical(t *testing.T) {
	cases := []struct {
		priority int
		domains  []string
		want     Role
	}{
		{95, nil, RoleQueen},
		{80, []string{"orchestration"}, RoleCoordinator},
		{80, []string{"research"}, RoleScout},
		{80, []string{"forestry_economics"}, RoleSpecialist},
	}
	for _, c := range cases {
		got := AssignRole(TopologyHierarchical, c.priority, c.domains)
		if got != c.want {
			t.Errorf("priority=%d domains=%v: want %s, got %s", c.priority, c.domains, c.want, got)
		}
	}
}

func TestAssignRole_MeshAndCollectiveAndAdaptive(t *testing.T) {
	if got := AssignRole(TopologyMesh, 50, []string{"coordination"}); got != RoleCoordinator {
		t.Errorf("mesh+coordination: want coordinator, got %s", got)
	}
	if got := AssignRole(TopologyMesh, 50, nil); got != RoleWorker {
		t.Errorf("mesh default: want worker, got %s", got)
	}
	if got := AssignRole(TopologyCollective, 95, nil); got != RoleWorker {
		t.Errorf("collective: want worker, got %s", got)
	}
	if got := AssignRole(TopologyAdaptive, 95, nil); got != RoleCoordinator {
		t.Errorf("adaptive: want coordinator, got %s", got)
	}
}

func TestChooseAdaptiveTopology(t *testing.T) {
	cases := []struct {
		name       string
		task       CoordinationTask
		agentCount int
		want       Topology
	}{
		{"high complexity not urgent", CoordinationTask{Complexity: 0.9}, 3, TopologyCollective},
		{"large complex swarm", CoordinationTask{Complexity: 0.6}, 6, TopologyHierarchical},
		{"time critical wins over size", CoordinationTask{Complexity: 0.6, TimeCritical: true}, 6, TopologyMesh},
		{"default", CoordinationTask{Complexity: 0.2}, 2, TopologyHierarchical},
	}
	for _, c := range cases {
		if got := chooseAdaptiveTopology(c.task, c.agentCount); got != c.want {
			t.Errorf("%s: want %s, got %s", c.name, c.want, got)
		}
	}
}

func stubProposer(confidence float64) Proposer {
	return ProposerFunc(func(ctx context.Context, agent *SwarmAgent, task CoordinationTask) (Proposal, error) {
		return Proposal{AgentID: agent.AgentID, Confidence: confidence, Content: "ok:" + agent.AgentID}, nil
	})
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New(nil)
	if err := LoadTestAgents(r); err != nil {
		t.Fatalf("load test agents: %v", err)
	}
	return r
}

// LoadTestAgents populates a registry with a small fixed agent set for
// swarm-engine tests, independent of the production default roster.
func LoadTestAgents(r *registry.Registry) error {
	agents := []registry.AgentConfig{
		{AgentID: "queen1", CoordinationPriority: 95, Capability: registry.Capability{SpecializationDomains: []string{"orchestration"}}},
		{AgentID: "worker1", CoordinationPriority: 50, Capability: registry.Capability{SpecializationDomains: []string{"a", "b"}}},
		{AgentID: "worker2", CoordinationPriority: 40, Capability: registry.Capability{SpecializationDomains: []string{"b", "c"}}},
	}
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			return err
		}
	}
	return nil
}

func TestEngine_CreateSwarmIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	e := NewEngine(r, stubProposer(0.8), nil)

	s1, err := e.CreateSwarm(context.Background(), "s1", TopologyHierarchical, []string{"queen1", "worker1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s2, err := e.CreateSwarm(context.Background(), "s1", TopologyMesh, []string{"worker2"})
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if s1 != s2 {
		t.Fatal("expected idempotent create to return the same swarm")
	}
	if s1.Topology != TopologyHierarchical {
		t.Fatalf("expected original topology to be kept, got %s", s1.Topology)
	}
}

func TestEngine_CoordinateSwarmTask_Hierarchical(t *testing.T) {
	r := newTestRegistry(t)
	e := NewEngine(r, stubProposer(0.9), nil)

	_, err := e.CreateSwarm(context.Background(), "s1", TopologyHierarchical, []string{"queen1", "worker1", "worker2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := e.CoordinateSwarmTask(context.Background(), "s1", CoordinationTask{
		TaskID:               "t1",
		Description:          "do the thing",
		RequiredCapabilities: []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("coordinate: %v", err)
	}
	if result.Status != "completed" {
		t.Fatalf("expected completed, got %s", result.Status)
	}

	s, _ := e.Get("s1")
	mem := s.CollectiveMemory()
	if _, ok := mem["t1"]; !ok {
		t.Fatal("expected collective_memory entry for task t1")
	}
}

func TestEngine_CoordinateSwarmTask_UnknownSwarm(t *testing.T) {
	r := newTestRegistry(t)
	e := NewEngine(r, stubProposer(0.9), nil)
	_, err := e.CoordinateSwarmTask(context.Background(), "missing", CoordinationTask{TaskID: "t1"})
	if resilience.KindOf(err) != resilience.KindUnknownSwarm {
		t.Fatalf("expected KindUnknownSwarm, got %v", err)
	}
}

func TestEngine_DissolveSwarm_ArchivesMemory(t *testing.T) {
	r := newTestRegistry(t)
	e := NewEngine(r, stubProposer(0.9), nil)
	_, err := e.CreateSwarm(context.Background(), "s1", TopologyMesh, []string{"worker1", "worker2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.CoordinateSwarmTask(context.Background(), "s1", CoordinationTask{TaskID: "t1"}); err != nil {
		t.Fatalf("coordinate: %v", err)
	}

	saved, err := e.DissolveSwarm("s1", true)
	if err != nil {
		t.Fatalf("dissolve: %v", err)
	}
	if !saved {
		t.Fatal("expected saved=true")
	}
	if _, ok := e.Get("s1"); ok {
		t.Fatal("expected swarm to be removed")
	}
	hist, ok := e.History("s1")
	if !ok || len(hist) == 0 {
		t.Fatal("expected archived history for s1")
	}
}

func TestEngine_GetSwarmStatus(t *testing.T) {
	r := newTestRegistry(t)
	e := NewEngine(r, stubProposer(0.9), nil)
	if _, err := e.CreateSwarm(context.Background(), "s1", TopologyMesh, []string{"worker1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	status, err := e.GetSwarmStatus("s1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(status.Agents) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(status.Agents))
	}
	if status.Agents[0].Trust != 0.8 {
		t.Fatalf("expected default trust 0.8, got %f", status.Agents[0].Trust)
	}
}

func TestEngine_CreateSwarm_RejectsPastMaxConcurrentSwarms(t *testing.T) {
	r := registry.New(nil)
	if err := r.Register(registry.AgentConfig{
		AgentID:              "limited1",
		CoordinationPriority: 50,
		ResourceRequirements: map[string]any{"max_concurrent_swarms": 1},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	e := NewEngine(r, stubProposer(0.8), nil)

	if _, err := e.CreateSwarm(context.Background(), "s1", TopologyMesh, []string{"limited1"}); err != nil {
		t.Fatalf("create s1: %v", err)
	}

	_, err := e.CreateSwarm(context.Background(), "s2", TopologyMesh, []string{"limited1"})
	if resilience.KindOf(err) != resilience.KindResourceExhausted {
		t.Fatalf("expected KindResourceExhausted, got %v", err)
	}
}

func TestEngine_CoordinateSwarmTask_RespectsConcurrencyLimit(t *testing.T) {
	r := newTestRegistry(t)
	e := NewEngine(r, stubProposer(0.8), nil)
	e.SetConcurrencyLimit(1)

	if _, err := e.CreateSwarm(context.Background(), "s1", TopologyMesh, []string{"worker1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.inFlight.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := e.CoordinateSwarmTask(ctx, "s1", CoordinationTask{TaskID: "t1"})
	if resilience.KindOf(err) != resilience.KindResourceExhausted {
		t.Fatalf("expected KindResourceExhausted once the limit is held, got %v", err)
	}
}

func TestRunMesh_PicksHighestWeightedProposal(t *testing.T) {
	r := newTestRegistry(t)
	e := NewEngine(r, nil, nil)
	s, err := e.CreateSwarm(context.Background(), "mesh1", TopologyMesh, []string{"worker1", "worker2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	proposer := ProposerFunc(func(ctx context.Context, agent *SwarmAgent, task CoordinationTask) (Proposal, error) {
		conf := 0.5
		if agent.AgentID == "worker1" {
			conf = 0.95
		}
		return Proposal{AgentID: agent.AgentID, Confidence: conf, Content: agent.AgentID}, nil
	})

	result, err := runMesh(context.Background(), s, CoordinationTask{TaskID: "t"}, proposer)
	if err != nil {
		t.Fatalf("runMesh: %v", err)
	}
	out, ok := result.Result.(map[string]any)
	if !ok || out["winner"] != "worker1" {
		t.Fatalf("expected worker1 to win, got %+v", result.Result)
	}
}
