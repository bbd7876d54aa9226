package hive

import (
	"context"
	"testing"
	"time"

	"github.com/haasonsaas/hiveswarm/internal/registry"
	"github.com/haasonsaas/hiveswarm/internal/rng"
)

func TestBuildExpertiseVector_MatchesDomainSubstrings(t *testing.T) {
	vec := BuildExpertiseVector([]string{"backend_architecture", "ai_ml_research"}, rng.Fixed(0.5))
	devIdx := domainIndex(t, "development")
	if vec[devIdx] <= 0 {
		t.Fatalf("expected development dimension to be near 1.0 (noise aside), got %f", vec[devIdx])
	}
	bizIdx := domainIndex(t, "business")
	if vec[bizIdx] > 0.5 {
		t.Fatalf("expected business dimension to stay near 0.0, got %f", vec[bizIdx])
	}
}

func domainIndex(t *testing.T, name string) int {
	t.Helper()
	for i, d := range Domains {
		if d == name {
			return i
		}
	}
	t.Fatalf("domain %s not found", name)
	return -1
}

func TestCosineSimilarity_IdenticalVectorsAreOne(t *testing.T) {
	var v [DIM]float64
	v[0] = 1
	v[1] = 1
	if sim := CosineSimilarity(v, v); sim < 0.999 {
		t.Fatalf("expected ~1.0 for identical vectors, got %f", sim)
	}
}

func TestInitNodes_ConnectsSimilarNodes(t *testing.T) {
	reg := registry.New(nil)
	if err := reg.Register(registry.AgentConfig{AgentID: "a1", Capability: registry.Capability{SpecializationDomains: []string{"development", "deployment"}}}); err != nil {
		t.Fatalf("register a1: %v", err)
	}
	if err := reg.Register(registry.AgentConfig{AgentID: "a2", Capability: registry.Capability{SpecializationDomains: []string{"development", "deployment"}}}); err != nil {
		t.Fatalf("register a2: %v", err)
	}

	e := NewEngine(reg, nil, WithNoiseSource(rng.Fixed(0.5)))
	nodeIDs, err := e.InitNodes([]string{"a1", "a2"}, nil)
	if err != nil {
		t.Fatalf("InitNodes: %v", err)
	}
	if len(nodeIDs) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodeIDs))
	}

	nodes := e.nodeList()
	if len(nodes[0].Connections()) == 0 {
		t.Fatal("expected nodes with matching capabilities to be connected")
	}
}

func TestInitiateDecision_ConsensusReached(t *testing.T) {
	reg := registry.New(nil)
	for _, id := range []string{"a1", "a2", "a3", "a4"} {
		if err := reg.Register(registry.AgentConfig{AgentID: id, Capability: registry.Capability{SpecializationDomains: []string{"development"}}}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	e := NewEngine(reg, nil,
		WithNoiseSource(rng.Fixed(0.0)),
		WithDeliberationSource(rng.Fixed(0.0)),
		WithSleep(func(context.Context, time.Duration) {}),
	)
	if _, err := e.InitNodes([]string{"a1", "a2", "a3", "a4"}, nil); err != nil {
		t.Fatalf("InitNodes: %v", err)
	}

	options := []Option{
		{ID: "opt_a", Description: "Option A"},
		{ID: "opt_b", Description: "Option B"},
	}
	outcome, err := e.InitiateDecision(context.Background(), "d1", "which way?", options, MethodConsensus, time.Second)
	if err != nil {
		t.Fatalf("InitiateDecision: %v", err)
	}
	if outcome.Winner == "" {
		t.Fatal("expected a winning option")
	}
}

func TestResolveQuorum_InsufficientParticipationFails(t *testing.T) {
	decision := newDecision("d1", "q", []Option{{ID: "a"}}, MethodQuorum, []string{"a1", "a2", "a3", "a4", "a5"})
	decision.addVote(Vote{NodeID: "node_a1", ChosenOption: "a", Confidence: 0.9, VoteTimestamp: time.Now()})

	outcome := resolve(decision, map[string]*Node{})
	if outcome.FailureReason != "insufficient participation" {
		t.Fatalf("expected insufficient participation failure, got %+v", outcome)
	}
}

func TestResolveWeighted_PicksHighestWeightedSum(t *testing.T) {
	decision := newDecision("d1", "q", []Option{{ID: "a"}, {ID: "b"}}, MethodWeighted, []string{"a1", "a2"})
	decision.addVote(Vote{NodeID: "node_a1", ChosenOption: "a", Confidence: 0.9})
	decision.addVote(Vote{NodeID: "node_a2", ChosenOption: "b", Confidence: 0.3})

	nodesByID := map[string]*Node{
		"node_a1": {NodeID: "node_a1", InfluenceScore: 1.0},
		"node_a2": {NodeID: "node_a2", InfluenceScore: 1.0},
	}
	outcome := resolve(decision, nodesByID)
	if outcome.Winner != "a" {
		t.Fatalf("expected option a to win, got %s", outcome.Winner)
	}
}

func TestMemoryStore_StoreAndRecall(t *testing.T) {
	store := NewMemoryStore(nil)
	id, err := store.Store("the forest canopy is dense", MemoryEpisodic, []string{"a1"}, 0.8)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty fragment id")
	}

	results, err := store.Recall("dense forest canopy", "", 0.0)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].AccessCount != 1 {
		t.Fatalf("expected access_count incremented to 1, got %d", results[0].AccessCount)
	}
}

func TestMemoryStore_RecallDropsBelowRelevanceFloor(t *testing.T) {
	store := NewMemoryStore(nil)
	if _, err := store.Store("completely unrelated content about spreadsheets", MemoryWorking, nil, 0.9); err != nil {
		t.Fatalf("store: %v", err)
	}
	results, err := store.Recall("forest canopy density assessment", "", 0.0)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no matches above relevance floor, got %d", len(results))
	}
}

func TestMemoryStore_DecayDropsStaleFragments(t *testing.T) {
	now := time.Now()
	clock := now
	store := NewMemoryStore(func() time.Time { return clock })

	id, err := store.Store("stale content", MemoryWorking, nil, 0.9)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	clock = now.Add(500 * time.Hour)
	store.DecayMemory()

	if _, ok := store.Get(id); ok {
		t.Fatal("expected fragment to be dropped after extreme decay")
	}
}

func TestIsEmergentPattern_RequiresRecentHighConfidenceConsensus(t *testing.T) {
	reg := registry.New(nil)
	e := NewEngine(reg, nil)

	key := signatureKey{method: MethodConsensus, participantCount: 3}
	for i := 0; i < 3; i++ {
		e.historyByKey[key] = append(e.historyByKey[key], Signature{
			Method: MethodConsensus, ParticipantCount: 3, ConsensusReached: true, Confidence: 0.9,
		})
	}
	if !e.IsEmergentPattern(MethodConsensus, 3) {
		t.Fatal("expected emergent pattern to be detected")
	}
}
