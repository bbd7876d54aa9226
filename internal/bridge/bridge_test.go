package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/haasonsaas/hiveswarm/internal/coordinator"
	"github.com/haasonsaas/hiveswarm/internal/hive"
	"github.com/haasonsaas/hiveswarm/internal/registry"
	"github.com/haasonsaas/hiveswarm/internal/rng"
	"github.com/haasonsaas/hiveswarm/internal/swarm"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	reg := registry.New(nil)
	if err := registry.LoadDefaults(reg); err != nil {
		t.Fatalf("load defaults: %v", err)
	}

	proposer := swarm.ProposerFunc(func(ctx context.Context, agent *swarm.SwarmAgent, task swarm.CoordinationTask) (swarm.Proposal, error) {
		return swarm.Proposal{AgentID: agent.AgentID, Confidence: 0.9, Content: "proposal from " + agent.AgentID}, nil
	})
	swarms := swarm.NewEngine(reg, proposer, nil)
	hiveEngine := hive.NewEngine(reg, nil,
		hive.WithNoiseSource(rng.Fixed(0.0)),
		hive.WithDeliberationSource(rng.Fixed(0.0)),
		hive.WithSleep(func(context.Context, time.Duration) {}),
	)
	coord := coordinator.New(reg, swarms, hiveEngine, nil)
	return NewHandlers(coord, nil)
}

func call(t *testing.T, h *Handlers, action string, params any) Response {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return h.Handle(context.Background(), Command{Action: action, Params: raw})
}

func TestHandle_UnknownAction(t *testing.T) {
	h := newTestHandlers(t)
	resp := h.Handle(context.Background(), Command{Action: "does_not_exist"})
	if resp["error"] != "Unknown action: does_not_exist" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestSwarmCreate_IsIdempotent(t *testing.T) {
	h := newTestHandlers(t)
	params := map[string]any{
		"id":       "s1",
		"topology": "hierarchical",
		"agents":   []string{"project_supervisor_orchestrator", "ios_developer"},
	}

	first := call(t, h, "swarm_create", params)
	second := call(t, h, "swarm_create", params)

	if first["swarm_id"] != "s1" || second["swarm_id"] != "s1" {
		t.Fatalf("expected both calls to report swarm_id s1: %v / %v", first, second)
	}
	firstAgents, _ := first["agents"].([]string)
	secondAgents, _ := second["agents"].([]string)
	if len(firstAgents) != 2 || len(secondAgents) != 2 {
		t.Fatalf("expected agent membership unchanged across idempotent create: %v / %v", first, second)
	}
}

func TestSwarmCreate_InvalidTopology(t *testing.T) {
	h := newTestHandlers(t)
	resp := call(t, h, "swarm_create", map[string]any{"id": "bad", "topology": "not-a-topology", "agents": []string{}})
	if _, ok := resp["error"]; !ok {
		t.Fatalf("expected error for invalid topology, got %v", resp)
	}
}

// TestSwarmExecute_HierarchicalReturnsQueenAgent mirrors the hierarchical
// single-task scenario: registering the defaults, creating a
// hierarchical swarm, and executing one task should surface
// result.queen_agent at the top level of the response.
func TestSwarmExecute_HierarchicalReturnsQueenAgent(t *testing.T) {
	h := newTestHandlers(t)
	call(t, h, "swarm_create", map[string]any{
		"id":       "s1",
		"topology": "hierarchical",
		"agents":   []string{"project_supervisor_orchestrator", "ios_developer", "ai_engineer"},
	})

	resp := call(t, h, "swarm_execute", map[string]any{"swarm_id": "s1", "task": "build ios ai app"})
	if _, ok := resp["error"]; ok {
		t.Fatalf("unexpected error: %v", resp)
	}

	result, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result object, got %v", resp)
	}
	if result["status"] != "completed" {
		t.Fatalf("expected status completed, got %v", result["status"])
	}
	if result["approach"] != "hierarchical" {
		t.Fatalf("expected approach hierarchical, got %v", result["approach"])
	}
	if result["queen_agent"] != "project_supervisor_orchestrator" {
		t.Fatalf("expected queen_agent project_supervisor_orchestrator, got %v", result["queen_agent"])
	}
}

func TestSwarmExecute_UnknownSwarm(t *testing.T) {
	h := newTestHandlers(t)
	resp := call(t, h, "swarm_execute", map[string]any{"swarm_id": "nope", "task": "x"})
	if _, ok := resp["error"]; !ok {
		t.Fatalf("expected error for unknown swarm, got %v", resp)
	}
}

func TestSwarmDissolveAndList(t *testing.T) {
	h := newTestHandlers(t)
	call(t, h, "swarm_create", map[string]any{"id": "s1", "topology": "mesh", "agents": []string{"ios_developer"}})

	listed := call(t, h, "swarm_list", map[string]any{})
	swarms, _ := listed["swarms"].([]string)
	if len(swarms) != 1 || swarms[0] != "s1" {
		t.Fatalf("expected swarm_list to report s1, got %v", listed)
	}

	dissolved := call(t, h, "swarm_dissolve", map[string]any{"swarm_id": "s1", "save_results": true})
	if dissolved["results_saved"] != true {
		t.Fatalf("expected results_saved true, got %v", dissolved)
	}

	listedAfter := call(t, h, "swarm_list", map[string]any{})
	if listedAfter["total"] != 0 {
		t.Fatalf("expected no swarms after dissolve, got %v", listedAfter)
	}
}

// TestHiveRememberRecall_RoundTrip mirrors the recall-filtering scenario:
// a high-confidence fragment should be found by a matching query and
// absent for an unrelated one.
func TestHiveRememberRecall_RoundTrip(t *testing.T) {
	h := newTestHandlers(t)
	remembered := call(t, h, "hive_remember", map[string]any{
		"content":     "AI development needs testing",
		"memory_type": "semantic",
		"confidence":  0.9,
	})
	if _, ok := remembered["error"]; ok {
		t.Fatalf("unexpected error: %v", remembered)
	}

	matching := call(t, h, "hive_recall", map[string]any{"query": "AI testing", "min_confidence": 0.8})
	if matching["memories_found"] != 1 {
		t.Fatalf("expected exactly one matching fragment, got %v", matching)
	}

	unrelated := call(t, h, "hive_recall", map[string]any{"query": "unrelated topic", "min_confidence": 0.8})
	if unrelated["memories_found"] != 0 {
		t.Fatalf("expected no matches for unrelated query, got %v", unrelated)
	}
}

func TestHiveDecide_InvalidMethod(t *testing.T) {
	h := newTestHandlers(t)
	resp := call(t, h, "hive_decide", map[string]any{
		"question": "which approach?",
		"options":  []string{"a", "b"},
		"method":   "not-a-method",
	})
	if _, ok := resp["error"]; !ok {
		t.Fatalf("expected error for invalid method, got %v", resp)
	}
}

func TestHiveDecide_ResolvesConsensus(t *testing.T) {
	h := newTestHandlers(t)
	call(t, h, "hive_init", map[string]any{"agents": []string{"ios_developer", "ai_engineer", "backend_architect"}})

	resp := call(t, h, "hive_decide", map[string]any{
		"question": "which approach?",
		"options":  []string{"a", "b"},
		"method":   "consensus",
	})
	if _, ok := resp["error"]; ok {
		t.Fatalf("unexpected error: %v", resp)
	}
	if resp["method"] != "consensus" {
		t.Fatalf("expected method echoed back, got %v", resp["method"])
	}
	if _, ok := resp["confidence"]; !ok {
		t.Fatalf("expected a confidence field, got %v", resp)
	}
}

func TestAgentList_FiltersByActive(t *testing.T) {
	h := newTestHandlers(t)
	all := call(t, h, "agent_list", map[string]any{})
	if all["total"] != 8 {
		t.Fatalf("expected 8 default agents, got %v", all["total"])
	}

	_, err := h.coord.Registry().Activate("ios_developer", nil)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	active := call(t, h, "agent_list", map[string]any{"active": true})
	if active["total"] != 1 {
		t.Fatalf("expected 1 active agent, got %v", active)
	}
}

func TestAgentInfo_UnknownAgent(t *testing.T) {
	h := newTestHandlers(t)
	resp := call(t, h, "agent_info", map[string]any{"agent": "nope"})
	if _, ok := resp["error"]; !ok {
		t.Fatalf("expected error for unknown agent, got %v", resp)
	}
}

func TestSchemaListsActions(t *testing.T) {
	h := newTestHandlers(t)
	resp := call(t, h, "schema", map[string]any{})
	actions, ok := resp["actions"].([]string)
	if !ok || len(actions) == 0 {
		t.Fatalf("expected a non-empty action list, got %v", resp)
	}
}

func TestHealthCheck_HealthyWithRegisteredAgents(t *testing.T) {
	h := newTestHandlers(t)
	resp := call(t, h, "health", map[string]any{})
	if resp["status"] != "healthy" {
		t.Fatalf("expected healthy status, got %v", resp)
	}
	checks, ok := resp["checks"].([]Response)
	if !ok || len(checks) == 0 {
		t.Fatalf("expected at least one check, got %v", resp)
	}
}

func TestServer_NewlineFramedProtocol(t *testing.T) {
	h := newTestHandlers(t)
	socketPath := filepath.Join(t.TempDir(), "bridge.sock")
	srv := NewServer(socketPath, h)

	ctx, cancel := context.WithCancel(context.Background())
	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- srv.Serve(ctx) }()

	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("unix", socketPath)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["error"] != "Invalid JSON command" {
		t.Fatalf("expected malformed-json error, got %v", resp)
	}

	cmd, _ := json.Marshal(Command{Action: "schema"})
	if _, err := conn.Write(append(cmd, '\n')); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err = reader.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["success"] != true {
		t.Fatalf("expected success, got %v", resp)
	}

	cancel()
	if err := <-serveErrCh; err != nil {
		t.Fatalf("serve returned error: %v", err)
	}
}
