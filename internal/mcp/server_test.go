package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/hiveswarm/internal/bridge"
	"github.com/haasonsaas/hiveswarm/internal/coordinator"
	"github.com/haasonsaas/hiveswarm/internal/hive"
	"github.com/haasonsaas/hiveswarm/internal/registry"
	"github.com/haasonsaas/hiveswarm/internal/rng"
	"github.com/haasonsaas/hiveswarm/internal/swarm"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := registry.New(nil)
	if err := registry.LoadDefaults(reg); err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	proposer := swarm.ProposerFunc(func(ctx context.Context, agent *swarm.SwarmAgent, task swarm.CoordinationTask) (swarm.Proposal, error) {
		return swarm.Proposal{AgentID: agent.AgentID, Confidence: 0.9, Content: "ok"}, nil
	})
	swarms := swarm.NewEngine(reg, proposer, nil)
	hiveEngine := hive.NewEngine(reg, nil,
		hive.WithNoiseSource(rng.Fixed(0.0)),
		hive.WithDeliberationSource(rng.Fixed(0.0)),
		hive.WithSleep(func(context.Context, time.Duration) {}),
	)
	coord := coordinator.New(reg, swarms, hiveEngine, nil)
	return NewServer(bridge.NewHandlers(coord, nil), nil)
}

func runLines(t *testing.T, s *Server, lines ...string) []JSONRPCResponse {
	t.Helper()
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	if err := s.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	var responses []JSONRPCResponse
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp JSONRPCResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response %q: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func TestInitialize_ReportsServerInfo(t *testing.T) {
	s := newTestServer(t)
	resp := runLines(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	if len(resp) != 1 || resp[0].Error != nil {
		t.Fatalf("expected one successful response, got %+v", resp)
	}

	result, err := json.Marshal(resp[0].Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var init InitializeResult
	if err := json.Unmarshal(result, &init); err != nil {
		t.Fatalf("unmarshal initialize result: %v", err)
	}
	if init.ServerInfo.Name != "hiveswarmd" {
		t.Fatalf("expected server name hiveswarmd, got %q", init.ServerInfo.Name)
	}
}

func TestNotification_GetsNoResponse(t *testing.T) {
	s := newTestServer(t)
	resp := runLines(t, s, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	if len(resp) != 0 {
		t.Fatalf("expected no response to a notification, got %+v", resp)
	}
}

func TestToolsList_ReturnsEightTools(t *testing.T) {
	s := newTestServer(t)
	resp := runLines(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	if len(resp) != 1 || resp[0].Error != nil {
		t.Fatalf("expected one successful response, got %+v", resp)
	}

	raw, _ := json.Marshal(resp[0].Result)
	var listed ListToolsResult
	if err := json.Unmarshal(raw, &listed); err != nil {
		t.Fatalf("unmarshal tools/list result: %v", err)
	}
	if len(listed.Tools) != len(toolset) {
		t.Fatalf("expected %d tools, got %d", len(toolset), len(listed.Tools))
	}
	for _, tool := range listed.Tools {
		if len(tool.InputSchema) == 0 {
			t.Fatalf("tool %s missing an input schema", tool.Name)
		}
	}
}

func TestToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)
	resp := runLines(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"not_a_tool","arguments":{}}}`)
	if len(resp) != 1 || resp[0].Error == nil {
		t.Fatalf("expected a tool-not-found error, got %+v", resp)
	}
	if resp[0].Error.Code != ErrCodeToolNotFound {
		t.Fatalf("expected ErrCodeToolNotFound, got %d", resp[0].Error.Code)
	}
}

func TestToolsCall_SwarmCreateAndCoordinate(t *testing.T) {
	s := newTestServer(t)
	resp := runLines(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"swarm_create","arguments":{"swarm_id":"s1","topology":"mesh","agents":["ios_developer"]}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"swarm_coordinate","arguments":{"swarm_id":"s1","task":"ship the feature"}}}`,
	)
	if len(resp) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(resp))
	}

	for _, r := range resp {
		if r.Error != nil {
			t.Fatalf("unexpected JSON-RPC error: %+v", r.Error)
		}
		raw, _ := json.Marshal(r.Result)
		var call ToolCallResult
		if err := json.Unmarshal(raw, &call); err != nil {
			t.Fatalf("unmarshal tool call result: %v", err)
		}
		if call.IsError {
			t.Fatalf("expected a successful tool result, got %+v", call)
		}
		if len(call.Content) != 1 || call.Content[0].Type != "text" {
			t.Fatalf("expected one text content block, got %+v", call.Content)
		}
	}
}

func TestToolsCall_GetSwarmStatus_ResolvesAction(t *testing.T) {
	s := newTestServer(t)
	resp := runLines(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"swarm_create","arguments":{"swarm_id":"s1","topology":"mesh","agents":["ios_developer"]}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_swarm_status","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_swarm_status","arguments":{"swarm_id":"s1"}}}`,
	)
	if len(resp) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(resp))
	}

	listRaw, _ := json.Marshal(resp[1].Result)
	var listCall ToolCallResult
	if err := json.Unmarshal(listRaw, &listCall); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(listCall.Content[0].Text, `"swarms"`) {
		t.Fatalf("expected swarm_list shape (no swarm_id), got %s", listCall.Content[0].Text)
	}

	statusRaw, _ := json.Marshal(resp[2].Result)
	var statusCall ToolCallResult
	if err := json.Unmarshal(statusRaw, &statusCall); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(statusCall.Content[0].Text, `"swarm_id":"s1"`) {
		t.Fatalf("expected swarm_status shape (with swarm_id), got %s", statusCall.Content[0].Text)
	}
}

func TestToolsCall_BridgeErrorBecomesIsError(t *testing.T) {
	s := newTestServer(t)
	resp := runLines(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"swarm_coordinate","arguments":{"swarm_id":"missing","task":"x"}}}`)
	if len(resp) != 1 || resp[0].Error != nil {
		t.Fatalf("expected a JSON-RPC-level success carrying a domain error, got %+v", resp)
	}

	raw, _ := json.Marshal(resp[0].Result)
	var call ToolCallResult
	if err := json.Unmarshal(raw, &call); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !call.IsError {
		t.Fatalf("expected IsError for an unknown swarm, got %+v", call)
	}
}

func TestMalformedLine_ReturnsParseError(t *testing.T) {
	s := newTestServer(t)
	resp := runLines(t, s, `not json`)
	if len(resp) != 1 || resp[0].Error == nil || resp[0].Error.Code != ErrCodeParseError {
		t.Fatalf("expected a parse error response, got %+v", resp)
	}
}
