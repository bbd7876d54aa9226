package mcp

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// toolDef binds one MCP tool to the control-bridge action that
// implements it. A tool's JSON arguments are passed through to the
// bridge verbatim as the action's params, so there is exactly one
// place (internal/bridge) that decodes and validates them.
//
// action is left empty for the one tool (get_swarm_status) whose
// bridge action depends on the arguments given; statusAction resolves
// it at call time.
type toolDef struct {
	name        string
	description string
	action      string
	argsShape   any
}

// toolset mirrors the eight tools the coordination engine's original
// MCP server exposed (swarm_create, swarm_coordinate, hive_decide,
// hive_remember, hive_recall, collaborate, get_swarm_status,
// list_agents), each renamed here only where the control bridge's own
// action name differs (swarm_coordinate -> swarm_execute,
// list_agents -> agent_list).
var toolset = []toolDef{
	{"swarm_create", "Create a new agent swarm with a topology and a set of agent IDs.", "swarm_create", &swarmCreateArgs{}},
	{"swarm_coordinate", "Coordinate a task across an existing swarm and return its result.", "swarm_execute", &swarmCoordinateArgs{}},
	{"hive_decide", "Run a collective decision (consensus/weighted/quorum/emergent) across hive agents.", "hive_decide", &hiveDecideArgs{}},
	{"hive_remember", "Store a memory in the collective hive memory.", "hive_remember", &hiveRememberArgs{}},
	{"hive_recall", "Recall memories from the collective hive memory matching a query.", "hive_recall", &hiveRecallArgs{}},
	{"collaborate", "Run the hybrid plan-execute-validate collaboration pipeline on a task.", "collaborate", &collaborateArgs{}},
	{"get_swarm_status", "Get the status of one swarm, or a summary of all swarms if swarm_id is omitted.", "", &swarmStatusArgs{}},
	{"list_agents", "List registered agents, optionally filtered by category.", "agent_list", &listAgentsArgs{}},
}

type swarmCreateArgs struct {
	SwarmID  string   `json:"swarm_id"`
	Topology string   `json:"topology"` // hierarchical | mesh | collective | adaptive
	Agents   []string `json:"agents"`
}

type swarmCoordinateArgs struct {
	SwarmID              string   `json:"swarm_id"`
	Task                 string   `json:"task"`
	Complexity           float64  `json:"complexity,omitempty"`
	TimeCritical         bool     `json:"time_critical,omitempty"`
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
}

type hiveDecideArgs struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Agents   []string `json:"agents"`
	Method   string   `json:"method,omitempty"` // consensus | weighted | quorum | emergent
	Timeout  float64  `json:"timeout,omitempty"`
}

type hiveRememberArgs struct {
	Content      any      `json:"content"`
	MemoryType   string   `json:"memory_type,omitempty"` // working | episodic | semantic | collective
	Contributors []string `json:"contributors"`
	Confidence   float64  `json:"confidence,omitempty"`
}

type hiveRecallArgs struct {
	Query         string  `json:"query"`
	MemoryType    string  `json:"memory_type,omitempty"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
}

type collaborateArgs struct {
	Task     string   `json:"task"`
	Agents   []string `json:"agents"`
	Mode     string   `json:"mode,omitempty"` // swarm_only | hive_only | swarm_hive_hybrid | adaptive_selection
	Topology string   `json:"topology,omitempty"`
}

type swarmStatusArgs struct {
	SwarmID string `json:"swarm_id,omitempty"`
}

type listAgentsArgs struct {
	Category  string `json:"category,omitempty"`
	Available bool   `json:"available,omitempty"`
	Active    bool   `json:"active,omitempty"`
}

// statusAction picks the bridge action for get_swarm_status: a single
// swarm's detail if swarm_id is given, the full swarm list otherwise.
func statusAction(arguments json.RawMessage) string {
	var probe swarmStatusArgs
	if len(arguments) > 0 {
		_ = json.Unmarshal(arguments, &probe)
	}
	if probe.SwarmID != "" {
		return "swarm_status"
	}
	return "swarm_list"
}

func buildTools() ([]MCPTool, map[string]toolDef) {
	r := &jsonschema.Reflector{}
	tools := make([]MCPTool, 0, len(toolset))
	byName := make(map[string]toolDef, len(toolset))
	for _, t := range toolset {
		schema, err := json.Marshal(r.Reflect(t.argsShape))
		if err != nil {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		tools = append(tools, MCPTool{Name: t.name, Description: t.description, InputSchema: schema})
		byName[t.name] = t
	}
	return tools, byName
}
