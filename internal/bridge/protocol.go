// Package bridge implements the control socket: a newline-framed JSON
// protocol that exposes the registry, swarm engine, hive engine, and
// coordinator to an external client over a Unix domain socket.
package bridge

import "encoding/json"

// Command is one line of client input: an action name plus its
// action-specific parameters, deserialized permissively (unknown fields
// are ignored; each handler validates only the fields it needs).
type Command struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// Response is always a flat JSON object: either success plus
// domain-specific fields, or an error message. Handlers build it
// directly as a map so field names match the wire contract exactly.
type Response = map[string]any

func errorResponse(message string) Response {
	return Response{"error": message}
}

func success(fields Response) Response {
	if fields == nil {
		fields = Response{}
	}
	fields["success"] = true
	return fields
}

type swarmCreateParams struct {
	ID       string   `json:"id"`
	Topology string   `json:"topology"`
	Agents   []string `json:"agents"`
}

type swarmExecuteParams struct {
	SwarmID              string         `json:"swarm_id"`
	Task                 string         `json:"task"`
	TimeoutSeconds       float64        `json:"timeout"`
	Complexity           float64        `json:"complexity"`
	RequiredCapabilities []string       `json:"required_capabilities"`
	TimeCritical         bool           `json:"time_critical"`
	Metadata             map[string]any `json:"metadata"`
}

type swarmStatusParams struct {
	SwarmID string `json:"swarm_id"`
}

type swarmDissolveParams struct {
	SwarmID     string `json:"swarm_id"`
	SaveResults bool   `json:"save_results"`
}

type swarmListParams struct {
	Detailed bool `json:"detailed"`
}

type hiveInitParams struct {
	Agents       []string `json:"agents"`
	Capabilities []string `json:"capabilities"`
}

type hiveDecideParams struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	Method         string   `json:"method"`
	TimeoutSeconds float64  `json:"timeout"`
}

type hiveRememberParams struct {
	Content      any      `json:"content"`
	MemoryType   string   `json:"memory_type"`
	Contributors []string `json:"contributors"`
	Confidence   float64  `json:"confidence"`
}

type hiveRecallParams struct {
	Query         string  `json:"query"`
	MemoryType    string  `json:"memory_type"`
	MinConfidence float64 `json:"min_confidence"`
}

type hiveStatusParams struct {
	Nodes     bool `json:"nodes"`
	Memory    bool `json:"memory"`
	Decisions bool `json:"decisions"`
}

type collaborateParams struct {
	Task     string   `json:"task"`
	Agents   []string `json:"agents"`
	Mode     string   `json:"mode"`
	Topology string   `json:"topology"`
}

type agentListParams struct {
	Category  string `json:"category"`
	Available bool   `json:"available"`
	Active    bool   `json:"active"`
}

type agentInfoParams struct {
	Agent string `json:"agent"`
}
