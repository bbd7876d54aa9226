package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/hiveswarm/internal/coordinator"
	"github.com/haasonsaas/hiveswarm/internal/hive"
	"github.com/haasonsaas/hiveswarm/internal/infra"
	"github.com/haasonsaas/hiveswarm/internal/resilience"
	"github.com/haasonsaas/hiveswarm/internal/swarm"
)

// Handlers dispatches control-socket commands against one coordinator
// (and, through it, the registry, swarm engine, and hive engine it
// owns).
type Handlers struct {
	coord  *coordinator.Coordinator
	res    *resilience.Engine
	health *infra.HealthCheckRegistry
}

// NewHandlers builds a dispatcher over coord. res may be nil; when set,
// its circuit registry backs the circuit_status and health actions.
func NewHandlers(coord *coordinator.Coordinator, res *resilience.Engine) *Handlers {
	h := &Handlers{coord: coord, res: res, health: infra.NewHealthCheckRegistry()}
	h.health.RegisterSimple("registry", func(ctx context.Context) error {
		if len(coord.Registry().List()) == 0 {
			return fmt.Errorf("no agents registered")
		}
		return nil
	})
	if res != nil {
		h.health.RegisterSimple("circuits", func(ctx context.Context) error {
			for _, s := range res.Circuits().AllStats() {
				if s.State == resilience.StateOpen {
					return fmt.Errorf("circuit %s is open", s.Name)
				}
			}
			return nil
		})
	}
	return h
}

// Handle dispatches a single decoded command to its action handler.
// Unknown actions and malformed params never panic; both yield an
// {"error": ...} response, per the bridge's "never drop the connection
// on a domain error" contract.
func (h *Handlers) Handle(ctx context.Context, cmd Command) Response {
	switch cmd.Action {
	case "swarm_create":
		return h.swarmCreate(ctx, cmd.Params)
	case "swarm_execute":
		return h.swarmExecute(ctx, cmd.Params)
	case "swarm_status":
		return h.swarmStatus(cmd.Params)
	case "swarm_dissolve":
		return h.swarmDissolve(cmd.Params)
	case "swarm_list":
		return h.swarmList(cmd.Params)
	case "hive_init":
		return h.hiveInit(cmd.Params)
	case "hive_decide":
		return h.hiveDecide(ctx, cmd.Params)
	case "hive_remember":
		return h.hiveRemember(ctx, cmd.Params)
	case "hive_recall":
		return h.hiveRecall(ctx, cmd.Params)
	case "hive_status":
		return h.hiveStatus(cmd.Params)
	case "collaborate":
		return h.collaborate(ctx, cmd.Params)
	case "agent_list":
		return h.agentList(cmd.Params)
	case "agent_info":
		return h.agentInfo(cmd.Params)
	case "schema":
		return h.schema()
	case "circuit_status":
		return h.circuitStatus()
	case "health":
		return h.healthCheck(ctx)
	default:
		return errorResponse(fmt.Sprintf("Unknown action: %s", cmd.Action))
	}
}

func decodeParams[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, resilience.Wrap(resilience.KindInvalidInput, "invalid params", err)
	}
	return out, nil
}

func validTopology(t string) bool {
	switch swarm.Topology(t) {
	case swarm.TopologyHierarchical, swarm.TopologyMesh, swarm.TopologyCollective, swarm.TopologyAdaptive:
		return true
	}
	return false
}

func validMethod(m string) bool {
	switch hive.Method(m) {
	case hive.MethodConsensus, hive.MethodWeighted, hive.MethodQuorum, hive.MethodEmergent:
		return true
	}
	return false
}

func validMemoryType(m string) bool {
	if m == "" {
		return true
	}
	switch hive.MemoryType(m) {
	case hive.MemoryWorking, hive.MemoryEpisodic, hive.MemorySemantic, hive.MemoryCollective:
		return true
	}
	return false
}

func (h *Handlers) swarmCreate(ctx context.Context, raw json.RawMessage) Response {
	params, err := decodeParams[swarmCreateParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}
	if params.ID == "" {
		return errorResponse("id is required")
	}
	if !validTopology(params.Topology) {
		return errorResponse("invalid topology: " + params.Topology)
	}

	s, err := h.coord.Swarms().CreateSwarm(ctx, params.ID, swarm.Topology(params.Topology), params.Agents)
	if err != nil {
		return errorResponse(err.Error())
	}

	agentIDs := make([]string, 0, len(s.Agents()))
	for _, a := range s.Agents() {
		agentIDs = append(agentIDs, a.AgentID)
	}

	return success(Response{
		"swarm_id": s.SwarmID,
		"topology": string(s.Topology),
		"agents":   agentIDs,
		"status":   "created",
	})
}

func (h *Handlers) swarmExecute(ctx context.Context, raw json.RawMessage) Response {
	params, err := decodeParams[swarmExecuteParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}
	if params.SwarmID == "" {
		return errorResponse("swarm_id is required")
	}

	callCtx := ctx
	if params.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(params.TimeoutSeconds*float64(time.Second)))
		defer cancel()
	}

	task := swarm.CoordinationTask{
		TaskID:               fmt.Sprintf("%s-%s", params.SwarmID, uuid.NewString()),
		Description:          params.Task,
		Complexity:           params.Complexity,
		RequiredCapabilities: params.RequiredCapabilities,
		TimeCritical:         params.TimeCritical,
		Metadata:             params.Metadata,
	}

	result, err := h.coord.Swarms().CoordinateSwarmTask(callCtx, params.SwarmID, task)
	if err != nil {
		return errorResponse(err.Error())
	}

	return success(Response{
		"swarm_id": params.SwarmID,
		"task":     params.Task,
		"result":   flattenSwarmResult(result),
	})
}

// flattenSwarmResult hoists the topology-specific payload (e.g.
// queen_agent for hierarchical, winner for mesh) up to the top level of
// the result object alongside status/approach/efficiency_score, so a
// caller can read result.queen_agent directly.
func flattenSwarmResult(r swarm.Result) Response {
	out := Response{
		"status":           r.Status,
		"approach":         r.Approach,
		"efficiency_score": r.EfficiencyScore,
	}
	if m, ok := r.Result.(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	} else if r.Result != nil {
		out["detail"] = r.Result
	}
	if len(r.Extra) > 0 {
		out["extra"] = r.Extra
	}
	return out
}

func (h *Handlers) swarmStatus(raw json.RawMessage) Response {
	params, err := decodeParams[swarmStatusParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}
	status, err := h.coord.Swarms().GetSwarmStatus(params.SwarmID)
	if err != nil {
		return errorResponse(err.Error())
	}
	return success(Response{"status": swarmStatusToMap(status)})
}

func swarmStatusToMap(s swarm.Status) Response {
	agents := make([]Response, 0, len(s.Agents))
	for _, a := range s.Agents {
		agents = append(agents, Response{
			"agent_id": a.AgentID,
			"role":     string(a.Role),
			"load":     a.Load,
			"trust":    a.Trust,
		})
	}
	return Response{
		"swarm_id":   s.SwarmID,
		"topology":   string(s.Topology),
		"health":     s.Health,
		"created_at": s.CreatedAt,
		"agents":     agents,
	}
}

func (h *Handlers) swarmDissolve(raw json.RawMessage) Response {
	params, err := decodeParams[swarmDissolveParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}
	saved, err := h.coord.Swarms().DissolveSwarm(params.SwarmID, params.SaveResults)
	if err != nil {
		return errorResponse(err.Error())
	}
	return success(Response{"swarm_id": params.SwarmID, "results_saved": saved})
}

func (h *Handlers) swarmList(raw json.RawMessage) Response {
	params, err := decodeParams[swarmListParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}
	ids := h.coord.Swarms().List()

	if !params.Detailed {
		return success(Response{"swarms": ids, "total": len(ids)})
	}

	detailed := make([]Response, 0, len(ids))
	for _, id := range ids {
		status, err := h.coord.Swarms().GetSwarmStatus(id)
		if err != nil {
			continue
		}
		detailed = append(detailed, swarmStatusToMap(status))
	}
	return success(Response{"swarms": detailed, "total": len(detailed)})
}

func (h *Handlers) hiveInit(raw json.RawMessage) Response {
	params, err := decodeParams[hiveInitParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}
	nodeIDs, err := h.coord.Hive().InitNodes(params.Agents, params.Capabilities)
	if err != nil {
		return errorResponse(err.Error())
	}
	return success(Response{"nodes_created": len(nodeIDs), "node_ids": nodeIDs})
}

func (h *Handlers) hiveDecide(ctx context.Context, raw json.RawMessage) Response {
	params, err := decodeParams[hiveDecideParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}
	if !validMethod(params.Method) {
		return errorResponse("invalid method: " + params.Method)
	}
	if len(params.Options) == 0 {
		return errorResponse("options is required")
	}

	options := make([]hive.Option, len(params.Options))
	for i, opt := range params.Options {
		options[i] = hive.Option{ID: opt, Description: opt}
	}

	timeout := 300 * time.Second
	if params.TimeoutSeconds > 0 {
		timeout = time.Duration(params.TimeoutSeconds * float64(time.Second))
	}

	decisionID := "decision-" + uuid.NewString()
	outcome, err := h.coord.Hive().InitiateDecision(ctx, decisionID, params.Question, options, hive.Method(params.Method), timeout)
	if err != nil {
		return errorResponse(err.Error())
	}

	return success(Response{
		"decision_id":       decisionID,
		"options":           params.Options,
		"method":            params.Method,
		"winner":            outcome.Winner,
		"consensus_reached": outcome.ConsensusReached,
		"confidence":        outcome.Confidence,
		"failure_reason":    outcome.FailureReason,
	})
}

func (h *Handlers) hiveRemember(ctx context.Context, raw json.RawMessage) Response {
	params, err := decodeParams[hiveRememberParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}
	if !validMemoryType(params.MemoryType) {
		return errorResponse("invalid memory_type: " + params.MemoryType)
	}
	memType := hive.MemoryType(params.MemoryType)
	if memType == "" {
		memType = hive.MemoryWorking
	}
	confidence := params.Confidence
	if confidence == 0 {
		confidence = 0.7
	}

	fragmentID, err := h.coord.Hive().Remember(ctx, params.Content, memType, params.Contributors, confidence)
	if err != nil {
		return errorResponse(err.Error())
	}
	return success(Response{"memory_id": fragmentID, "type": string(memType), "contributors": params.Contributors})
}

func (h *Handlers) hiveRecall(ctx context.Context, raw json.RawMessage) Response {
	params, err := decodeParams[hiveRecallParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}
	if !validMemoryType(params.MemoryType) {
		return errorResponse("invalid memory_type: " + params.MemoryType)
	}

	fragments, err := h.coord.Hive().Recall(ctx, params.Query, hive.MemoryType(params.MemoryType), params.MinConfidence)
	if err != nil {
		return errorResponse(err.Error())
	}

	results := make([]Response, 0, len(fragments))
	for _, f := range fragments {
		results = append(results, Response{
			"fragment_id":     f.FragmentID,
			"content_preview": contentPreview(f.Content),
			"confidence":      f.ConfidenceScore,
			"type":            string(f.MemoryType),
			"contributors":    f.Contributors,
			"access_count":    f.AccessCount,
		})
	}
	return success(Response{"memories_found": len(results), "results": results})
}

func contentPreview(content any) string {
	var text string
	switch v := content.(type) {
	case string:
		text = v
	default:
		payload, err := json.Marshal(v)
		if err == nil {
			text = string(payload)
		}
	}
	const maxPreview = 200
	if len(text) > maxPreview {
		return text[:maxPreview]
	}
	return text
}

func (h *Handlers) hiveStatus(raw json.RawMessage) Response {
	_, err := decodeParams[hiveStatusParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}
	status := h.coord.Hive().GetStatus()
	return success(Response{"status": Response{
		"node_count":       status.NodeCount,
		"memory_fragments": status.MemoryFragments,
		"active_decisions": status.ActiveDecisions,
	}})
}

func (h *Handlers) collaborate(ctx context.Context, raw json.RawMessage) Response {
	params, err := decodeParams[collaborateParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}

	task := swarm.CoordinationTask{
		TaskID:           "collab-" + uuid.NewString(),
		Description:      params.Task,
		CoordinationMode: params.Mode,
	}
	if params.Topology != "" {
		task.Metadata = map[string]any{"topology": params.Topology}
	}

	start := time.Now()
	result, err := h.coord.CoordinateTask(ctx, task)
	if err != nil {
		return errorResponse(err.Error())
	}
	duration := time.Since(start).Seconds()

	return success(Response{
		"task":     params.Task,
		"agents":   params.Agents,
		"mode":     string(result.Mode),
		"duration": duration,
		"result":   result.Detail,
	})
}

func (h *Handlers) agentList(raw json.RawMessage) Response {
	params, err := decodeParams[agentListParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}

	reg := h.coord.Registry()
	configs := reg.List()

	agents := make([]Response, 0, len(configs))
	for _, cfg := range configs {
		if params.Category != "" && string(cfg.Tier) != params.Category {
			continue
		}
		active := reg.IsActive(cfg.AgentID)
		if params.Active && !active {
			continue
		}
		entry := Response{
			"id":     cfg.AgentID,
			"name":   cfg.Name,
			"tier":   string(cfg.Tier),
			"status": activeLabel(active),
		}
		if len(cfg.Capability.SpecializationDomains) > 0 {
			entry["capabilities"] = cfg.Capability.SpecializationDomains
		}
		agents = append(agents, entry)
	}

	return success(Response{"agents": agents, "total": len(agents)})
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func (h *Handlers) agentInfo(raw json.RawMessage) Response {
	params, err := decodeParams[agentInfoParams](raw)
	if err != nil {
		return errorResponse(err.Error())
	}
	cfg, ok := h.coord.Registry().Get(params.Agent)
	if !ok {
		return errorResponse(resilience.New(resilience.KindUnknownAgent, "unknown agent: "+params.Agent).Error())
	}

	return success(Response{"agent": Response{
		"id":                    cfg.AgentID,
		"name":                  cfg.Name,
		"tier":                  string(cfg.Tier),
		"coordination_priority": cfg.CoordinationPriority,
		"capabilities":          cfg.Capability.SpecializationDomains,
		"status":                activeLabel(h.coord.Registry().IsActive(cfg.AgentID)),
	}})
}

// schema is a supplemented introspection action returning the full
// action table, so a client can discover the protocol without reading
// source.
func (h *Handlers) schema() Response {
	return success(Response{"actions": []string{
		"swarm_create", "swarm_execute", "swarm_status", "swarm_dissolve", "swarm_list",
		"hive_init", "hive_decide", "hive_remember", "hive_recall", "hive_status",
		"collaborate", "agent_list", "agent_info", "schema", "circuit_status", "health",
	}})
}

// healthCheck is a supplemented diagnostic action running the registry
// and circuit-breaker liveness checks and reporting the aggregate
// status a process supervisor would poll.
func (h *Handlers) healthCheck(ctx context.Context) Response {
	report := h.health.CheckAll(ctx)
	checks := make([]Response, 0, len(report.Checks))
	for _, c := range report.Checks {
		checks = append(checks, Response{
			"name":       c.Name,
			"status":     string(c.Status),
			"message":    c.Message,
			"latency_ms": c.Latency.Milliseconds(),
		})
	}
	return success(Response{"status": string(report.Status), "checks": checks})
}

// circuitStatus is a supplemented diagnostic action reporting the
// resilience engine's known circuit breakers and their current state.
func (h *Handlers) circuitStatus() Response {
	if h.res == nil {
		return success(Response{"circuits": []Response{}})
	}
	stats := h.res.Circuits().AllStats()
	out := make([]Response, 0, len(stats))
	for _, s := range stats {
		out = append(out, Response{
			"name":      s.Name,
			"state":     s.State,
			"failures":  s.Failures,
			"successes": s.Successes,
		})
	}
	return success(Response{"circuits": out})
}
