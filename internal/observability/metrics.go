package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the coordination engine's Prometheus surface: agent
// activation lifecycle, swarm/hive throughput, the coordinator's mode
// selection, and the resilience layer's circuit and retry behavior.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.RecordAgentActivation("ios_developer", "success")
//	metrics.RecordCoordination("hybrid", "completed", duration.Seconds())
type Metrics struct {
	// AgentActivations counts activation attempts.
	// Labels: agent_id, result (success|error)
	AgentActivations *prometheus.CounterVec

	// ActiveAgents is a gauge of currently active agents by tier.
	// Labels: tier (core|specialists|task_specific|business_domain)
	ActiveAgents *prometheus.GaugeVec

	// CoordinationRequests counts CoordinateTask calls by the mode that
	// ran and the outcome.
	// Labels: mode (swarm|hive|hybrid), status (completed|error)
	CoordinationRequests *prometheus.CounterVec

	// CoordinationDuration measures CoordinateTask latency in seconds.
	// Labels: mode
	CoordinationDuration *prometheus.HistogramVec

	// CoordinationEfficiency tracks the efficiency score returned by
	// each coordination, feeding the same signal the EMA learning table
	// consumes internally.
	// Labels: mode
	CoordinationEfficiency *prometheus.HistogramVec

	// SwarmTasks counts CoordinateSwarmTask calls by topology and status.
	// Labels: topology (hierarchical|mesh|collective|adaptive), status
	SwarmTasks *prometheus.CounterVec

	// ActiveSwarms is a gauge of currently live swarms by topology.
	// Labels: topology
	ActiveSwarms *prometheus.GaugeVec

	// HiveDecisions counts InitiateDecision calls by voting method and
	// whether consensus was reached.
	// Labels: method (consensus|weighted|quorum|emergent), consensus_reached (true|false)
	HiveDecisions *prometheus.CounterVec

	// HiveDecisionConfidence observes the confidence of resolved
	// decisions.
	// Labels: method
	HiveDecisionConfidence *prometheus.HistogramVec

	// MemoryFragmentsStored counts Remember calls by memory type.
	// Labels: memory_type (episodic|semantic|procedural|working)
	MemoryFragmentsStored *prometheus.CounterVec

	// MemoryRecalls counts Recall calls by whether any fragment matched.
	// Labels: outcome (hit|miss)
	MemoryRecalls *prometheus.CounterVec

	// CircuitBreakerState is a gauge of each circuit's numeric state:
	// 0 = closed, 1 = half_open, 2 = open.
	// Labels: circuit
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerTrips counts closed-to-open transitions.
	// Labels: circuit
	CircuitBreakerTrips *prometheus.CounterVec

	// RetryAttempts counts each retry attempt by circuit and outcome.
	// Labels: circuit, outcome (retried|exhausted|abandoned)
	RetryAttempts *prometheus.CounterVec

	// BridgeCommands counts control-socket commands by action and
	// whether the response carried an error.
	// Labels: action, status (success|error)
	BridgeCommands *prometheus.CounterVec

	// BridgeCommandDuration measures how long each bridge action took to
	// handle, end to end.
	// Labels: action
	BridgeCommandDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers every Prometheus metric with the
// default registry. Call once at daemon startup.
func NewMetrics() *Metrics {
	return &Metrics{
		AgentActivations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hiveswarm_agent_activations_total",
				Help: "Total agent activation attempts by agent and result",
			},
			[]string{"agent_id", "result"},
		),

		ActiveAgents: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hiveswarm_active_agents",
				Help: "Current number of active agents by tier",
			},
			[]string{"tier"},
		),

		CoordinationRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hiveswarm_coordination_requests_total",
				Help: "Total coordination requests by mode and status",
			},
			[]string{"mode", "status"},
		),

		CoordinationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hiveswarm_coordination_duration_seconds",
				Help:    "Duration of CoordinateTask calls in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),

		CoordinationEfficiency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hiveswarm_coordination_efficiency_score",
				Help:    "Efficiency score reported by each coordination",
				Buckets: []float64{0.1, 0.3, 0.5, 0.7, 0.8, 0.9, 1.0},
			},
			[]string{"mode"},
		),

		SwarmTasks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hiveswarm_swarm_tasks_total",
				Help: "Total swarm coordination tasks by topology and status",
			},
			[]string{"topology", "status"},
		),

		ActiveSwarms: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hiveswarm_active_swarms",
				Help: "Current number of live swarms by topology",
			},
			[]string{"topology"},
		),

		HiveDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hiveswarm_hive_decisions_total",
				Help: "Total hive decisions by voting method and consensus outcome",
			},
			[]string{"method", "consensus_reached"},
		),

		HiveDecisionConfidence: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hiveswarm_hive_decision_confidence",
				Help:    "Confidence of resolved hive decisions",
				Buckets: []float64{0.1, 0.3, 0.5, 0.7, 0.8, 0.9, 1.0},
			},
			[]string{"method"},
		),

		MemoryFragmentsStored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hiveswarm_memory_fragments_stored_total",
				Help: "Total memory fragments stored by memory type",
			},
			[]string{"memory_type"},
		),

		MemoryRecalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hiveswarm_memory_recalls_total",
				Help: "Total memory recall queries by whether anything matched",
			},
			[]string{"outcome"},
		),

		CircuitBreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hiveswarm_circuit_breaker_state",
				Help: "Circuit breaker state by name (0=closed, 1=half_open, 2=open)",
			},
			[]string{"circuit"},
		),

		CircuitBreakerTrips: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hiveswarm_circuit_breaker_trips_total",
				Help: "Total closed-to-open circuit breaker transitions",
			},
			[]string{"circuit"},
		),

		RetryAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hiveswarm_retry_attempts_total",
				Help: "Total retry attempts by circuit and outcome",
			},
			[]string{"circuit", "outcome"},
		),

		BridgeCommands: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hiveswarm_bridge_commands_total",
				Help: "Total control-socket commands by action and status",
			},
			[]string{"action", "status"},
		),

		BridgeCommandDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hiveswarm_bridge_command_duration_seconds",
				Help:    "Duration of control-socket command handling in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"action"},
		),
	}
}

// RecordAgentActivation records an activation attempt's outcome.
func (m *Metrics) RecordAgentActivation(agentID, result string) {
	m.AgentActivations.WithLabelValues(agentID, result).Inc()
}

// SetActiveAgents sets the active-agent gauge for a tier.
func (m *Metrics) SetActiveAgents(tier string, count int) {
	m.ActiveAgents.WithLabelValues(tier).Set(float64(count))
}

// RecordCoordination records a completed CoordinateTask call.
func (m *Metrics) RecordCoordination(mode, status string, durationSeconds, efficiency float64) {
	m.CoordinationRequests.WithLabelValues(mode, status).Inc()
	m.CoordinationDuration.WithLabelValues(mode).Observe(durationSeconds)
	if status == "completed" {
		m.CoordinationEfficiency.WithLabelValues(mode).Observe(efficiency)
	}
}

// RecordSwarmTask records a CoordinateSwarmTask call.
func (m *Metrics) RecordSwarmTask(topology, status string) {
	m.SwarmTasks.WithLabelValues(topology, status).Inc()
}

// SetActiveSwarms sets the live-swarm gauge for a topology.
func (m *Metrics) SetActiveSwarms(topology string, count int) {
	m.ActiveSwarms.WithLabelValues(topology).Set(float64(count))
}

// RecordHiveDecision records a resolved hive decision.
func (m *Metrics) RecordHiveDecision(method string, consensusReached bool, confidence float64) {
	m.HiveDecisions.WithLabelValues(method, boolLabel(consensusReached)).Inc()
	m.HiveDecisionConfidence.WithLabelValues(method).Observe(confidence)
}

// RecordMemoryStore records a Remember call.
func (m *Metrics) RecordMemoryStore(memoryType string) {
	m.MemoryFragmentsStored.WithLabelValues(memoryType).Inc()
}

// RecordMemoryRecall records a Recall call and whether it matched.
func (m *Metrics) RecordMemoryRecall(matched bool) {
	outcome := "miss"
	if matched {
		outcome = "hit"
	}
	m.MemoryRecalls.WithLabelValues(outcome).Inc()
}

// Circuit breaker state gauge values, matching CircuitBreakerState's help text.
const (
	circuitStateClosedValue   = 0
	circuitStateHalfOpenValue = 1
	circuitStateOpenValue     = 2
)

// SetCircuitState records a circuit's current state and, on a
// closed-to-open transition, increments its trip counter.
func (m *Metrics) SetCircuitState(circuit, state string) {
	var value float64
	switch state {
	case "open":
		value = circuitStateOpenValue
		m.CircuitBreakerTrips.WithLabelValues(circuit).Inc()
	case "half_open":
		value = circuitStateHalfOpenValue
	default:
		value = circuitStateClosedValue
	}
	m.CircuitBreakerState.WithLabelValues(circuit).Set(value)
}

// RecordRetryAttempt records one retry attempt's outcome.
func (m *Metrics) RecordRetryAttempt(circuit, outcome string) {
	m.RetryAttempts.WithLabelValues(circuit, outcome).Inc()
}

// RecordBridgeCommand records a handled control-socket command.
func (m *Metrics) RecordBridgeCommand(action, status string, durationSeconds float64) {
	m.BridgeCommands.WithLabelValues(action, status).Inc()
	m.BridgeCommandDuration.WithLabelValues(action).Observe(durationSeconds)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
