package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAgentActivation(t *testing.T) {
	m := &Metrics{AgentActivations: newCounterVec("agent_id", "result")}
	m.RecordAgentActivation("ios_developer", "success")
	m.RecordAgentActivation("ios_developer", "success")
	m.RecordAgentActivation("ai_engineer", "error")

	if count := testutil.CollectAndCount(m.AgentActivations); count != 2 {
		t.Errorf("expected 2 label combinations, got %d", count)
	}
}

func TestSetActiveAgents(t *testing.T) {
	m := &Metrics{ActiveAgents: newGaugeVec("tier")}
	m.SetActiveAgents("core", 3)
	m.SetActiveAgents("specialists", 5)

	if count := testutil.CollectAndCount(m.ActiveAgents); count != 2 {
		t.Errorf("expected 2 tiers tracked, got %d", count)
	}
}

func TestRecordCoordination(t *testing.T) {
	m := &Metrics{
		CoordinationRequests:  newCounterVec("mode", "status"),
		CoordinationDuration:  newHistogramVec([]string{"mode"}, 0.01, 0.1, 1, 10),
		CoordinationEfficiency: newHistogramVec([]string{"mode"}, 0.1, 0.5, 0.9, 1.0),
	}
	m.RecordCoordination("hybrid", "completed", 1.5, 0.82)
	m.RecordCoordination("swarm", "error", 0.2, 0)

	if count := testutil.CollectAndCount(m.CoordinationRequests); count != 2 {
		t.Errorf("expected 2 recorded requests, got %d", count)
	}
	if count := testutil.CollectAndCount(m.CoordinationEfficiency); count != 1 {
		t.Errorf("expected efficiency observed only for completed runs, got %d", count)
	}
}

func TestRecordHiveDecision(t *testing.T) {
	m := &Metrics{
		HiveDecisions:          newCounterVec("method", "consensus_reached"),
		HiveDecisionConfidence: newHistogramVec([]string{"method"}, 0.1, 0.5, 0.9, 1.0),
	}
	m.RecordHiveDecision("consensus", true, 0.91)
	m.RecordHiveDecision("quorum", false, 0.4)

	if count := testutil.CollectAndCount(m.HiveDecisions); count != 2 {
		t.Errorf("expected 2 decision outcomes, got %d", count)
	}
}

func TestRecordMemoryRecall(t *testing.T) {
	m := &Metrics{MemoryRecalls: newCounterVec("outcome")}
	m.RecordMemoryRecall(true)
	m.RecordMemoryRecall(true)
	m.RecordMemoryRecall(false)

	if count := testutil.CollectAndCount(m.MemoryRecalls); count != 2 {
		t.Errorf("expected hit and miss label combinations, got %d", count)
	}
}

func TestSetCircuitState(t *testing.T) {
	m := &Metrics{
		CircuitBreakerState: newGaugeVec("circuit"),
		CircuitBreakerTrips: newCounterVec("circuit"),
	}
	m.SetCircuitState("agent_coordination", "closed")
	m.SetCircuitState("agent_coordination", "open")
	m.SetCircuitState("agent_coordination", "half_open")

	if got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("agent_coordination")); got != circuitStateHalfOpenValue {
		t.Errorf("expected gauge to reflect the last state set, got %v", got)
	}
	if got := testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("agent_coordination")); got != 1 {
		t.Errorf("expected exactly one trip recorded, got %v", got)
	}
}

func TestRecordBridgeCommand(t *testing.T) {
	m := &Metrics{
		BridgeCommands:        newCounterVec("action", "status"),
		BridgeCommandDuration: newHistogramVec([]string{"action"}, 0.001, 0.01, 0.1, 1),
	}
	m.RecordBridgeCommand("swarm_execute", "success", 0.05)
	m.RecordBridgeCommand("swarm_execute", "error", 0.01)

	if count := testutil.CollectAndCount(m.BridgeCommands); count != 2 {
		t.Errorf("expected 2 bridge command outcomes, got %d", count)
	}
}
