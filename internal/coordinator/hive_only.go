package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/haasonsaas/hiveswarm/internal/hive"
)

const maxHiveOnlyAgents = 10

// canonicalOptions builds the 3-4 canonical execution-strategy options a
// hive-only decision chooses between: parallel, sequential, and hybrid
// always; ai_assisted is added when "ai" is among the task's required
// capabilities.
func canonicalOptions(task Task) []hive.Option {
	options := []hive.Option{
		{ID: "parallel", Description: "execute subtasks in parallel"},
		{ID: "sequential", Description: "execute subtasks sequentially"},
		{ID: "hybrid", Description: "execute in staged parallel batches"},
	}
	for _, capability := range task.RequiredCapabilities {
		if capability == "ai" {
			options = append(options, hive.Option{ID: "ai_assisted", Description: "route through an AI-assisted strategy"})
			break
		}
	}
	return options
}

// chooseDecisionMethod implements the hive-only method-selection table.
func chooseDecisionMethod(task Task) hive.Method {
	switch {
	case task.TimeCritical:
		return hive.MethodWeighted
	case task.Complexity > 0.8:
		return hive.MethodEmergent
	case len(task.RequiredCapabilities) > 6:
		return hive.MethodQuorum
	default:
		return hive.MethodConsensus
	}
}

func decisionBudget(task Task) time.Duration {
	if task.TimeCritical {
		return 120 * time.Second
	}
	return 300 * time.Second
}

// runHiveOnly ensures a hive node for each selected, capped agent,
// records a working-memory fragment describing the task, runs a
// decision over the canonical strategy options, and reports the
// decision's confidence as the efficiency score.
func (c *Coordinator) runHiveOnly(ctx context.Context, task Task) (Result, error) {
	candidates := c.registry.FindByCapabilities(task.RequiredCapabilities)
	if len(candidates) > maxHiveOnlyAgents {
		candidates = candidates[:maxHiveOnlyAgents]
	}

	if _, err := c.hiveEngine.InitNodes(candidates, nil); err != nil {
		return Result{}, err
	}

	if _, err := c.hiveEngine.Remember(ctx, map[string]any{
		"task_description":     task.Description,
		"required_capabilities": task.RequiredCapabilities,
		"complexity":            task.Complexity,
	}, hive.MemoryWorking, candidates, 0.7); err != nil {
		return Result{}, err
	}

	options := canonicalOptions(task)
	method := chooseDecisionMethod(task)
	decisionID := fmt.Sprintf("hive-only-%s", task.TaskID)

	outcome, err := c.hiveEngine.InitiateDecision(ctx, decisionID, task.Description, options, method, decisionBudget(task))
	if err != nil {
		return Result{}, err
	}

	return Result{
		Mode:            ModeHive,
		EfficiencyScore: outcome.Confidence,
		Detail: map[string]any{
			"decision_id":       decisionID,
			"method":            method,
			"winner":            outcome.Winner,
			"consensus_reached": outcome.ConsensusReached,
		},
	}, nil
}
