package coordinator

import (
	"context"
	"math"

	"github.com/haasonsaas/hiveswarm/internal/hive"
)

// runHybrid sequences plan (hive-only), execute (swarm-only carrying the
// plan forward), and validate (a hive record reconciling the two) into
// one coordination result.
func (c *Coordinator) runHybrid(ctx context.Context, task Task) (Result, error) {
	planTask := task
	planTask.TaskID = task.TaskID + "-plan"
	planTask.RequiredCapabilities = unionFirstThree(task.RequiredCapabilities)
	planTask.Complexity = task.Complexity * 0.7

	plan, err := c.runHiveOnly(ctx, planTask)
	if err != nil {
		return Result{}, err
	}

	execTask := task
	execTask.TaskID = task.TaskID + "-execute"
	if execTask.Metadata == nil {
		execTask.Metadata = map[string]any{}
	}
	if planDecisionID, ok := plan.Detail["decision_id"]; ok {
		execTask.Metadata["plan_memory_id"] = planDecisionID
	}

	execution, err := c.runSwarmOnly(ctx, execTask)
	if err != nil {
		return Result{}, err
	}

	alignment := 1 - math.Abs(plan.EfficiencyScore-execution.EfficiencyScore)
	validationConfidence := alignment * 0.9

	if _, err := c.hiveEngine.Remember(ctx, map[string]any{
		"original":  task.Description,
		"plan":      plan.Detail,
		"execution": execution.Detail,
	}, hive.MemoryEpisodic, nil, validationConfidence); err != nil {
		return Result{}, err
	}

	efficiency := 0.3*plan.EfficiencyScore + 0.5*execution.EfficiencyScore + 0.2*validationConfidence

	return Result{
		Mode:            ModeHybrid,
		EfficiencyScore: efficiency,
		Detail: map[string]any{
			"plan":                  plan.Detail,
			"execution":             execution.Detail,
			"alignment":             alignment,
			"validation_confidence": validationConfidence,
		},
	}, nil
}

// unionFirstThree builds {"coordination","planning"} ∪ caps[:3], the
// fixed capability set the plan phase's decision runs over.
func unionFirstThree(caps []string) []string {
	seen := map[string]bool{"coordination": true, "planning": true}
	out := []string{"coordination", "planning"}
	limit := 3
	if len(caps) < limit {
		limit = len(caps)
	}
	for _, c := range caps[:limit] {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
