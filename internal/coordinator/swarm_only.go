package coordinator

import (
	"context"
	"fmt"

	"github.com/haasonsaas/hiveswarm/internal/swarm"
)

const maxSwarmOnlyAgents = 8

// chooseSwarmOnlyTopology selects a topology purely from task features,
// per the swarm-only component design (distinct from the adaptive
// strategy's own internal topology choice).
func chooseSwarmOnlyTopology(task Task) swarm.Topology {
	switch {
	case task.Complexity > 0.8:
		return swarm.TopologyCollective
	case task.TimeCritical:
		return swarm.TopologyMesh
	case len(task.RequiredCapabilities) > 6:
		return swarm.TopologyHierarchical
	default:
		return swarm.TopologyAdaptive
	}
}

// runSwarmOnly forms a fresh, capped swarm from FindByCapabilities,
// coordinates the task exactly once, and dissolves the swarm without
// saving its memory (the coordinator keeps its own learning table).
func (c *Coordinator) runSwarmOnly(ctx context.Context, task Task) (Result, error) {
	candidates := c.registry.FindByCapabilities(task.RequiredCapabilities)
	if len(candidates) > maxSwarmOnlyAgents {
		candidates = candidates[:maxSwarmOnlyAgents]
	}

	swarmID := fmt.Sprintf("swarm-only-%s", task.TaskID)
	topology := chooseSwarmOnlyTopology(task)

	if _, err := c.swarms.CreateSwarm(ctx, swarmID, topology, candidates); err != nil {
		return Result{}, err
	}
	defer func() { _, _ = c.swarms.DissolveSwarm(swarmID, false) }()

	swarmResult, err := c.swarms.CoordinateSwarmTask(ctx, swarmID, task)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Mode:            ModeSwarm,
		EfficiencyScore: swarmResult.EfficiencyScore,
		Detail: map[string]any{
			"topology": topology,
			"agents":   candidates,
			"result":   swarmResult.Result,
		},
	}, nil
}
