package coordinator

import (
	"context"

	"github.com/haasonsaas/hiveswarm/internal/hive"
	"github.com/haasonsaas/hiveswarm/internal/swarm"
)

// PersistentGroup is a swarm plus its matching hive nodes that survives
// across multiple CoordinateTask calls, rather than the throwaway swarms
// and nodes the swarm-only and hive-only strategies create per task.
type PersistentGroup struct {
	SwarmID        string
	FormationFragmentID string
}

// CreatePersistentSwarmHive creates one swarm and ensures hive nodes
// exist for every member agent, then records a high-confidence episodic
// formation fragment.
func (c *Coordinator) CreatePersistentSwarmHive(ctx context.Context, id string, agentIDs []string, topology swarm.Topology) (PersistentGroup, error) {
	if _, err := c.swarms.CreateSwarm(ctx, id, topology, agentIDs); err != nil {
		return PersistentGroup{}, err
	}
	if _, err := c.hiveEngine.InitNodes(agentIDs, nil); err != nil {
		return PersistentGroup{}, err
	}

	fragmentID, err := c.hiveEngine.Remember(ctx, map[string]any{
		"formation": id,
		"agents":    agentIDs,
		"topology":  topology,
	}, hive.MemoryEpisodic, agentIDs, 1.0)
	if err != nil {
		return PersistentGroup{}, err
	}

	return PersistentGroup{SwarmID: id, FormationFragmentID: fragmentID}, nil
}
