package coordinator

import (
	"context"
	"time"

	"github.com/haasonsaas/hiveswarm/internal/hive"
	"github.com/haasonsaas/hiveswarm/internal/registry"
	"github.com/haasonsaas/hiveswarm/internal/resilience"
	"github.com/haasonsaas/hiveswarm/internal/swarm"
)

// Coordinator uniquely owns a swarm engine and a hive engine and
// arbitrates between them (or combines both, via the hybrid pipeline)
// for every coordination task it's given.
type Coordinator struct {
	registry   *registry.Registry
	swarms     *swarm.Engine
	hiveEngine *hive.Engine
	res        *resilience.Engine
	ema        *emaTable
}

// New builds a Coordinator over already-constructed swarm and hive
// engines sharing the same registry.
func New(reg *registry.Registry, swarms *swarm.Engine, hiveEngine *hive.Engine, res *resilience.Engine) *Coordinator {
	return &Coordinator{
		registry:   reg,
		swarms:     swarms,
		hiveEngine: hiveEngine,
		res:        res,
		ema:        newEMATable(),
	}
}

// CoordinateTask selects a mode (honoring an explicit, non-adaptive
// coordination_mode on the task) and runs it, updating the EMA learning
// table with the observed efficiency and duration.
func (c *Coordinator) CoordinateTask(ctx context.Context, task Task) (Result, error) {
	mode := selectMode(task, c.ema)

	start := time.Now()
	var result Result
	var err error

	switch mode {
	case ModeSwarm:
		result, err = c.runSwarmOnly(ctx, task)
	case ModeHive:
		result, err = c.runHiveOnly(ctx, task)
	default:
		result, err = c.runHybrid(ctx, task)
	}

	duration := time.Since(start).Seconds()
	if err != nil {
		return Result{}, err
	}

	result.Mode = mode
	result.DurationSeconds = duration
	c.recordLearning(mode, result.EfficiencyScore, duration)

	return result, nil
}

// Swarms exposes the underlying swarm engine, e.g. for bridge actions
// that operate on swarms directly (swarm_create, swarm_status, ...).
func (c *Coordinator) Swarms() *swarm.Engine { return c.swarms }

// Hive exposes the underlying hive engine, e.g. for bridge actions that
// operate on hive state directly (hive_recall, hive_status, ...).
func (c *Coordinator) Hive() *hive.Engine { return c.hiveEngine }

// Registry exposes the shared agent registry.
func (c *Coordinator) Registry() *registry.Registry { return c.registry }
