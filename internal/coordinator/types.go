// Package coordinator implements the swarm-hive coordinator: mode
// selection between the swarm and hive engines, the hybrid plan-execute-
// validate pipeline, and EMA-smoothed efficiency learning.
package coordinator

import (
	"sync"

	"github.com/haasonsaas/hiveswarm/internal/swarm"
)

// Mode selects which engine(s) handle a coordination task.
type Mode string

const (
	ModeSwarm  Mode = "swarm"
	ModeHive   Mode = "hive"
	ModeHybrid Mode = "hybrid"
)

// Task is an alias for the swarm package's task shape, which already
// carries every field the component design names for CoordinationTask.
type Task = swarm.CoordinationTask

// Result is what CoordinateTask returns to a caller.
type Result struct {
	Mode            Mode
	EfficiencyScore float64
	DurationSeconds float64
	Detail          map[string]any
}

// emaTable is the metric_key -> float smoothed table, alpha=0.1,
// bootstrapped on first observation with the raw value.
type emaTable struct {
	mu     sync.RWMutex
	values map[string]float64
}

const emaAlpha = 0.1

func newEMATable() *emaTable {
	return &emaTable{values: make(map[string]float64)}
}

func (t *emaTable) update(key string, observation float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.values[key]
	if !ok {
		t.values[key] = observation
		return observation
	}
	next := emaAlpha*observation + (1-emaAlpha)*prev
	t.values[key] = next
	return next
}

func (t *emaTable) get(key string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[key]
	return v, ok
}
