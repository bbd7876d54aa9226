package coordinator

// selectMode implements the mode-selection table: an explicit, non-
// adaptive coordination_mode on the task is honored as-is; otherwise the
// decision runs down the table in order.
func selectMode(task Task, ema *emaTable) Mode {
	if task.CoordinationMode != "" && task.CoordinationMode != "adaptive" {
		return Mode(task.CoordinationMode)
	}

	capsCount := len(task.RequiredCapabilities)

	if task.Complexity > 0.7 && !task.TimeCritical {
		return ModeHybrid
	}
	if task.TimeCritical && capsCount <= 5 {
		return ModeSwarm
	}
	if capsCount > 8 {
		return ModeHive
	}
	if task.Complexity < 0.3 {
		swarmEff, swarmOK := ema.get("swarm_avg_efficiency")
		hiveEff, hiveOK := ema.get("hive_avg_efficiency")
		switch {
		case swarmOK && hiveOK:
			if swarmEff >= hiveEff {
				return ModeSwarm
			}
			return ModeHive
		case swarmOK:
			return ModeSwarm
		case hiveOK:
			return ModeHive
		default:
			return ModeSwarm
		}
	}
	return ModeHybrid
}
