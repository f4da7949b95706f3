package sim

// RewardBreakdown itemizes one branch's reward.
//
// BaselineCapacity (the static service rate of the branch's overlay) and
// Latency are carried for reward shaping experiments; Latency enters Reward
// only through a non-zero RewardConfig.LatencyWeight and BaselineCapacity
// never does.
type RewardBreakdown struct {
	Capacity         float64 // weighted post-step available capacity
	Loss             float64 // weighted loss count
	Completion       float64 // weighted completions
	Latency          float64 // weighted latency
	BaselineCapacity float64
	Reward           float64
}

// BranchReward scores the post-processing state of overlay o for a branch that
// routed onto it and saw completions finish there this step.
func (rc RewardConfig) BranchReward(o *Overlay, completions int) RewardBreakdown {
	rb := RewardBreakdown{
		Capacity:         rc.CapacityWeight * o.AvailableCapacity,
		Loss:             rc.LossWeight * float64(o.Loss),
		Completion:       rc.CompletionWeight * float64(completions),
		Latency:          rc.LatencyWeight * o.Latency,
		BaselineCapacity: o.ServiceRate,
	}
	rb.Reward = rb.Capacity - rb.Loss + rb.Completion - rb.Latency
	return rb
}

// TeamReward combines the two branch rewards according to Mix.
func (rc RewardConfig) TeamReward(rewardA, rewardB float64) float64 {
	if rc.Mix == RewardMixWeighted {
		return rc.Lambda*rewardA + (1-rc.Lambda)*rewardB
	}
	return rewardA + rewardB
}

// congestionFlags evaluates the congestion threshold on every overlay.
func (ns *NetworkState) congestionFlags(threshold float64) [NumOverlays]bool {
	var flags [NumOverlays]bool
	for i, o := range ns.overlays {
		flags[i] = o.Congested(threshold)
	}
	return flags
}
