// Package trace provides step-trace recording for episode-level analysis.
// This package has no dependencies on sim/ — it stores pure data types.
package trace

// NumOverlays mirrors the overlay count of the environment.
const NumOverlays = 3

// StepRecord captures one environment step. Arrays are in canonical overlay order.
type StepRecord struct {
	Step        int
	JointAction int
	RewardA     float64
	RewardB     float64
	Total       float64
	Congested   [NumOverlays]bool
	BW          [NumOverlays]float64
	Loss        [NumOverlays]int
	QueueLen    [NumOverlays]int
	Completions [NumOverlays]int
	Terminated  bool
}
