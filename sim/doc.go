// Package sim provides the SD-WAN traffic steering environment.
//
// # Reading Guide
//
// Start with these files to understand the step pipeline:
//   - overlay.go: Overlays, the NetworkState store, and the observation vector
//   - arrival.go: Poisson arrivals and flow sizing per branch
//   - service.go: capacity-constrained service with per-request step budgets
//   - reward.go: branch and team reward, congestion flags
//   - env.go: Reset/Step and the per-step info record
//
// # Step Pipeline
//
// Every Step refreshes capacity, decodes the joint action into the overlays
// branch A and branch B route onto, generates arrivals for those two overlays,
// serves every overlay's queue, then scores the post-service state.
//
// # Determinism
//
// All traffic randomness comes from the "traffic" subsystem of the
// environment's PartitionedRNG, drawn in a fixed order: branch A's arrival
// count and flow sizes, then branch B's. Same key, config and actions give
// bit-identical trajectories.
//
// # Sub-packages
//   - sim/trace/: per-step records and per-episode summaries
//   - sim/metrics/: Prometheus observer
package sim
