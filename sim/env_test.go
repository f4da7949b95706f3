package sim

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T, cfg EnvConfig, seed int64) *Environment {
	t.Helper()
	env, err := NewEnvironment(cfg, NewSimulationKey(seed))
	require.NoError(t, err)
	env.Reset()
	return env
}

// recordingObserver keeps the order of notifications it receives.
type recordingObserver struct {
	events []string
	steps  []int
}

func (r *recordingObserver) OnReset(_ Observation) { r.events = append(r.events, "reset") }
func (r *recordingObserver) OnStep(res StepResult) {
	r.events = append(r.events, "step")
	r.steps = append(r.steps, res.Info.Step)
}

func TestNewEnvironment_InvalidConfig_ReturnsError(t *testing.T) {
	cfg := DefaultEnvConfig()
	cfg.Reward.Mix = ""
	_, err := NewEnvironment(cfg, NewSimulationKey(1))
	assert.Error(t, err)
}

func TestReset_ObservationIsStaticConfig(t *testing.T) {
	// GIVEN an environment that has run a while
	env := newTestEnv(t, DefaultEnvConfig(), 42)
	for i := 0; i < 20; i++ {
		_, err := env.Step(i % NumJointActions)
		require.NoError(t, err)
	}

	// WHEN reset
	obs, info := env.Reset()

	// THEN overlays are at full capacity with zero loss and empty queues
	want := Observation{100, 10, 0, 20, 30, 0, 50, 20, 0, 0, 0, 0}
	assert.Equal(t, want, obs)
	assert.Empty(t, info)
	assert.Len(t, obs.Slice(), ObservationSize)
	assert.Equal(t, 12, ObservationSize)
}

func TestStep_TerminatesExactlyAtMaxSteps(t *testing.T) {
	// GIVEN a 30-step horizon
	cfg := DefaultEnvConfig()
	cfg.MaxSteps = 30
	env := newTestEnv(t, cfg, 42)

	// WHEN stepping through the episode
	for i := 1; i <= 30; i++ {
		res, err := env.Step(3)
		require.NoError(t, err)

		// THEN only the last step is terminal and truncation never fires
		assert.Equal(t, i == 30, res.Terminated, "step %d", i)
		assert.False(t, res.Truncated, "step %d", i)
		assert.Equal(t, i, res.Info.Step)
	}

	// AND stepping past the horizon without reset fails
	_, err := env.Step(0)
	assert.True(t, errors.Is(err, ErrEpisodeDone), "got %v", err)

	// AND reset starts a fresh episode
	env.Reset()
	res, err := env.Step(0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Info.Step)
}

func TestStep_InvalidAction_FailsWithoutStateChange(t *testing.T) {
	// GIVEN two identical environments
	env := newTestEnv(t, DefaultEnvConfig(), 5)
	ref := newTestEnv(t, DefaultEnvConfig(), 5)

	// WHEN one receives out-of-range actions first
	for _, bad := range []int{-1, 4, 17} {
		_, err := env.Step(bad)
		assert.True(t, errors.Is(err, ErrInvalidAction), "action %d: got %v", bad, err)
	}

	// THEN both still produce the same next step
	got, err := env.Step(2)
	require.NoError(t, err)
	want, err := ref.Step(2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStep_Determinism_SameSeedSameTrajectory(t *testing.T) {
	// GIVEN two independent environments with the same seed and action script
	run := func() []StepResult {
		env := newTestEnv(t, DefaultEnvConfig(), 42)
		out := make([]StepResult, 0, 3*300)
		for ep := 0; ep < 3; ep++ {
			env.Reset()
			for i := 0; i < 300; i++ {
				res, err := env.Step((i*7 + ep) % NumJointActions)
				require.NoError(t, err)
				out = append(out, res)
			}
		}
		return out
	}

	// WHEN both run three full episodes
	first, second := run(), run()

	// THEN observations, rewards and info are bit-identical
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("trajectories differ (-first +second):\n%s", diff)
	}
}

func TestStep_DifferentSeeds_Diverge(t *testing.T) {
	a := newTestEnv(t, DefaultEnvConfig(), 1)
	b := newTestEnv(t, DefaultEnvConfig(), 2)
	same := true
	for i := 0; i < 50 && same; i++ {
		ra, err := a.Step(1)
		require.NoError(t, err)
		rb, err := b.Step(1)
		require.NoError(t, err)
		same = ra.Observation == rb.Observation
	}
	assert.False(t, same, "seeds 1 and 2 produced identical 50-step trajectories")
}

func TestStep_InvariantsHoldAcrossManySteps(t *testing.T) {
	// GIVEN several seeds and a rotating action script
	cfg := DefaultEnvConfig()
	rates := [NumOverlays]float64{100, 20, 50}
	for _, seed := range []int64{1, 42, 1234} {
		env := newTestEnv(t, cfg, seed)
		for i := 0; i < 2000; i++ {
			if i%cfg.MaxSteps == 0 {
				env.Reset()
			}
			res, err := env.Step((i / 3) % NumJointActions)
			require.NoError(t, err)

			// THEN capacity stays in [0, rate], loss is non-negative and flags match capacity
			for j := 0; j < NumOverlays; j++ {
				bw := res.Observation[3*j]
				require.GreaterOrEqual(t, bw, 0.0)
				require.LessOrEqual(t, bw, rates[j])
				require.GreaterOrEqual(t, res.Observation[3*j+2], 0.0)
				require.Equal(t, bw, res.Info.BW[j])
				require.Equal(t, bw <= cfg.CongestionThreshold, res.Info.Congested[j])
				require.LessOrEqual(t, res.Observation[3*NumOverlays+j], float64(cfg.QueueCapacity))
			}
		}
	}
}

func TestStep_UnselectedOverlayGetsNoArrivals(t *testing.T) {
	// GIVEN a fresh episode
	env := newTestEnv(t, DefaultEnvConfig(), 9)

	// WHEN only joint action 1 (Overlay1, Overlay3) is played
	for i := 0; i < 50; i++ {
		res, err := env.Step(1)
		require.NoError(t, err)

		// THEN Overlay2 never sees traffic and stays idle at full capacity
		assert.Equal(t, 0, res.Info.Arrivals[Overlay2.Index()])
		assert.Equal(t, 0.0, res.Observation[3*NumOverlays+Overlay2.Index()])
		assert.Equal(t, 20.0, res.Info.BW[Overlay2.Index()])
	}
}

func TestStep_ArrivalDrawOrder_BranchAThenB(t *testing.T) {
	// GIVEN an environment with queues large enough to never overflow
	cfg := DefaultEnvConfig()
	cfg.QueueCapacity = 1000
	env := newTestEnv(t, cfg, 77)

	// AND a reference generator drawing from the same stream:
	// A's count, A's sizes, then B's count
	ref := newArrivalGenerator(NewPartitionedRNG(NewSimulationKey(77)).ForSubsystem(SubsystemTraffic), cfg.BitsPerUnit, cfg.SizeScale)
	countA := ref.poisson(cfg.Branches.A.ArrivalRate)
	for i := 0; i < countA; i++ {
		ref.poisson(cfg.Branches.A.MeanFlowSize)
	}
	countB := ref.poisson(cfg.Branches.B.ArrivalRate)

	// WHEN the first step routes A to Overlay2 and B to Overlay3
	res, err := env.Step(3)
	require.NoError(t, err)

	// THEN the per-overlay arrivals match the reference draws
	assert.Equal(t, countA, res.Info.Arrivals[Overlay2.Index()])
	assert.Equal(t, countB, res.Info.Arrivals[Overlay3.Index()])
	assert.Equal(t, 0, res.Info.Arrivals[Overlay1.Index()])
}

func TestStep_SharedOverlay_BothBranchesSeeSameState(t *testing.T) {
	// GIVEN both branches routed to Overlay1
	env := newTestEnv(t, DefaultEnvConfig(), 3)

	for i := 0; i < 20; i++ {
		res, err := env.Step(0)
		require.NoError(t, err)

		// THEN both branch rewards are equal and the weighted total matches them
		assert.Equal(t, res.Info.RewardA, res.Info.RewardB)
		assert.InDelta(t, res.Info.RewardA, res.Info.Total, 1e-9)
		assert.Equal(t, res.Info.Total, res.Reward)
	}
}

func TestStep_RewardMatchesPostStepState(t *testing.T) {
	// GIVEN the sum mixing mode
	cfg := DefaultEnvConfig()
	cfg.Reward.Mix = RewardMixSum
	env := newTestEnv(t, cfg, 21)

	for i := 0; i < 50; i++ {
		res, err := env.Step(1)
		require.NoError(t, err)

		// THEN each branch reward is bw - loss + 2*completions of its own overlay
		o1, o3 := Overlay1.Index(), Overlay3.Index()
		wantA := res.Observation[3*o1] - res.Observation[3*o1+2] + 2*float64(res.Info.Completions[o1])
		wantB := res.Observation[3*o3] - res.Observation[3*o3+2] + 2*float64(res.Info.Completions[o3])
		assert.Equal(t, wantA, res.Info.RewardA)
		assert.Equal(t, wantB, res.Info.RewardB)
		assert.Equal(t, wantA+wantB, res.Reward)
	}
}

func TestStep_ZeroServiceRateOverlay_NeverQueues(t *testing.T) {
	cfg := DefaultEnvConfig()
	cfg.Overlays.Overlay2.ServiceRate = 0
	env := newTestEnv(t, cfg, 8)

	for i := 0; i < 30; i++ {
		res, err := env.Step(2)
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.Observation[3*NumOverlays+Overlay2.Index()])
		assert.Equal(t, 0.0, res.Observation[3*Overlay2.Index()+2])
		assert.True(t, res.Info.Congested[Overlay2.Index()])
	}
}

func TestStepInfo_Map_Keys(t *testing.T) {
	env := newTestEnv(t, DefaultEnvConfig(), 42)
	res, err := env.Step(1)
	require.NoError(t, err)

	m := res.Info.Map()

	for _, key := range []string{"reward_a", "reward_b", "total", "congested1", "congested2", "congested3", "bw1", "bw2", "bw3", "joint_action"} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, 1.0, m["joint_action"])
	assert.Equal(t, res.Info.BW[2], m["bw3"])
	for _, key := range []string{"congested1", "congested2", "congested3"} {
		assert.Contains(t, []float64{0, 1}, m[key])
	}
}

func TestObservers_NotifiedInOrder(t *testing.T) {
	// GIVEN an environment with a recording observer
	env, err := NewEnvironment(DefaultEnvConfig(), NewSimulationKey(1))
	require.NoError(t, err)
	rec := &recordingObserver{}
	env.AddObserver(rec)

	// WHEN reset, two steps, and another reset happen
	env.Reset()
	_, err = env.Step(0)
	require.NoError(t, err)
	_, err = env.Step(1)
	require.NoError(t, err)
	env.Reset()

	// THEN the observer saw them in order with step numbers
	assert.Equal(t, []string{"reset", "step", "step", "reset"}, rec.events)
	assert.Equal(t, []int{1, 2}, rec.steps)
}

func TestCheckInvariants_NegativeCapacity_Panics(t *testing.T) {
	ns := NewNetworkState(DefaultEnvConfig().Overlays, 5)
	ns.Overlay(Overlay3).AvailableCapacity = -0.5
	assert.Panics(t, ns.checkInvariants)
}

func TestCheckInvariants_NegativeLoss_Panics(t *testing.T) {
	ns := NewNetworkState(DefaultEnvConfig().Overlays, 5)
	ns.Overlay(Overlay1).Loss = -1
	assert.Panics(t, ns.checkInvariants)
}

func TestCheckInvariants_ExhaustedQueuedRequest_Panics(t *testing.T) {
	ns := NewNetworkState(DefaultEnvConfig().Overlays, 5)
	ns.Queue(Overlay1).Enqueue(&Request{ID: "r", Size: 1, RemainingSteps: 0})
	assert.Panics(t, ns.checkInvariants)
}
