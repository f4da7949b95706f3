package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrEpisodeDone is returned when Step is called on a terminated episode.
var ErrEpisodeDone = errors.New("episode is done; call Reset")

// StepInfo is the auxiliary per-step record handed to callers and observers.
// Arrays are indexed by OverlayID.Index().
type StepInfo struct {
	Step        int // steps elapsed in the episode, including this one
	JointAction int

	RewardA float64
	RewardB float64
	Total   float64

	Congested   [NumOverlays]bool
	BW          [NumOverlays]float64 // post-step available capacity
	Completions [NumOverlays]int
	Arrivals    [NumOverlays]int // requests enqueued this step

	BreakdownA RewardBreakdown
	BreakdownB RewardBreakdown
}

// Map returns the keyed view of the info record used by agent tooling:
// reward_a, reward_b, total, congested1..3 (0/1), bw1..3 and joint_action.
func (si StepInfo) Map() map[string]float64 {
	m := map[string]float64{
		"reward_a":     si.RewardA,
		"reward_b":     si.RewardB,
		"total":        si.Total,
		"joint_action": float64(si.JointAction),
	}
	for i, id := range OverlayIDs {
		n := int(id)
		m[fmt.Sprintf("bw%d", n)] = si.BW[i]
		congested := 0.0
		if si.Congested[i] {
			congested = 1.0
		}
		m[fmt.Sprintf("congested%d", n)] = congested
	}
	return m
}

// StepResult is the outcome of one environment transition.
type StepResult struct {
	Observation Observation
	Reward      float64
	Terminated  bool
	Truncated   bool // never set by the environment itself
	Info        StepInfo
}

// Observer is notified at episode boundaries and after every step.
// Observers must not mutate the environment.
type Observer interface {
	OnReset(obs Observation)
	OnStep(res StepResult)
}

// Environment is the two-branch, three-overlay traffic steering environment.
// Each call to Step is one atomic transition: arrivals, then service, then
// reward and observation.
//
// Thread-safety: NOT thread-safe. Parallel rollouts need one Environment
// (and one PartitionedRNG) each.
type Environment struct {
	cfg       EnvConfig
	state     *NetworkState
	rng       *PartitionedRNG
	arrivals  *arrivalGenerator
	stepCount int
	done      bool
	observers []Observer
}

// NewEnvironment validates cfg and builds an environment seeded from key.
// The returned environment is already in its reset state.
func NewEnvironment(cfg EnvConfig, key SimulationKey) (*Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid env config: %w", err)
	}
	rng := NewPartitionedRNG(key)
	return &Environment{
		cfg:      cfg,
		state:    NewNetworkState(cfg.Overlays, cfg.QueueCapacity),
		rng:      rng,
		arrivals: newArrivalGenerator(rng.ForSubsystem(SubsystemTraffic), cfg.BitsPerUnit, cfg.SizeScale),
	}, nil
}

// Config returns the configuration the environment was built with.
func (e *Environment) Config() EnvConfig {
	return e.cfg
}

// RNG returns the environment's partitioned random source.
func (e *Environment) RNG() *PartitionedRNG {
	return e.rng
}

// AddObserver registers o for reset and step notifications.
func (e *Environment) AddObserver(o Observer) {
	if o == nil {
		panic("AddObserver: observer must not be nil")
	}
	e.observers = append(e.observers, o)
}

// Reset starts a new episode. Overlays return to full capacity with zero loss
// and every queue is emptied. The random stream is not reseeded.
func (e *Environment) Reset() (Observation, map[string]float64) {
	e.state.Reset()
	e.arrivals.reset()
	e.stepCount = 0
	e.done = false
	obs := e.state.Observation()
	for _, o := range e.observers {
		o.OnReset(obs)
	}
	return obs, map[string]float64{}
}

// Step applies a joint action in [0, NumJointActions) and advances the network
// by one step. An out-of-range action or a finished episode returns an error
// without touching any state.
func (e *Environment) Step(action int) (StepResult, error) {
	overlayA, overlayB, err := DecodeJointAction(action)
	if err != nil {
		return StepResult{}, err
	}
	if e.done {
		return StepResult{}, fmt.Errorf("%w: reached %d of %d steps", ErrEpisodeDone, e.stepCount, e.cfg.MaxSteps)
	}

	e.stepCount++
	e.state.BeginStep()

	info := StepInfo{Step: e.stepCount, JointAction: action}

	// Arrivals: branch A's target first, then branch B's.
	for _, b := range Branches {
		id := overlayA
		if b == BranchB {
			id = overlayB
		}
		_, enqueued := e.arrivals.arrive(e.state.Overlay(id), e.state.Queue(id), e.cfg.Branches.ForBranch(b), b, e.stepCount)
		info.Arrivals[id.Index()] += enqueued
	}

	for i, id := range OverlayIDs {
		info.Completions[i] = process(e.state.Overlay(id), e.state.Queue(id), e.cfg.BitsPerUnit)
	}

	info.BreakdownA = e.cfg.Reward.BranchReward(e.state.Overlay(overlayA), info.Completions[overlayA.Index()])
	info.BreakdownB = e.cfg.Reward.BranchReward(e.state.Overlay(overlayB), info.Completions[overlayB.Index()])
	info.RewardA = info.BreakdownA.Reward
	info.RewardB = info.BreakdownB.Reward
	info.Total = e.cfg.Reward.TeamReward(info.RewardA, info.RewardB)
	info.Congested = e.state.congestionFlags(e.cfg.CongestionThreshold)
	for i, id := range OverlayIDs {
		info.BW[i] = e.state.Overlay(id).AvailableCapacity
	}

	e.state.checkInvariants()

	terminated := e.stepCount >= e.cfg.MaxSteps
	e.done = terminated

	res := StepResult{
		Observation: e.state.Observation(),
		Reward:      info.Total,
		Terminated:  terminated,
		Truncated:   false,
		Info:        info,
	}
	logrus.Debugf("[step %04d] action=%d (%s,%s) arrivals=%v completions=%v bw=%v reward=%.3f",
		e.stepCount, action, overlayA, overlayB, info.Arrivals, info.Completions, info.BW, info.Total)

	for _, o := range e.observers {
		o.OnStep(res)
	}
	return res, nil
}
