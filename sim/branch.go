package sim

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// DefaultPeerProbFirst returns the probability that the peer of the wrapped
// branch picks its first legal overlay (Overlay1). When branch A learns, peer B
// favors Overlay1 3:1; when branch B learns, peer A favors Overlay2 3:1.
func DefaultPeerProbFirst(learner Branch) float64 {
	if learner == BranchA {
		return 0.75
	}
	return 0.25
}

// BranchEnv is a single-branch view of an Environment. The wrapped branch
// picks one of its two overlays; the peer branch follows a fixed weighted
// coin flip. Rewards returned are the learner's own branch reward.
type BranchEnv struct {
	env           *Environment
	learner       Branch
	peerProbFirst float64
	rng           *rand.Rand
}

// NewBranchEnv wraps env for the given learner branch. peerProbFirst is the
// probability that the peer branch routes to Overlay1.
func NewBranchEnv(env *Environment, learner Branch, peerProbFirst float64) (*BranchEnv, error) {
	if env == nil {
		return nil, fmt.Errorf("NewBranchEnv: env must not be nil")
	}
	if math.IsNaN(peerProbFirst) || peerProbFirst < 0 || peerProbFirst > 1 {
		return nil, fmt.Errorf("peer probability must be in [0, 1], got %f", peerProbFirst)
	}
	return &BranchEnv{
		env:           env,
		learner:       learner,
		peerProbFirst: peerProbFirst,
		rng:           env.RNG().ForSubsystem(SubsystemPeer),
	}, nil
}

// Learner returns the branch this view exposes.
func (be *BranchEnv) Learner() Branch {
	return be.learner
}

// Reset starts a new episode on the wrapped environment.
func (be *BranchEnv) Reset() (Observation, map[string]float64) {
	return be.env.Reset()
}

// peerAction draws the peer branch's action: 0 with probability peerProbFirst.
func (be *BranchEnv) peerAction() int {
	if be.rng.Float64() < be.peerProbFirst {
		return 0
	}
	return 1
}

// Step applies the learner's branch action (0 = Overlay1, 1 = its exclusive
// overlay) together with a drawn peer action. The result carries the
// learner's reward; Info.JointAction reports the realized joint action.
func (be *BranchEnv) Step(action int) (StepResult, error) {
	if action < 0 || action >= NumBranchActions {
		return StepResult{}, fmt.Errorf("%w: branch %s action %d not in [0, %d)", ErrInvalidBranchAction, be.learner, action, NumBranchActions)
	}
	peer := be.peerAction()
	actionA, actionB := action, peer
	if be.learner == BranchB {
		actionA, actionB = peer, action
	}
	joint, err := EncodeJointAction(actionA, actionB)
	if err != nil {
		return StepResult{}, err
	}
	res, err := be.env.Step(joint)
	if err != nil {
		return StepResult{}, err
	}
	if be.learner == BranchA {
		res.Reward = res.Info.RewardA
	} else {
		res.Reward = res.Info.RewardB
	}
	return res, nil
}
