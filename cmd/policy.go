package cmd

import (
	"fmt"
	"math/rand/v2"

	"github.com/sdwan-sim/sdwan-sim/sim"
)

// subsystemPolicy is the RNG subsystem for behaviour policy draws.
const subsystemPolicy = "policy"

// Policy drives an environment through episodes. It stands in for an external
// agent: it only sees observations and results, never internal state.
type Policy interface {
	Name() string
	Reset() sim.Observation
	Step(obs sim.Observation) (sim.StepResult, error)
}

// NewPolicy builds the named behaviour policy over env.
// action is the joint action for "fixed" and the learner's action for "branch-a"/"branch-b".
func NewPolicy(name string, action int, peerProb float64, env *sim.Environment) (Policy, error) {
	switch name {
	case "random":
		return &randomPolicy{env: env, rng: env.RNG().ForSubsystem(subsystemPolicy)}, nil
	case "fixed":
		if _, _, err := sim.DecodeJointAction(action); err != nil {
			return nil, err
		}
		return &fixedPolicy{env: env, action: action}, nil
	case "branch-a", "branch-b":
		learner, err := sim.ParseBranch(name[len("branch-"):])
		if err != nil {
			return nil, err
		}
		if _, err := sim.BranchOverlay(learner, action); err != nil {
			return nil, err
		}
		if peerProb < 0 {
			peerProb = sim.DefaultPeerProbFirst(learner)
		}
		be, err := sim.NewBranchEnv(env, learner, peerProb)
		if err != nil {
			return nil, err
		}
		return &branchPolicy{env: be, action: action}, nil
	}
	return nil, fmt.Errorf("unknown policy %q; valid: random, fixed, branch-a, branch-b", name)
}

// randomPolicy picks a uniformly random joint action every step.
type randomPolicy struct {
	env *sim.Environment
	rng *rand.Rand
}

func (p *randomPolicy) Name() string { return "random" }

func (p *randomPolicy) Reset() sim.Observation {
	obs, _ := p.env.Reset()
	return obs
}

func (p *randomPolicy) Step(_ sim.Observation) (sim.StepResult, error) {
	return p.env.Step(p.rng.IntN(sim.NumJointActions))
}

// fixedPolicy repeats one joint action.
type fixedPolicy struct {
	env    *sim.Environment
	action int
}

func (p *fixedPolicy) Name() string { return fmt.Sprintf("fixed(%d)", p.action) }

func (p *fixedPolicy) Reset() sim.Observation {
	obs, _ := p.env.Reset()
	return obs
}

func (p *fixedPolicy) Step(_ sim.Observation) (sim.StepResult, error) {
	return p.env.Step(p.action)
}

// branchPolicy repeats one branch action through the single-branch view.
type branchPolicy struct {
	env    *sim.BranchEnv
	action int
}

func (p *branchPolicy) Name() string {
	return fmt.Sprintf("branch-%s(%d)", p.env.Learner(), p.action)
}

func (p *branchPolicy) Reset() sim.Observation {
	obs, _ := p.env.Reset()
	return obs
}

func (p *branchPolicy) Step(_ sim.Observation) (sim.StepResult, error) {
	return p.env.Step(p.action)
}

// RunEpisode resets the environment through p and steps until termination.
// Returns the sum of rewards p received.
func RunEpisode(p Policy) (float64, error) {
	obs := p.Reset()
	total := 0.0
	for {
		res, err := p.Step(obs)
		if err != nil {
			return total, err
		}
		total += res.Reward
		if res.Terminated || res.Truncated {
			return total, nil
		}
		obs = res.Observation
	}
}
