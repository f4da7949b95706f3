package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// OverlayConfig holds the static attributes of one overlay.
type OverlayConfig struct {
	ServiceRate float64 `yaml:"service_rate"` // capacity units per step (>= 0)
	Latency     float64 `yaml:"latency"`      // fixed cost, reported in the observation only
}

// OverlaysConfig lists the three overlays in canonical order.
type OverlaysConfig struct {
	Overlay1 OverlayConfig `yaml:"overlay1"`
	Overlay2 OverlayConfig `yaml:"overlay2"`
	Overlay3 OverlayConfig `yaml:"overlay3"`
}

// ByID returns the configuration of the given overlay.
func (oc OverlaysConfig) ByID(id OverlayID) OverlayConfig {
	switch id {
	case Overlay1:
		return oc.Overlay1
	case Overlay2:
		return oc.Overlay2
	case Overlay3:
		return oc.Overlay3
	}
	panic(fmt.Sprintf("OverlaysConfig.ByID: unknown overlay %d", id))
}

// BranchConfig groups the traffic parameters of one branch.
type BranchConfig struct {
	ArrivalRate  float64 `yaml:"arrival_rate"`   // Poisson mean of arrivals per step
	MeanFlowSize float64 `yaml:"mean_flow_size"` // Poisson mean of the raw flow size draw
}

// BranchesConfig holds both branches' traffic parameters.
type BranchesConfig struct {
	A BranchConfig `yaml:"a"`
	B BranchConfig `yaml:"b"`
}

// ForBranch returns the traffic parameters of the given branch.
func (bc BranchesConfig) ForBranch(b Branch) BranchConfig {
	if b == BranchA {
		return bc.A
	}
	return bc.B
}

// RewardMix selects how the two branch rewards combine into the team reward.
type RewardMix string

const (
	// RewardMixSum adds the branch rewards: r_a + r_b.
	RewardMixSum RewardMix = "sum"
	// RewardMixWeighted blends them: λ*r_a + (1-λ)*r_b.
	RewardMixWeighted RewardMix = "weighted"
)

var validRewardMixes = map[RewardMix]bool{
	RewardMixSum:      true,
	RewardMixWeighted: true,
}

// IsValidRewardMix reports whether name is a recognized reward mixing mode.
func IsValidRewardMix(name string) bool {
	return validRewardMixes[RewardMix(name)]
}

// RewardConfig groups the reward shaping weights and the team mixing mode.
type RewardConfig struct {
	CapacityWeight   float64   `yaml:"capacity_weight"`
	LossWeight       float64   `yaml:"loss_weight"`
	CompletionWeight float64   `yaml:"completion_weight"`
	LatencyWeight    float64   `yaml:"latency_weight"` // 0 disables the latency term
	Mix              RewardMix `yaml:"mix"`
	Lambda           float64   `yaml:"lambda"` // branch A share when Mix is weighted
}

// EnvConfig groups every construction-time option of the environment.
type EnvConfig struct {
	MaxSteps            int            `yaml:"max_steps"`
	Overlays            OverlaysConfig `yaml:"overlays"`
	Branches            BranchesConfig `yaml:"branches"`
	QueueCapacity       int            `yaml:"queue_capacity"`
	CongestionThreshold float64        `yaml:"congestion_threshold"`
	BitsPerUnit         float64        `yaml:"bits_per_unit"` // capacity units per size unit
	SizeScale           float64        `yaml:"size_scale"`    // divisor mapping raw Poisson draws to size units
	Reward              RewardConfig   `yaml:"reward"`
}

// DefaultEnvConfig returns the reference three-overlay, two-branch setup.
func DefaultEnvConfig() EnvConfig {
	return EnvConfig{
		MaxSteps: 300,
		Overlays: OverlaysConfig{
			Overlay1: OverlayConfig{ServiceRate: 100, Latency: 10},
			Overlay2: OverlayConfig{ServiceRate: 20, Latency: 30},
			Overlay3: OverlayConfig{ServiceRate: 50, Latency: 20},
		},
		Branches: BranchesConfig{
			A: BranchConfig{ArrivalRate: 9, MeanFlowSize: 20},
			B: BranchConfig{ArrivalRate: 6, MeanFlowSize: 10},
		},
		QueueCapacity:       50,
		CongestionThreshold: 10,
		BitsPerUnit:         8,
		SizeScale:           10,
		Reward: RewardConfig{
			CapacityWeight:   1,
			LossWeight:       1,
			CompletionWeight: 2,
			LatencyWeight:    0,
			Mix:              RewardMixWeighted,
			Lambda:           0.8,
		},
	}
}

// LoadEnvConfig reads a YAML environment config from path.
// Fields missing from the file keep their DefaultEnvConfig values.
// Unknown fields are rejected so typos fail loudly.
func LoadEnvConfig(path string) (*EnvConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading env config: %w", err)
	}
	return ParseEnvConfig(data)
}

// ParseEnvConfig decodes YAML bytes onto DefaultEnvConfig with strict field checking.
func ParseEnvConfig(data []byte) (*EnvConfig, error) {
	cfg := DefaultEnvConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that all fields in the config are usable.
func (c *EnvConfig) Validate() error {
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	for _, id := range OverlayIDs {
		oc := c.Overlays.ByID(id)
		prefix := fmt.Sprintf("overlays.%s", id.key())
		if err := validateFiniteNonNegative(prefix+".service_rate", oc.ServiceRate); err != nil {
			return err
		}
		if err := validateFiniteNonNegative(prefix+".latency", oc.Latency); err != nil {
			return err
		}
	}
	for _, b := range Branches {
		bc := c.Branches.ForBranch(b)
		prefix := fmt.Sprintf("branches.%s", b.key())
		if err := validateFiniteNonNegative(prefix+".arrival_rate", bc.ArrivalRate); err != nil {
			return err
		}
		if err := validateFiniteNonNegative(prefix+".mean_flow_size", bc.MeanFlowSize); err != nil {
			return err
		}
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("queue_capacity must be non-negative, got %d", c.QueueCapacity)
	}
	if err := validateFiniteNonNegative("congestion_threshold", c.CongestionThreshold); err != nil {
		return err
	}
	if err := validateFinitePositive("bits_per_unit", c.BitsPerUnit); err != nil {
		return err
	}
	if err := validateFinitePositive("size_scale", c.SizeScale); err != nil {
		return err
	}
	return c.Reward.Validate()
}

// Validate checks the reward weights and mixing mode.
func (r *RewardConfig) Validate() error {
	weights := []struct {
		name string
		val  float64
	}{
		{"reward.capacity_weight", r.CapacityWeight},
		{"reward.loss_weight", r.LossWeight},
		{"reward.completion_weight", r.CompletionWeight},
		{"reward.latency_weight", r.LatencyWeight},
	}
	for _, w := range weights {
		if math.IsNaN(w.val) || math.IsInf(w.val, 0) {
			return fmt.Errorf("%s must be a finite number, got %f", w.name, w.val)
		}
	}
	if !validRewardMixes[r.Mix] {
		return fmt.Errorf("unknown reward.mix %q; valid: sum, weighted", r.Mix)
	}
	if r.Mix == RewardMixWeighted {
		if math.IsNaN(r.Lambda) || r.Lambda < 0 || r.Lambda > 1 {
			return fmt.Errorf("reward.lambda must be in [0, 1], got %f", r.Lambda)
		}
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}

func validateFiniteNonNegative(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val < 0 {
		return fmt.Errorf("%s must be non-negative, got %f", name, val)
	}
	return nil
}
