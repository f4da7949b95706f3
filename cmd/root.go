package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sdwan-sim/sdwan-sim/sim"
	"github.com/sdwan-sim/sdwan-sim/sim/metrics"
	"github.com/sdwan-sim/sdwan-sim/sim/trace"
)

var (
	// CLI flags for the run command
	seed        int64   // Seed for the environment's random source
	episodes    int     // Number of episodes to run
	maxSteps    int     // Episode horizon override (0 = config value)
	logLevel    string  // Log verbosity level
	configPath  string  // Optional YAML env config
	policyName  string  // Behaviour policy driving the environment
	fixedAction int     // Action used by fixed and branch policies
	rewardMix   string  // Team reward mixing override
	lambda      float64 // Weighted mixing share override (<0 = config value)
	peerProb    float64 // Peer probability of Overlay1 for branch policies (<0 = default)
	dumpMetrics bool    // Print Prometheus metrics after the run
	traceLevel  string  // Step trace level for episode summaries
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "sdwan-sim",
	Short: "Multi-overlay SD-WAN traffic steering environment",
}

// runCmd drives the environment with a behaviour policy using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run episodes of the traffic steering environment",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := buildEnvConfig()
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s; valid: none, steps", traceLevel)
		}
		if episodes <= 0 {
			logrus.Fatalf("episodes must be positive, got %d", episodes)
		}

		env, err := sim.NewEnvironment(*cfg, sim.NewSimulationKey(seed))
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		policy, err := NewPolicy(policyName, fixedAction, peerProb, env)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		reg := prometheus.NewRegistry()
		collector, err := metrics.NewCollector(reg)
		if err != nil {
			logrus.Fatalf("registering metrics: %v", err)
		}
		env.AddObserver(collector)

		st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(traceLevel)})
		env.AddObserver(NewTraceObserver(st))

		logrus.Infof("Starting %d episode(s): seed=%d, max_steps=%d, policy=%s, reward_mix=%s",
			episodes, seed, cfg.MaxSteps, policy.Name(), cfg.Reward.Mix)

		for ep := 0; ep < episodes; ep++ {
			ret, err := RunEpisode(policy)
			if err != nil {
				logrus.Fatalf("episode %d: %v", ep, err)
			}
			logrus.Infof("Episode %d finished: return=%.3f", ep, ret)
		}

		if st.Enabled() {
			if err := printSummaries(trace.Summarize(st)); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		if dumpMetrics {
			if err := collector.WriteText(os.Stdout); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		logrus.Info("Run complete.")
	},
}

// buildEnvConfig loads the env config (file or defaults) and applies flag overrides.
func buildEnvConfig() (*sim.EnvConfig, error) {
	cfg := sim.DefaultEnvConfig()
	if configPath != "" {
		loaded, err := sim.LoadEnvConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if maxSteps > 0 {
		cfg.MaxSteps = maxSteps
	}
	if rewardMix != "" {
		if !sim.IsValidRewardMix(rewardMix) {
			return nil, fmt.Errorf("unknown reward mix %q; valid: sum, weighted", rewardMix)
		}
		cfg.Reward.Mix = sim.RewardMix(rewardMix)
	}
	if lambda >= 0 {
		cfg.Reward.Lambda = lambda
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func printSummaries(summaries []trace.EpisodeSummary) error {
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding episode summaries: %w", err)
	}
	fmt.Println("=== Episode Summaries ===")
	fmt.Println(string(data))
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the environment's random source")
	runCmd.Flags().IntVar(&episodes, "episodes", 1, "Number of episodes to run")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Episode horizon (0 keeps the config value)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML env config")

	runCmd.Flags().StringVar(&policyName, "policy", "random", "Behaviour policy (random, fixed, branch-a, branch-b)")
	runCmd.Flags().IntVar(&fixedAction, "action", 0, "Action for the fixed policy (0-3) or the learner branch (0-1)")
	runCmd.Flags().Float64Var(&peerProb, "peer-prob", -1, "Peer branch probability of Overlay1 for branch policies (<0 uses the default)")

	runCmd.Flags().StringVar(&rewardMix, "reward-mix", "", "Team reward mixing (sum, weighted); empty keeps the config value")
	runCmd.Flags().Float64Var(&lambda, "lambda", -1, "Branch A share for weighted mixing (<0 keeps the config value)")

	runCmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "Print Prometheus metrics after the run")
	runCmd.Flags().StringVar(&traceLevel, "trace", "none", "Step trace level (none, steps); steps prints episode summaries")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
