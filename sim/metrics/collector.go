// Package metrics exports environment activity as Prometheus metrics.
// Collector implements sim.Observer and is attached with Environment.AddObserver.
package metrics

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/sdwan-sim/sdwan-sim/sim"
)

// Collector bundles the per-overlay and per-episode Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Episodes     prometheus.Counter
	Steps        prometheus.Counter
	JointActions *prometheus.CounterVec

	AvailableCapacity *prometheus.GaugeVec
	QueueLength       *prometheus.GaugeVec
	Losses            *prometheus.CounterVec
	Completions       *prometheus.CounterVec
	Arrivals          *prometheus.CounterVec
	CongestedSteps    *prometheus.CounterVec

	Reward *prometheus.GaugeVec
}

var _ sim.Observer = (*Collector)(nil)

var overlayLabels = []string{"overlay"}

// NewCollector registers the environment metrics against reg, defaulting to
// the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.Episodes, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sdwan_episodes_total",
		Help: "Number of episodes started (environment resets).",
	}), "sdwan_episodes_total"); err != nil {
		return nil, err
	}
	if c.Steps, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sdwan_steps_total",
		Help: "Number of environment steps taken.",
	}), "sdwan_steps_total"); err != nil {
		return nil, err
	}
	if c.JointActions, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sdwan_joint_actions_total",
		Help: "Steps taken per joint action.",
	}, []string{"action"}), "sdwan_joint_actions_total"); err != nil {
		return nil, err
	}
	if c.AvailableCapacity, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sdwan_overlay_available_capacity",
		Help: "Capacity left on the overlay after the latest step.",
	}, overlayLabels), "sdwan_overlay_available_capacity"); err != nil {
		return nil, err
	}
	if c.QueueLength, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sdwan_overlay_queue_length",
		Help: "Requests pending at the overlay after the latest step.",
	}, overlayLabels), "sdwan_overlay_queue_length"); err != nil {
		return nil, err
	}
	if c.Losses, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sdwan_overlay_losses_total",
		Help: "Requests dropped on overflow or left unserved, per overlay.",
	}, overlayLabels), "sdwan_overlay_losses_total"); err != nil {
		return nil, err
	}
	if c.Completions, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sdwan_overlay_completions_total",
		Help: "Requests completed per overlay.",
	}, overlayLabels), "sdwan_overlay_completions_total"); err != nil {
		return nil, err
	}
	if c.Arrivals, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sdwan_overlay_arrivals_total",
		Help: "Requests enqueued per overlay.",
	}, overlayLabels), "sdwan_overlay_arrivals_total"); err != nil {
		return nil, err
	}
	if c.CongestedSteps, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sdwan_overlay_congested_steps_total",
		Help: "Steps that ended with the overlay congested.",
	}, overlayLabels), "sdwan_overlay_congested_steps_total"); err != nil {
		return nil, err
	}
	if c.Reward, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sdwan_reward",
		Help: "Reward of the latest step, by branch (a, b) and team (total).",
	}, []string{"branch"}), "sdwan_reward"); err != nil {
		return nil, err
	}
	return c, nil
}

// OnReset counts a new episode and publishes the reset state.
func (c *Collector) OnReset(obs sim.Observation) {
	if c == nil {
		return
	}
	c.Episodes.Inc()
	for i, id := range sim.OverlayIDs {
		label := overlayLabel(id)
		c.AvailableCapacity.WithLabelValues(label).Set(obs[3*i])
		c.QueueLength.WithLabelValues(label).Set(obs[3*sim.NumOverlays+i])
	}
}

// OnStep records one step's outcome.
func (c *Collector) OnStep(res sim.StepResult) {
	if c == nil {
		return
	}
	c.Steps.Inc()
	c.JointActions.WithLabelValues(strconv.Itoa(res.Info.JointAction)).Inc()
	for i, id := range sim.OverlayIDs {
		label := overlayLabel(id)
		c.AvailableCapacity.WithLabelValues(label).Set(res.Info.BW[i])
		c.QueueLength.WithLabelValues(label).Set(res.Observation[3*sim.NumOverlays+i])
		c.Losses.WithLabelValues(label).Add(res.Observation[3*i+2])
		c.Completions.WithLabelValues(label).Add(float64(res.Info.Completions[i]))
		c.Arrivals.WithLabelValues(label).Add(float64(res.Info.Arrivals[i]))
		if res.Info.Congested[i] {
			c.CongestedSteps.WithLabelValues(label).Inc()
		}
	}
	c.Reward.WithLabelValues("a").Set(res.Info.RewardA)
	c.Reward.WithLabelValues("b").Set(res.Info.RewardB)
	c.Reward.WithLabelValues("total").Set(res.Info.Total)
}

// WriteText writes every gathered metric family in the Prometheus text format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encoding metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func overlayLabel(id sim.OverlayID) string {
	return strings.ToLower(id.String())
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
