package sim

import (
	"fmt"
	"math"
)

// OverlayID names one of the three overlays, 1-indexed.
type OverlayID int

const (
	Overlay1 OverlayID = 1
	Overlay2 OverlayID = 2
	Overlay3 OverlayID = 3
)

// NumOverlays is the number of overlays in the network.
const NumOverlays = 3

// OverlayIDs lists the overlays in canonical order.
var OverlayIDs = [NumOverlays]OverlayID{Overlay1, Overlay2, Overlay3}

func (id OverlayID) String() string {
	return fmt.Sprintf("Overlay%d", int(id))
}

// key is the lowercase name used in config files and metric labels.
func (id OverlayID) key() string {
	return fmt.Sprintf("overlay%d", int(id))
}

// Index returns the zero-based canonical position of the overlay.
func (id OverlayID) Index() int {
	if id < Overlay1 || id > Overlay3 {
		panic(fmt.Sprintf("OverlayID.Index: unknown overlay %d", int(id)))
	}
	return int(id) - 1
}

// Branch is one of the two traffic sources.
type Branch int

const (
	BranchA Branch = iota
	BranchB
)

// Branches lists both branches in draw order.
var Branches = [2]Branch{BranchA, BranchB}

func (b Branch) String() string {
	if b == BranchA {
		return "A"
	}
	return "B"
}

func (b Branch) key() string {
	if b == BranchA {
		return "a"
	}
	return "b"
}

// ParseBranch maps "a"/"A" and "b"/"B" to a Branch.
func ParseBranch(s string) (Branch, error) {
	switch s {
	case "a", "A":
		return BranchA, nil
	case "b", "B":
		return BranchB, nil
	}
	return 0, fmt.Errorf("unknown branch %q; valid: a, b", s)
}

// Overlay models one service path. ServiceRate and Latency are fixed for the
// lifetime of the environment; AvailableCapacity and Loss are per-step.
type Overlay struct {
	ID          OverlayID
	ServiceRate float64
	Latency     float64

	// AvailableCapacity starts every step at ServiceRate and only decreases
	// within the step. Never negative.
	AvailableCapacity float64
	// Loss counts requests dropped on overflow or left unserved this step.
	Loss int
}

func newOverlay(id OverlayID, cfg OverlayConfig) *Overlay {
	o := &Overlay{ID: id, ServiceRate: cfg.ServiceRate, Latency: cfg.Latency}
	o.refresh()
	return o
}

// refresh restores full capacity and clears the loss counter.
func (o *Overlay) refresh() {
	o.AvailableCapacity = o.ServiceRate
	o.Loss = 0
}

// Congested reports whether the remaining capacity is at or below threshold.
func (o *Overlay) Congested(threshold float64) bool {
	return o.AvailableCapacity <= threshold
}

// === NetworkState ===

// ObservationSize is the length of the flattened observation vector.
const ObservationSize = 4 * NumOverlays

// Observation is the flattened network state:
// [bw1, lat1, loss1, bw2, lat2, loss2, bw3, lat3, loss3, q1, q2, q3].
type Observation [ObservationSize]float64

// Slice returns the observation as a freshly allocated slice.
func (o Observation) Slice() []float64 {
	out := make([]float64, ObservationSize)
	copy(out, o[:])
	return out
}

// NetworkState holds the overlays and their queues. Overlay identity and
// static configuration never change after construction.
type NetworkState struct {
	overlays [NumOverlays]*Overlay
	queues   [NumOverlays]*OverlayQueue
}

// NewNetworkState builds the three overlays and their bounded queues.
func NewNetworkState(cfg OverlaysConfig, queueCapacity int) *NetworkState {
	ns := &NetworkState{}
	for i, id := range OverlayIDs {
		ns.overlays[i] = newOverlay(id, cfg.ByID(id))
		ns.queues[i] = NewOverlayQueue(queueCapacity)
	}
	return ns
}

// Overlay returns the overlay with the given ID.
func (ns *NetworkState) Overlay(id OverlayID) *Overlay {
	return ns.overlays[id.Index()]
}

// Queue returns the pending-request queue of the given overlay.
func (ns *NetworkState) Queue(id OverlayID) *OverlayQueue {
	return ns.queues[id.Index()]
}

// Reset restores every overlay to its static configuration and empties all queues.
func (ns *NetworkState) Reset() {
	for i := range ns.overlays {
		ns.overlays[i].refresh()
		ns.queues[i].Clear()
	}
}

// BeginStep refills capacity and clears per-step loss; queues persist.
func (ns *NetworkState) BeginStep() {
	for _, o := range ns.overlays {
		o.refresh()
	}
}

// Observation flattens the current state into the observation vector.
func (ns *NetworkState) Observation() Observation {
	var obs Observation
	for i, o := range ns.overlays {
		obs[3*i] = o.AvailableCapacity
		obs[3*i+1] = o.Latency
		obs[3*i+2] = float64(o.Loss)
	}
	for i, q := range ns.queues {
		obs[3*NumOverlays+i] = float64(q.Len())
	}
	return obs
}

// checkInvariants panics if any overlay or queue is in an impossible state.
// Called after every step; a violation is a simulator bug, not a caller error.
func (ns *NetworkState) checkInvariants() {
	for i, o := range ns.overlays {
		if math.IsNaN(o.AvailableCapacity) || math.IsInf(o.AvailableCapacity, 0) {
			panic(fmt.Sprintf("%s: available capacity is not finite: %v", o.ID, o.AvailableCapacity))
		}
		if o.AvailableCapacity < 0 || o.AvailableCapacity > o.ServiceRate {
			panic(fmt.Sprintf("%s: available capacity %v outside [0, %v]", o.ID, o.AvailableCapacity, o.ServiceRate))
		}
		if o.Loss < 0 {
			panic(fmt.Sprintf("%s: negative loss count %d", o.ID, o.Loss))
		}
		q := ns.queues[i]
		if q.Len() > q.Cap() {
			panic(fmt.Sprintf("%s: queue length %d exceeds capacity %d", o.ID, q.Len(), q.Cap()))
		}
		for _, r := range q.queue {
			if r.RemainingSteps < 1 {
				panic(fmt.Sprintf("%s: queued request %s has remaining steps %d", o.ID, r.ID, r.RemainingSteps))
			}
			if math.IsNaN(r.Size) || math.IsInf(r.Size, 0) {
				panic(fmt.Sprintf("%s: queued request %s has non-finite size %v", o.ID, r.ID, r.Size))
			}
		}
	}
}
