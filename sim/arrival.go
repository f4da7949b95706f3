package sim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// arrivalGenerator creates flow requests for the overlays a branch routes onto.
// All draws come from a single stream so a seed fixes the whole arrival sequence.
type arrivalGenerator struct {
	rng         *rand.Rand
	bitsPerUnit float64
	sizeScale   float64
	nextID      int
}

func newArrivalGenerator(rng *rand.Rand, bitsPerUnit, sizeScale float64) *arrivalGenerator {
	return &arrivalGenerator{rng: rng, bitsPerUnit: bitsPerUnit, sizeScale: sizeScale}
}

// poisson draws one Poisson(mean) count. A non-positive mean yields 0 without a draw.
func (g *arrivalGenerator) poisson(mean float64) int {
	if mean <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: mean, Src: g.rng}.Rand())
}

// stepBudget returns the number of steps a flow of the given size may take on o.
func (g *arrivalGenerator) stepBudget(o *Overlay, size float64) int {
	return max(1, int(math.Ceil(size*g.bitsPerUnit/o.ServiceRate)))
}

// generate draws one flow and enqueues it on q, or records a loss on o when q is full.
// Overlays with zero service rate never receive requests. Returns true if a
// request was enqueued.
func (g *arrivalGenerator) generate(o *Overlay, q *OverlayQueue, meanFlowSize float64, branch Branch, step int) bool {
	size := float64(g.poisson(meanFlowSize)) / g.sizeScale
	if o.ServiceRate <= 0 {
		return false
	}
	req := &Request{
		ID:             fmt.Sprintf("req_%d", g.nextID),
		Size:           size,
		RemainingSteps: g.stepBudget(o, size),
		Branch:         branch,
		ArrivalStep:    step,
	}
	g.nextID++
	if !q.Enqueue(req) {
		o.Loss++
		logrus.Tracef("[step %04d] %s queue full, dropped %s", step, o.ID, req.ID)
		return false
	}
	return true
}

// arrive generates a Poisson(ArrivalRate) batch of flows for one branch onto o.
// Returns the number of draws (offered flows) and how many were enqueued.
func (g *arrivalGenerator) arrive(o *Overlay, q *OverlayQueue, bc BranchConfig, branch Branch, step int) (offered, enqueued int) {
	offered = g.poisson(bc.ArrivalRate)
	for i := 0; i < offered; i++ {
		if g.generate(o, q, bc.MeanFlowSize, branch, step) {
			enqueued++
		}
	}
	return offered, enqueued
}

// reset restarts request numbering for a new episode.
func (g *arrivalGenerator) reset() {
	g.nextID = 0
}
