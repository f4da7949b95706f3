package cmd

import (
	"github.com/sdwan-sim/sdwan-sim/sim"
	"github.com/sdwan-sim/sdwan-sim/sim/trace"
)

// TraceObserver copies every step result into a SimulationTrace.
type TraceObserver struct {
	trace *trace.SimulationTrace
}

var _ sim.Observer = (*TraceObserver)(nil)

// NewTraceObserver creates an observer recording into st.
func NewTraceObserver(st *trace.SimulationTrace) *TraceObserver {
	return &TraceObserver{trace: st}
}

// OnReset opens a new episode in the trace.
func (o *TraceObserver) OnReset(_ sim.Observation) {
	o.trace.StartEpisode()
}

// OnStep appends the step to the current episode.
func (o *TraceObserver) OnStep(res sim.StepResult) {
	o.trace.RecordStep(StepRecordFromResult(res))
}

// StepRecordFromResult converts a step result into a pure-data trace record.
func StepRecordFromResult(res sim.StepResult) trace.StepRecord {
	rec := trace.StepRecord{
		Step:        res.Info.Step,
		JointAction: res.Info.JointAction,
		RewardA:     res.Info.RewardA,
		RewardB:     res.Info.RewardB,
		Total:       res.Info.Total,
		Congested:   res.Info.Congested,
		BW:          res.Info.BW,
		Completions: res.Info.Completions,
		Terminated:  res.Terminated,
	}
	for i := 0; i < sim.NumOverlays; i++ {
		rec.Loss[i] = int(res.Observation[3*i+2])
		rec.QueueLen[i] = int(res.Observation[3*sim.NumOverlays+i])
	}
	return rec
}
