package trace

// TraceLevel controls the verbosity of step tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelSteps captures every environment step.
	TraceLevelSteps TraceLevel = "steps"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:  true,
	TraceLevelSteps: true,
	"":              true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// EpisodeTrace holds the step records of one episode.
type EpisodeTrace struct {
	Index int
	Steps []StepRecord
}

// SimulationTrace collects step records across episodes.
type SimulationTrace struct {
	Config   TraceConfig
	Episodes []EpisodeTrace
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:   config,
		Episodes: make([]EpisodeTrace, 0),
	}
}

// Enabled reports whether records are kept at the configured level.
func (st *SimulationTrace) Enabled() bool {
	return st.Config.Level == TraceLevelSteps
}

// StartEpisode opens a new episode; subsequent steps are recorded into it.
func (st *SimulationTrace) StartEpisode() {
	if !st.Enabled() {
		return
	}
	st.Episodes = append(st.Episodes, EpisodeTrace{
		Index: len(st.Episodes),
		Steps: make([]StepRecord, 0),
	})
}

// RecordStep appends a step record to the current episode, opening one if needed.
func (st *SimulationTrace) RecordStep(record StepRecord) {
	if !st.Enabled() {
		return
	}
	if len(st.Episodes) == 0 {
		st.StartEpisode()
	}
	cur := &st.Episodes[len(st.Episodes)-1]
	cur.Steps = append(cur.Steps, record)
}
