package trace

// EpisodeSummary aggregates statistics from one EpisodeTrace.
type EpisodeSummary struct {
	Episode           int                  `json:"episode"`
	Steps             int                  `json:"steps"`
	ReturnA           float64              `json:"return_a"`
	ReturnB           float64              `json:"return_b"`
	ReturnTotal       float64              `json:"return_total"`
	CongestedSteps    [NumOverlays]int     `json:"congested_steps"`
	CongestionRate    [NumOverlays]float64 `json:"congestion_rate"`
	TotalLoss         int                  `json:"total_loss"`
	TotalCompletions  int                  `json:"total_completions"`
	JointActionCounts map[int]int          `json:"joint_action_counts"`
}

// SummarizeEpisode computes aggregate statistics for one episode.
func SummarizeEpisode(ep EpisodeTrace) EpisodeSummary {
	summary := EpisodeSummary{
		Episode:           ep.Index,
		Steps:             len(ep.Steps),
		JointActionCounts: make(map[int]int),
	}
	for _, s := range ep.Steps {
		summary.ReturnA += s.RewardA
		summary.ReturnB += s.RewardB
		summary.ReturnTotal += s.Total
		summary.JointActionCounts[s.JointAction]++
		for i := 0; i < NumOverlays; i++ {
			if s.Congested[i] {
				summary.CongestedSteps[i]++
			}
			summary.TotalLoss += s.Loss[i]
			summary.TotalCompletions += s.Completions[i]
		}
	}
	if summary.Steps > 0 {
		for i := 0; i < NumOverlays; i++ {
			summary.CongestionRate[i] = float64(summary.CongestedSteps[i]) / float64(summary.Steps)
		}
	}
	return summary
}

// Summarize computes per-episode statistics from a SimulationTrace.
// Safe for nil or empty traces (returns an empty slice).
func Summarize(st *SimulationTrace) []EpisodeSummary {
	summaries := make([]EpisodeSummary, 0)
	if st == nil {
		return summaries
	}
	for _, ep := range st.Episodes {
		summaries = append(summaries, SummarizeEpisode(ep))
	}
	return summaries
}
