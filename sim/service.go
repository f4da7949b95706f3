package sim

// process spends o's available capacity on the requests queued at q and
// returns how many completed this step.
//
// Each request asks for the rate that would finish it exactly on budget:
// Size*bitsPerUnit/RemainingSteps. Requests that cannot get their full demand
// are skipped and counted as loss; their budget stays put while their size
// does not shrink, so they grow more urgent every step they stall.
//
// Iteration runs over a snapshot taken on entry. Completed requests are
// compacted out afterwards, keeping FIFO order for the survivors.
func process(o *Overlay, q *OverlayQueue, bitsPerUnit float64) int {
	completions := 0
	finished := make(map[*Request]bool)
	for _, req := range q.Items() {
		if req.RemainingSteps <= 0 {
			continue
		}
		demand := req.demand(bitsPerUnit)
		if demand > o.AvailableCapacity {
			o.Loss++
			continue
		}
		req.Started = true
		o.AvailableCapacity -= demand
		req.Size -= demand / bitsPerUnit
		req.RemainingSteps--
		if req.done() {
			finished[req] = true
			completions++
		}
	}
	if completions > 0 {
		q.Compact(func(r *Request) bool { return !finished[r] })
	}
	return completions
}
