// Defines the Request struct that models one flow unit queued at an overlay.
// Tracks the remaining size and the step budget left to finish it.

package sim

import (
	"fmt"
)

// Request models a single flow's lifecycle at an overlay.
// A request is created by the arrival generator and removed by the service
// processor on completion; nothing else destroys it.
type Request struct {
	ID string // Unique identifier for the request within an environment

	Size           float64 // Work remaining, in size units
	RemainingSteps int     // Steps left to finish on budget; >= 1 while queued
	Started        bool    // Whether any capacity has been applied yet

	Branch      Branch // Branch whose arrival produced this request
	ArrivalStep int    // Episode step at which the request was enqueued
}

// This method returns a human-readable string representation of a Request.
func (req Request) String() string {
	return fmt.Sprintf("Request: (ID: %s, Branch: %s, Size: %.3f, RemainingSteps: %d, Started: %t)",
		req.ID, req.Branch, req.Size, req.RemainingSteps, req.Started)
}

// demand returns the per-step rate needed to finish exactly on budget.
func (req *Request) demand(bitsPerUnit float64) float64 {
	return req.Size * bitsPerUnit / float64(req.RemainingSteps)
}

// done reports whether the request has finished its work or exhausted its budget.
func (req *Request) done() bool {
	return req.Size <= 0 || req.RemainingSteps <= 0
}
