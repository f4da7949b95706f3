// Implements the OverlayQueue, which holds all requests waiting for service at one overlay.
// Requests are enqueued on arrival and leave only on completion.

package sim

import (
	"fmt"
	"strings"
)

// OverlayQueue represents a bounded FIFO queue of requests awaiting service at an overlay.
// Arrivals beyond capacity are rejected; the caller accounts for them as loss.
type OverlayQueue struct {
	queue    []*Request // FIFO queue of requests
	capacity int        // maximum number of queued requests
}

// NewOverlayQueue creates an empty queue that holds at most capacity requests.
func NewOverlayQueue(capacity int) *OverlayQueue {
	if capacity < 0 {
		panic(fmt.Sprintf("NewOverlayQueue: capacity must be non-negative, got %d", capacity))
	}
	return &OverlayQueue{
		queue:    make([]*Request, 0, capacity),
		capacity: capacity,
	}
}

// Enqueue adds a request to the back of the queue.
// Returns false, leaving the queue unchanged, when the queue is full.
func (oq *OverlayQueue) Enqueue(r *Request) bool {
	if r == nil {
		panic("Enqueue: req must not be nil")
	}
	if oq.Full() {
		return false
	}
	oq.queue = append(oq.queue, r)
	return true
}

func (oq *OverlayQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range oq.queue {
		sb.WriteString(fmt.Sprint(val))
		if i < len(oq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of requests in the queue.
func (oq *OverlayQueue) Len() int {
	return len(oq.queue)
}

// Cap returns the maximum number of requests the queue holds.
func (oq *OverlayQueue) Cap() int {
	return oq.capacity
}

// Full reports whether another request would be rejected.
func (oq *OverlayQueue) Full() bool {
	return len(oq.queue) >= oq.capacity
}

// Items returns a copy of the queue contents in FIFO order.
// The service processor iterates this snapshot so removals during a pass
// cannot disturb iteration.
func (oq *OverlayQueue) Items() []*Request {
	out := make([]*Request, len(oq.queue))
	copy(out, oq.queue)
	return out
}

// Compact drops every request for which keep returns false, preserving the
// relative order of survivors. Returns the number of requests removed.
func (oq *OverlayQueue) Compact(keep func(*Request) bool) int {
	if keep == nil {
		panic("Compact: keep must not be nil")
	}
	kept := oq.queue[:0]
	for _, r := range oq.queue {
		if keep(r) {
			kept = append(kept, r)
		}
	}
	removed := len(oq.queue) - len(kept)
	for i := len(kept); i < len(oq.queue); i++ {
		oq.queue[i] = nil
	}
	oq.queue = kept
	return removed
}

// Clear empties the queue, discarding any incomplete requests.
func (oq *OverlayQueue) Clear() {
	for i := range oq.queue {
		oq.queue[i] = nil
	}
	oq.queue = oq.queue[:0]
}
