package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequest_Demand_SpreadsSizeOverRemainingSteps(t *testing.T) {
	req := &Request{ID: "r", Size: 2, RemainingSteps: 4}
	assert.Equal(t, 4.0, req.demand(8))

	req.RemainingSteps = 1
	assert.Equal(t, 16.0, req.demand(8))
}

func TestRequest_Done(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want bool
	}{
		{"work left, budget left", Request{Size: 1, RemainingSteps: 2}, false},
		{"no work left", Request{Size: 0, RemainingSteps: 2}, true},
		{"overshot work", Request{Size: -0.5, RemainingSteps: 1}, true},
		{"budget exhausted", Request{Size: 1, RemainingSteps: 0}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.req.done())
		})
	}
}

func TestRequest_String_IncludesIdentity(t *testing.T) {
	req := Request{ID: "req_3", Branch: BranchB, Size: 1.5, RemainingSteps: 2}
	s := req.String()
	assert.Contains(t, s, "req_3")
	assert.Contains(t, s, "Branch: B")
}
