package sim

import (
	"errors"
	"fmt"
)

// NumJointActions is the size of the joint action space.
const NumJointActions = 4

// NumBranchActions is the size of one branch's action space.
const NumBranchActions = 2

var (
	// ErrInvalidAction is returned for a joint action outside [0, NumJointActions).
	ErrInvalidAction = errors.New("invalid joint action")
	// ErrInvalidBranchAction is returned for a branch action outside [0, NumBranchActions).
	ErrInvalidBranchAction = errors.New("invalid branch action")
)

// branchOverlays lists each branch's legal overlays by branch action.
// Overlay1 is shared; Overlay2 belongs to A and Overlay3 to B.
var branchOverlays = map[Branch][NumBranchActions]OverlayID{
	BranchA: {Overlay1, Overlay2},
	BranchB: {Overlay1, Overlay3},
}

// jointActionTable decodes a joint action into (branch A overlay, branch B overlay).
var jointActionTable = [NumJointActions][2]OverlayID{
	{Overlay1, Overlay1},
	{Overlay1, Overlay3},
	{Overlay2, Overlay1},
	{Overlay2, Overlay3},
}

// DecodeJointAction returns the overlays branch A and branch B route onto.
func DecodeJointAction(action int) (overlayA, overlayB OverlayID, err error) {
	if action < 0 || action >= NumJointActions {
		return 0, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidAction, action, NumJointActions)
	}
	pair := jointActionTable[action]
	return pair[0], pair[1], nil
}

// EncodeJointAction combines two branch actions into a joint action.
func EncodeJointAction(actionA, actionB int) (int, error) {
	if actionA < 0 || actionA >= NumBranchActions {
		return 0, fmt.Errorf("%w: branch A action %d not in [0, %d)", ErrInvalidBranchAction, actionA, NumBranchActions)
	}
	if actionB < 0 || actionB >= NumBranchActions {
		return 0, fmt.Errorf("%w: branch B action %d not in [0, %d)", ErrInvalidBranchAction, actionB, NumBranchActions)
	}
	return NumBranchActions*actionA + actionB, nil
}

// BranchOverlay returns the overlay a branch routes onto for the given branch action.
func BranchOverlay(b Branch, action int) (OverlayID, error) {
	if action < 0 || action >= NumBranchActions {
		return 0, fmt.Errorf("%w: branch %s action %d not in [0, %d)", ErrInvalidBranchAction, b, action, NumBranchActions)
	}
	return branchOverlays[b][action], nil
}
