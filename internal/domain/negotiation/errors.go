package negotiation

import (
	"errors"
	"fmt"
)

// ErrIllegalAction is the match target for action-validation failures.
var ErrIllegalAction = errors.New("illegal action")

// IllegalActionError names the attempted action and the blocking current
// state, so a rejected caller always learns why.
type IllegalActionError struct {
	Action string
	State  State
	Detail string
}

func (e *IllegalActionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("action %q not allowed in state %s: %s", e.Action, e.State, e.Detail)
	}
	return fmt.Sprintf("action %q not allowed in state %s", e.Action, e.State)
}

func (e *IllegalActionError) Is(target error) bool {
	return target == ErrIllegalAction
}
