package negotiation

import (
	"errors"
	"fmt"
	"time"
)

// ErrDuplicate is the match target for admission rejections.
var ErrDuplicate = errors.New("duplicate event")

// DuplicateError reports why an event was rejected and which stored event it
// collides with.
type DuplicateError struct {
	ExistingID string
	Reason     string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate event (%s) of %s", e.Reason, e.ExistingID)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// Admit decides whether an event is already represented in the deal's
// existing event set. It is a pure decision function: nil means accept, a
// DuplicateError means reject.
//
// Two tiers: an exact id match always rejects; otherwise an existing event
// with the same (dealId, kind, originRole, amount) fingerprint and a
// timestamp within the tolerance window rejects. The window exists because
// the same underlying action can arrive as an optimistic local event, then a
// push confirmation, then a persisted snapshot row, each minting a different
// id.
func Admit(e *Event, existing []*Event, window time.Duration) error {
	fp := e.Fingerprint()
	for _, prev := range existing {
		if prev.DealID != e.DealID {
			continue
		}
		if prev.ID == e.ID {
			return &DuplicateError{ExistingID: prev.ID, Reason: "identity"}
		}
		if prev.Fingerprint() != fp {
			continue
		}
		delta := e.Timestamp.Sub(prev.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			return &DuplicateError{ExistingID: prev.ID, Reason: "fingerprint"}
		}
	}
	return nil
}
