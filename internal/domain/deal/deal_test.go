package deal

import (
	"testing"

	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

func TestTransitions(t *testing.T) {
	d := New(42, 7, 100, 200)
	if d.Status != StatusOpen {
		t.Fatalf("new deal should be OPEN, got %s", d.Status)
	}
	if err := d.Transition(StatusBooked); err != nil {
		t.Fatalf("OPEN -> BOOKED: %v", err)
	}
	if err := d.Transition(StatusCompleted); err != nil {
		t.Fatalf("BOOKED -> COMPLETED: %v", err)
	}
	if err := d.Transition(StatusOpen); err == nil {
		t.Fatal("COMPLETED is immutable")
	}

	d = New(43, 7, 100, 200)
	if err := d.Transition(StatusDeclined); err != nil {
		t.Fatalf("OPEN -> DECLINED: %v", err)
	}
	if err := d.Transition(StatusBooked); err == nil {
		t.Fatal("DECLINED is immutable")
	}
	if d.CanTransitionTo(StatusDeclined) {
		t.Fatal("self-transition is not a transition")
	}
}

func TestStatusForState(t *testing.T) {
	cases := map[negotiation.State]Status{
		negotiation.StateInitial:            StatusOpen,
		negotiation.StateOfferSent:          StatusOpen,
		negotiation.StateAccepted:           StatusOpen,
		negotiation.StateBooked:             StatusBooked,
		negotiation.StateTestDriveConfirmed: StatusBooked,
		negotiation.StateDeliveryPending:    StatusBooked,
		negotiation.StateDeliveryConfirmed:  StatusCompleted,
		negotiation.StateDeclined:           StatusDeclined,
	}
	for state, want := range cases {
		if got := StatusForState(state); got != want {
			t.Fatalf("%s: expected %s, got %s", state, want, got)
		}
	}
}
