package negotiation

// State is the derived top-level negotiation state. It is recomputed from
// the timeline on every read and never stored.
type State string

const (
	StateInitial            State = "INITIAL"
	StateOfferSent          State = "OFFER_SENT"
	StateOfferReceived      State = "OFFER_RECEIVED"
	StateAccepted           State = "ACCEPTED"
	StateRejected           State = "REJECTED"
	StateBooked             State = "BOOKED"
	StateTestDrivePending   State = "TEST_DRIVE_PENDING"
	StateTestDriveConfirmed State = "TEST_DRIVE_CONFIRMED"
	StateTestDriveCompleted State = "TEST_DRIVE_COMPLETED"
	StateDeliveryPending    State = "DELIVERY_PENDING"
	StateDeliveryConfirmed  State = "DELIVERY_CONFIRMED"
	StateDeclined           State = "DECLINED"
)

var stateRank = map[State]int{
	StateInitial:            0,
	StateOfferSent:          1,
	StateOfferReceived:      1,
	StateAccepted:           2,
	StateRejected:           2,
	StateBooked:             3,
	StateTestDrivePending:   4,
	StateTestDriveConfirmed: 5,
	StateTestDriveCompleted: 6,
	StateDeliveryPending:    7,
	StateDeliveryConfirmed:  8,
	StateDeclined:           9,
}

// Rank orders states by negotiation progress.
func (s State) Rank() int {
	return stateRank[s]
}

// Project folds an ordered event sequence for one deal into the current
// negotiation state as seen by the viewing role. It is a pure function of
// the log: the input must already be sorted by timestamp with insertion-
// sequence tie-break, which is the timeline store's ordering guarantee.
//
// The top-level state is the maximum progress across offer negotiation,
// booking, test drive and delivery; a buyer_declined_purchase event
// short-circuits everything to DECLINED.
func Project(events []*Event, viewer Role) State {
	offer := StateInitial
	var openOffer *Event
	var resolvedOffer *Event
	booked := false

	for _, e := range events {
		switch {
		case e.Kind == KindBuyerDeclinedPurchase:
			return StateDeclined
		case e.Kind.IsOfferFamily():
			openOffer = e
			if e.OriginRole == viewer {
				offer = StateOfferSent
			} else {
				offer = StateOfferReceived
			}
		case e.Kind == KindAcceptance || e.Kind == KindRejection:
			// With the round already closed, only a resolution of the
			// resolved subject itself may revise the outcome. A stray
			// resolution naming some other subject is stale.
			target := openOffer
			if target == nil {
				target = resolvedOffer
			}
			if !resolvesOffer(target, e) {
				continue
			}
			if e.Kind == KindAcceptance {
				offer = StateAccepted
			} else {
				offer = StateRejected
			}
			if openOffer != nil {
				resolvedOffer = openOffer
				openOffer = nil
			}
		case e.Kind == KindBookingConfirmed || e.Kind == KindPaymentConfirmed:
			booked = true
		}
	}

	top := offer
	if booked && StateBooked.Rank() > top.Rank() {
		top = StateBooked
	}
	if td := testDriveState(events); td != "" && td.Rank() > top.Rank() {
		top = td
	}
	if del := deliveryState(events); del != "" && del.Rank() > top.Rank() {
		top = del
	}
	return top
}

// resolvesOffer reports whether an acceptance/rejection applies to the
// given offer. A resolution naming a different subject is stale and must
// not close a fresher offer or reopen a settled round.
func resolvesOffer(offer, resolution *Event) bool {
	if offer == nil {
		return true
	}
	if resolution.SubjectID == nil || offer.SubjectID == nil {
		return true
	}
	return *resolution.SubjectID == *offer.SubjectID
}

func testDriveState(events []*Event) State {
	for _, e := range events {
		if e.Kind == KindTestDriveCompleted {
			return StateTestDriveCompleted
		}
	}
	latest := LatestScheduling(events, Kind.IsTestDriveFamily)
	if latest == nil {
		return ""
	}
	switch latest.EffectiveStatus() {
	case StatusCancelled:
		return ""
	case StatusConfirmed:
		return StateTestDriveConfirmed
	default:
		return StateTestDrivePending
	}
}

func deliveryState(events []*Event) State {
	latest := LatestScheduling(events, Kind.IsDeliveryFamily)
	if latest == nil {
		return ""
	}
	switch latest.EffectiveStatus() {
	case StatusCancelled:
		return ""
	case StatusConfirmed:
		return StateDeliveryConfirmed
	default:
		return StateDeliveryPending
	}
}

// OpenOffer returns the most recent offer-family event not resolved by a
// later acceptance or rejection, or nil when no offer is outstanding.
func OpenOffer(events []*Event) *Event {
	var open *Event
	for _, e := range events {
		switch {
		case e.Kind.IsOfferFamily():
			open = e
		case e.Kind == KindAcceptance || e.Kind == KindRejection:
			if resolvesOffer(open, e) {
				open = nil
			}
		case e.Kind == KindBuyerDeclinedPurchase:
			open = nil
		}
	}
	return open
}

// LatestScheduling returns the most recent scheduling event of a family in
// the ordered sequence. Only this event's subject is actionable: older
// entries remain in the log for history but are implicitly superseded.
func LatestScheduling(events []*Event, family func(Kind) bool) *Event {
	for i := len(events) - 1; i >= 0; i-- {
		if family(events[i].Kind) {
			return events[i]
		}
	}
	return nil
}

// LatestForSubject returns the most recent scheduling event carrying the
// given subject id, or nil.
func LatestForSubject(events []*Event, subjectID int64) *Event {
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.Kind.IsScheduling() && e.SubjectID != nil && *e.SubjectID == subjectID {
			return e
		}
	}
	return nil
}

// EffectiveStatus is the scheduling sub-state of the event: the explicit
// status when present, otherwise the status implied by the kind.
func (e *Event) EffectiveStatus() Status {
	if e.Status != nil {
		return *e.Status
	}
	switch e.Kind {
	case KindTestDriveScheduled, KindDeliveryScheduled:
		return StatusScheduled
	case KindTestDriveRescheduled, KindDeliveryRescheduled:
		return StatusRescheduled
	case KindTestDriveConfirmed, KindTestDriveCompleted, KindDeliveryConfirmed:
		return StatusConfirmed
	case KindTestDriveCancelled, KindDeliveryCancelled:
		return StatusCancelled
	default:
		return StatusPending
	}
}

// ActionableStatus reports whether a scheduling event in status s can still
// be confirmed, cancelled or rescheduled by the given role. Only the buyer
// may act on pending_confirmation.
func ActionableStatus(s Status, role Role) bool {
	switch s {
	case StatusPending, StatusScheduled, StatusRescheduled:
		return true
	case StatusPendingConfirmation:
		return role == RoleBuyer
	}
	return false
}
