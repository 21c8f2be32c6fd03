package negotiation

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Kind is the closed vocabulary of timeline event variants.
type Kind string

const (
	KindOffer                  Kind = "offer"
	KindCounterOffer           Kind = "counter_offer"
	KindAcceptance             Kind = "acceptance"
	KindRejection              Kind = "rejection"
	KindCounterRejectedFresh   Kind = "counter_rejected_with_fresh_offer"
	KindWaitingForBuyer        Kind = "waiting_for_buyer"
	KindBookingConfirmed       Kind = "booking_confirmed"
	KindPaymentConfirmed       Kind = "payment_confirmed"
	KindTestDriveScheduled     Kind = "test_drive_scheduled"
	KindTestDriveRescheduled   Kind = "test_drive_rescheduled"
	KindTestDriveConfirmed     Kind = "test_drive_confirmed"
	KindTestDriveCancelled     Kind = "test_drive_cancelled"
	KindTestDriveCompleted     Kind = "test_drive_completed"
	KindDeliveryScheduled      Kind = "delivery_scheduled"
	KindDeliveryRescheduled    Kind = "delivery_rescheduled"
	KindDeliveryConfirmed      Kind = "delivery_confirmed"
	KindDeliveryCancelled      Kind = "delivery_cancelled"
	KindBuyerDeclinedPurchase  Kind = "buyer_declined_purchase"
)

// Role identifies whose action produced an event.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Source records which channel delivered an event. Retained for dedup
// heuristics, never used for ordering.
type Source string

const (
	SourcePush       Source = "push"
	SourceSnapshot   Source = "rest_snapshot"
	SourceOptimistic Source = "optimistic_local"
)

// Status is the sub-state carried by scheduling events.
type Status string

const (
	StatusPending             Status = "pending"
	StatusScheduled           Status = "scheduled"
	StatusRescheduled         Status = "rescheduled"
	StatusConfirmed           Status = "confirmed"
	StatusCancelled           Status = "cancelled"
	StatusPendingConfirmation Status = "pending_confirmation"
)

var (
	ErrMissingDealID = errors.New("event has no resolvable deal id")
	ErrUnknownKind   = errors.New("unknown event kind")
	ErrUnknownStatus = errors.New("unknown status value")
	ErrEventNotFound = errors.New("event not found")
)

// Event is one atomic, timestamped fact in a deal's timeline.
type Event struct {
	ID         string     `json:"id"`
	DealID     int64      `json:"dealId"`
	Kind       Kind       `json:"kind"`
	OriginRole Role       `json:"originRole"`
	Amount     *int64     `json:"amount,omitempty"`
	SubjectID  *int64     `json:"subjectId,omitempty"`
	Status     *Status    `json:"status,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	Source     Source     `json:"source"`

	// Seq is the insertion sequence assigned by the timeline store,
	// used only to break timestamp ties.
	Seq int64 `json:"seq"`
}

// IsOfferFamily reports whether the kind opens or reopens a negotiation round.
func (k Kind) IsOfferFamily() bool {
	switch k {
	case KindOffer, KindCounterOffer, KindCounterRejectedFresh:
		return true
	}
	return false
}

// IsTestDriveFamily reports whether the kind belongs to the test-drive track.
func (k Kind) IsTestDriveFamily() bool {
	switch k {
	case KindTestDriveScheduled, KindTestDriveRescheduled, KindTestDriveConfirmed,
		KindTestDriveCancelled, KindTestDriveCompleted:
		return true
	}
	return false
}

// IsDeliveryFamily reports whether the kind belongs to the delivery track.
func (k Kind) IsDeliveryFamily() bool {
	switch k {
	case KindDeliveryScheduled, KindDeliveryRescheduled, KindDeliveryConfirmed,
		KindDeliveryCancelled:
		return true
	}
	return false
}

// IsScheduling reports whether the kind refers to a schedulable subject.
func (k Kind) IsScheduling() bool {
	return k.IsTestDriveFamily() || k.IsDeliveryFamily()
}

// IsTerminalStatus reports whether a scheduling status can no longer change.
func IsTerminalStatus(s Status) bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Valid reports whether k is part of the closed kind vocabulary.
func (k Kind) Valid() bool {
	switch k {
	case KindOffer, KindCounterOffer, KindAcceptance, KindRejection,
		KindCounterRejectedFresh, KindWaitingForBuyer, KindBookingConfirmed,
		KindPaymentConfirmed, KindTestDriveScheduled, KindTestDriveRescheduled,
		KindTestDriveConfirmed, KindTestDriveCancelled, KindTestDriveCompleted,
		KindDeliveryScheduled, KindDeliveryRescheduled, KindDeliveryConfirmed,
		KindDeliveryCancelled, KindBuyerDeclinedPurchase:
		return true
	}
	return false
}

// Fingerprint is the tuple used to recognize the same real-world action
// arriving through different channels.
type Fingerprint struct {
	DealID int64
	Kind   Kind
	Role   Role
	Amount int64
}

// Fingerprint returns the dedup tuple for the event. A nil amount
// fingerprints as zero.
func (e *Event) Fingerprint() Fingerprint {
	fp := Fingerprint{DealID: e.DealID, Kind: e.Kind, Role: e.OriginRole}
	if e.Amount != nil {
		fp.Amount = *e.Amount
	}
	return fp
}

// FingerprintID derives a deterministic event id from content for sources
// that carry no persisted identifier. The timestamp is bucketed to the dedup
// tolerance window so the same fact minted on two channels within the window
// usually collides at the identity tier; the fingerprint tier catches the
// bucket-boundary cases.
func FingerprintID(dealID int64, kind Kind, role Role, amount *int64, ts time.Time, window time.Duration) string {
	amt := int64(0)
	if amount != nil {
		amt = *amount
	}
	bucket := int64(0)
	if window > 0 {
		bucket = ts.UnixNano() / int64(window)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%d|%d", dealID, kind, role, amt, bucket)))
	return "fp-" + hex.EncodeToString(sum[:12])
}

// Validate checks the structural invariants an event must satisfy before it
// may enter a timeline.
func (e *Event) Validate() error {
	if e.DealID == 0 {
		return ErrMissingDealID
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	if e.ID == "" {
		return errors.New("event has no id")
	}
	if e.Timestamp.IsZero() {
		return errors.New("event has no timestamp")
	}
	return nil
}
