package deal

import (
	"errors"
	"time"

	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

// Status is the persisted lifecycle of a deal.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusBooked    Status = "BOOKED"
	StatusCompleted Status = "COMPLETED"
	StatusDeclined  Status = "DECLINED"
)

var (
	ErrInvalidTransition = errors.New("invalid deal status transition")
	ErrNotFound          = errors.New("deal not found")
)

// Deal is one buyer/seller negotiation context over a single car. The deal
// id is the sole partition key for the event timeline.
type Deal struct {
	DealID    int64     `json:"dealId"`
	CarID     int64     `json:"carId"`
	BuyerID   int64     `json:"buyerId"`
	SellerID  int64     `json:"sellerId"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New creates a deal in the OPEN state.
func New(dealID, carID, buyerID, sellerID int64) *Deal {
	now := time.Now().UTC()
	return &Deal{
		DealID:    dealID,
		CarID:     carID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanTransitionTo checks whether a status change is valid. COMPLETED and
// DECLINED are immutable.
func (d *Deal) CanTransitionTo(target Status) bool {
	if target == d.Status {
		return false
	}
	transitions := map[Status][]Status{
		StatusOpen:      {StatusBooked, StatusCompleted, StatusDeclined},
		StatusBooked:    {StatusCompleted, StatusDeclined},
		StatusCompleted: {},
		StatusDeclined:  {},
	}
	for _, s := range transitions[d.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// Transition applies a status change after validating it.
func (d *Deal) Transition(target Status) error {
	if !d.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	d.Status = target
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// StatusForState maps a projected negotiation state onto the persisted deal
// lifecycle.
func StatusForState(s negotiation.State) Status {
	switch {
	case s == negotiation.StateDeclined:
		return StatusDeclined
	case s == negotiation.StateDeliveryConfirmed:
		return StatusCompleted
	case s.Rank() >= negotiation.StateBooked.Rank():
		return StatusBooked
	default:
		return StatusOpen
	}
}
