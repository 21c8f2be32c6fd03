package normalizer

import "time"

// PushPayload is the wire shape of a push-channel event. Fields may be
// partial: the deal id in particular sometimes arrives only nested under the
// deal object.
type PushPayload struct {
	EventID   string    `json:"eventId,omitempty"`
	Type      string    `json:"type"`
	DealID    int64     `json:"dealId,omitempty"`
	Deal      *DealRef  `json:"deal,omitempty"`
	Role      string    `json:"role,omitempty"`
	Amount    *int64    `json:"amount,omitempty"`
	SubjectID *int64    `json:"subjectId,omitempty"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DealRef is the nested deal object some push payloads carry instead of a
// top-level dealId.
type DealRef struct {
	ID int64 `json:"id"`
}

// MessageRow is a persisted negotiation message in the snapshot schema.
type MessageRow struct {
	ID            int64     `json:"id"`
	DealID        int64     `json:"deal_id"`
	MessageType   string    `json:"message_type"`
	SenderRole    string    `json:"sender_role"`
	Amount        *int64    `json:"amount,omitempty"`
	NegotiationID *int64    `json:"negotiation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentRow is a persisted payment in the snapshot schema.
type PaymentRow struct {
	ID         int64     `json:"id"`
	DealID     int64     `json:"deal_id"`
	Amount     int64     `json:"amount"`
	Purpose    string    `json:"purpose"` // "booking" or "full_payment"
	Status     string    `json:"status"`
	CapturedAt time.Time `json:"captured_at"`
}

// TestDriveRow is a persisted test drive in the snapshot schema.
type TestDriveRow struct {
	ID          int64     `json:"id"`
	DealID      int64     `json:"deal_id"`
	Status      string    `json:"status"`
	ScheduledBy string    `json:"scheduled_by"`
	Rescheduled bool      `json:"rescheduled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DeliveryRow is a persisted delivery in the snapshot schema.
type DeliveryRow struct {
	ID          int64     `json:"id"`
	DealID      int64     `json:"deal_id"`
	Status      string    `json:"status"`
	ScheduledBy string    `json:"scheduled_by"`
	Rescheduled bool      `json:"rescheduled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DealRow is the persisted deal metadata in the snapshot schema.
type DealRow struct {
	ID        int64     `json:"id"`
	CarID     int64     `json:"car_id"`
	BuyerID   int64     `json:"buyer_id"`
	SellerID  int64     `json:"seller_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// LocalAction describes a caller-originated action before it has any
// authoritative confirmation.
type LocalAction struct {
	Action    string
	DealID    int64
	Role      string
	Amount    *int64
	SubjectID *int64
	At        time.Time
}
