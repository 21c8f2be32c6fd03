package normalizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

// Service converts every inbound raw shape (push payloads, persisted
// snapshot rows, local action descriptors) into the canonical
// negotiation.Event. Events without a resolvable deal id are dropped, never
// guessed.
type Service struct {
	window time.Duration
	logger zerolog.Logger
}

// NewService creates a normalizer. The window is the dedup tolerance used
// when deriving content-fingerprint ids for sources without a persisted
// identifier.
func NewService(window time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		window: window,
		logger: logger.With().Str("service", "normalizer").Logger(),
	}
}

// NormalizePush converts a push-channel payload. The deal id may live at
// the top level or nested under the deal object.
func (s *Service) NormalizePush(p PushPayload) (*negotiation.Event, error) {
	dealID := p.DealID
	if dealID == 0 && p.Deal != nil {
		dealID = p.Deal.ID
	}
	if dealID == 0 {
		return nil, negotiation.ErrMissingDealID
	}
	kind, err := mapPushKind(p.Type)
	if err != nil {
		return nil, err
	}
	role := mapRole(p.Role)
	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	e := &negotiation.Event{
		DealID:     dealID,
		Kind:       kind,
		OriginRole: role,
		Amount:     p.Amount,
		SubjectID:  p.SubjectID,
		Timestamp:  ts.UTC(),
		Source:     negotiation.SourcePush,
	}
	if kind.IsScheduling() && p.Status != "" {
		st, err := MapStatus(p.Status)
		if err != nil {
			return nil, err
		}
		e.Status = &st
	}
	if p.EventID != "" {
		e.ID = "push-" + p.EventID
	} else {
		e.ID = negotiation.FingerprintID(dealID, kind, role, p.Amount, e.Timestamp, s.window)
	}
	return e, e.Validate()
}

// NormalizeMessage converts a persisted negotiation message row. Persisted
// rows carry a stable id, so the event id is deterministic across fetches.
func (s *Service) NormalizeMessage(row MessageRow) (*negotiation.Event, error) {
	if row.DealID == 0 {
		return nil, negotiation.ErrMissingDealID
	}
	kind, err := mapMessageKind(row.MessageType)
	if err != nil {
		return nil, err
	}
	e := &negotiation.Event{
		ID:         fmt.Sprintf("db-msg-%d", row.ID),
		DealID:     row.DealID,
		Kind:       kind,
		OriginRole: mapRole(row.SenderRole),
		Amount:     row.Amount,
		SubjectID:  row.NegotiationID,
		Timestamp:  row.CreatedAt.UTC(),
		Source:     negotiation.SourceSnapshot,
	}
	return e, e.Validate()
}

// NormalizePayment converts a persisted payment row. Only captured payments
// produce timeline events; a pending payment is not yet a fact.
func (s *Service) NormalizePayment(row PaymentRow) (*negotiation.Event, error) {
	if row.DealID == 0 {
		return nil, negotiation.ErrMissingDealID
	}
	st, err := MapStatus(row.Status)
	if err != nil {
		return nil, err
	}
	if st != negotiation.StatusConfirmed {
		return nil, fmt.Errorf("payment %d not captured: %w", row.ID, errSkipRow)
	}
	kind := negotiation.KindPaymentConfirmed
	if row.Purpose == "booking" {
		kind = negotiation.KindBookingConfirmed
	}
	amount := row.Amount
	subject := row.ID
	e := &negotiation.Event{
		ID:         fmt.Sprintf("db-pay-%d", row.ID),
		DealID:     row.DealID,
		Kind:       kind,
		OriginRole: negotiation.RoleBuyer,
		Amount:     &amount,
		SubjectID:  &subject,
		Timestamp:  row.CapturedAt.UTC(),
		Source:     negotiation.SourceSnapshot,
	}
	return e, e.Validate()
}

// NormalizeTestDrive converts a persisted test drive row.
func (s *Service) NormalizeTestDrive(row TestDriveRow) (*negotiation.Event, error) {
	return s.normalizeScheduling(
		row.DealID, row.ID, row.Status, row.ScheduledBy, row.Rescheduled, row.UpdatedAt,
		"db-td-%d",
		negotiation.KindTestDriveScheduled, negotiation.KindTestDriveRescheduled,
	)
}

// NormalizeDelivery converts a persisted delivery row.
func (s *Service) NormalizeDelivery(row DeliveryRow) (*negotiation.Event, error) {
	return s.normalizeScheduling(
		row.DealID, row.ID, row.Status, row.ScheduledBy, row.Rescheduled, row.UpdatedAt,
		"db-del-%d",
		negotiation.KindDeliveryScheduled, negotiation.KindDeliveryRescheduled,
	)
}

func (s *Service) normalizeScheduling(
	dealID, rowID int64,
	rawStatus, scheduledBy string,
	rescheduled bool,
	updatedAt time.Time,
	idFormat string,
	scheduledKind, rescheduledKind negotiation.Kind,
) (*negotiation.Event, error) {
	if dealID == 0 {
		return nil, negotiation.ErrMissingDealID
	}
	st, err := MapStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	kind := scheduledKind
	if rescheduled {
		kind = rescheduledKind
	}
	subject := rowID
	e := &negotiation.Event{
		ID:         fmt.Sprintf(idFormat, rowID),
		DealID:     dealID,
		Kind:       kind,
		OriginRole: mapRole(scheduledBy),
		SubjectID:  &subject,
		Status:     &st,
		Timestamp:  updatedAt.UTC(),
		Source:     negotiation.SourceSnapshot,
	}
	return e, e.Validate()
}

// NormalizeLocal converts a caller-originated action descriptor into an
// optimistic event. The id is a content fingerprint so that the push or
// snapshot confirmation of the same action can collide with it.
func (s *Service) NormalizeLocal(a LocalAction) (*negotiation.Event, error) {
	if a.DealID == 0 {
		return nil, negotiation.ErrMissingDealID
	}
	kind, st, err := mapLocalAction(a.Action)
	if err != nil {
		return nil, err
	}
	at := a.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	role := mapRole(a.Role)
	e := &negotiation.Event{
		ID:         negotiation.FingerprintID(a.DealID, kind, role, a.Amount, at.UTC(), s.window),
		DealID:     a.DealID,
		Kind:       kind,
		OriginRole: role,
		Amount:     a.Amount,
		SubjectID:  a.SubjectID,
		Timestamp:  at.UTC(),
		Source:     negotiation.SourceOptimistic,
	}
	if st != "" {
		status := st
		e.Status = &status
	}
	return e, e.Validate()
}

// mapLocalAction resolves a gateway action name into the kind it appends and
// the scheduling status the optimistic copy carries.
var localActions = map[string]struct {
	kind   negotiation.Kind
	status negotiation.Status
}{
	"offer":                 {kind: negotiation.KindOffer},
	"accept":                {kind: negotiation.KindAcceptance},
	"reject":                {kind: negotiation.KindRejection},
	"counter":               {kind: negotiation.KindCounterOffer},
	"schedule_test_drive":   {kind: negotiation.KindTestDriveScheduled, status: negotiation.StatusScheduled},
	"reschedule_test_drive": {kind: negotiation.KindTestDriveRescheduled, status: negotiation.StatusRescheduled},
	"confirm_test_drive":    {kind: negotiation.KindTestDriveConfirmed, status: negotiation.StatusConfirmed},
	"cancel_test_drive":     {kind: negotiation.KindTestDriveCancelled, status: negotiation.StatusCancelled},
	"schedule_delivery":     {kind: negotiation.KindDeliveryScheduled, status: negotiation.StatusScheduled},
	"reschedule_delivery":   {kind: negotiation.KindDeliveryRescheduled, status: negotiation.StatusRescheduled},
	"confirm_delivery":      {kind: negotiation.KindDeliveryConfirmed, status: negotiation.StatusConfirmed},
	"cancel_delivery":       {kind: negotiation.KindDeliveryCancelled, status: negotiation.StatusCancelled},
	"decline_purchase":      {kind: negotiation.KindBuyerDeclinedPurchase},
}

func mapLocalAction(action string) (negotiation.Kind, negotiation.Status, error) {
	m, ok := localActions[action]
	if !ok {
		return "", "", fmt.Errorf("%w: local action %q", negotiation.ErrUnknownKind, action)
	}
	return m.kind, m.status, nil
}

// errSkipRow marks snapshot rows that are valid but not yet timeline facts.
var errSkipRow = errors.New("row skipped")

// IsSkip reports whether a normalization error means "ignore this row"
// rather than "this row is malformed".
func IsSkip(err error) bool {
	return errors.Is(err, errSkipRow)
}
