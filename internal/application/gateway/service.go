package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/deal-hub/deal-hub/internal/application/normalizer"
	"github.com/deal-hub/deal-hub/internal/application/timeline"
	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

// Action is a caller-requested negotiation action.
type Action string

const (
	ActionOffer               Action = "offer"
	ActionAccept              Action = "accept"
	ActionReject              Action = "reject"
	ActionCounter             Action = "counter"
	ActionScheduleTestDrive   Action = "schedule_test_drive"
	ActionRescheduleTestDrive Action = "reschedule_test_drive"
	ActionConfirmTestDrive    Action = "confirm_test_drive"
	ActionCancelTestDrive     Action = "cancel_test_drive"
	ActionScheduleDelivery    Action = "schedule_delivery"
	ActionRescheduleDelivery  Action = "reschedule_delivery"
	ActionConfirmDelivery     Action = "confirm_delivery"
	ActionCancelDelivery      Action = "cancel_delivery"
	ActionDeclinePurchase     Action = "decline_purchase"
)

// Payload carries the action parameters.
type Payload struct {
	Role      negotiation.Role `json:"role"`
	Amount    *int64           `json:"amount,omitempty"`
	SubjectID *int64           `json:"subjectId,omitempty"`
}

// Result reports a validated, optimistically applied action. The
// authoritative round trip completes in the background; its push/snapshot
// echo later collapses with the optimistic event in the deduplicator.
type Result struct {
	Event         *negotiation.Event `json:"event"`
	State         negotiation.State  `json:"state"`
	CorrelationID string             `json:"correlationId"`
}

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_client.go -package=mocks . ActionClient

// ActionClient issues the authoritative request to the marketplace.
type ActionClient interface {
	Perform(ctx context.Context, dealID int64, action string, payload Payload, correlationID string) error
}

// Service validates caller-requested actions against the projected state and
// emits the optimistic local event before the authoritative round trip
// completes.
type Service struct {
	store          *timeline.Store
	norm           *normalizer.Service
	client         ActionClient
	logger         zerolog.Logger
	requestTimeout time.Duration
}

// NewService creates an action gateway.
func NewService(store *timeline.Store, norm *normalizer.Service, client ActionClient, logger zerolog.Logger) *Service {
	return &Service{
		store:          store,
		norm:           norm,
		client:         client,
		logger:         logger.With().Str("service", "gateway").Logger(),
		requestTimeout: 15 * time.Second,
	}
}

// RequestAction validates legality, appends the optimistic event, and
// dispatches the authoritative request. On validation failure it returns an
// IllegalActionError naming the attempted action and the blocking state,
// never a silent no-op.
func (s *Service) RequestAction(ctx context.Context, dealID int64, action Action, payload Payload) (*Result, error) {
	if payload.Role != negotiation.RoleBuyer && payload.Role != negotiation.RoleSeller {
		return nil, fmt.Errorf("unknown role %q", payload.Role)
	}
	events := s.store.Events(dealID)
	state := negotiation.Project(events, payload.Role)

	if err := s.validate(events, state, action, payload); err != nil {
		s.logger.Info().
			Int64("deal_id", dealID).
			Str("action", string(action)).
			Str("state", string(state)).
			Err(err).
			Msg("action rejected")
		return nil, err
	}

	local := normalizer.LocalAction{
		Action:    string(action),
		DealID:    dealID,
		Role:      string(payload.Role),
		Amount:    payload.Amount,
		SubjectID: payload.SubjectID,
		At:        time.Now().UTC(),
	}
	event, err := s.norm.NormalizeLocal(local)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Append(ctx, event); err != nil {
		return nil, err
	}

	correlationID := ulid.Make().String()
	go s.dispatch(dealID, action, payload, correlationID)

	s.logger.Info().
		Int64("deal_id", dealID).
		Str("action", string(action)).
		Str("event_id", event.ID).
		Str("correlation_id", correlationID).
		Msg("optimistic event emitted")

	return &Result{
		Event:         event,
		State:         negotiation.Project(s.store.Events(dealID), payload.Role),
		CorrelationID: correlationID,
	}, nil
}

// dispatch issues the authoritative request with its own timeout. A failure
// is logged; the optimistic event stays and the next sync reconciles the
// truth.
func (s *Service) dispatch(dealID int64, action Action, payload Payload, correlationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()
	if err := s.client.Perform(ctx, dealID, string(action), payload, correlationID); err != nil {
		s.logger.Warn().Err(err).
			Int64("deal_id", dealID).
			Str("action", string(action)).
			Str("correlation_id", correlationID).
			Msg("authoritative request failed")
	}
}

func (s *Service) validate(events []*negotiation.Event, state negotiation.State, action Action, payload Payload) error {
	illegal := func(detail string) error {
		return &negotiation.IllegalActionError{Action: string(action), State: state, Detail: detail}
	}

	if state == negotiation.StateDeclined {
		return illegal("negotiation was declined")
	}

	switch action {
	case ActionOffer:
		if payload.Role != negotiation.RoleBuyer {
			return illegal("only the buyer opens a negotiation")
		}
		if payload.Amount == nil {
			return illegal("offer requires an amount")
		}
		if open := negotiation.OpenOffer(events); open != nil {
			return illegal("an offer is already outstanding")
		}
		return nil

	case ActionAccept, ActionReject:
		if state != negotiation.StateOfferReceived {
			return illegal("no unresolved offer from the other party")
		}
		return nil

	case ActionCounter:
		if state != negotiation.StateOfferSent && state != negotiation.StateOfferReceived {
			return illegal("no active negotiation round")
		}
		if payload.Amount == nil {
			return illegal("counter requires an amount")
		}
		return nil

	case ActionScheduleTestDrive:
		return s.validateSchedule(events, state, negotiation.Kind.IsTestDriveFamily, illegal)
	case ActionScheduleDelivery:
		return s.validateSchedule(events, state, negotiation.Kind.IsDeliveryFamily, illegal)

	case ActionConfirmTestDrive, ActionCancelTestDrive, ActionRescheduleTestDrive:
		return s.validateSubjectAction(events, negotiation.Kind.IsTestDriveFamily, payload, illegal)
	case ActionConfirmDelivery, ActionCancelDelivery, ActionRescheduleDelivery:
		return s.validateSubjectAction(events, negotiation.Kind.IsDeliveryFamily, payload, illegal)

	case ActionDeclinePurchase:
		if payload.Role != negotiation.RoleBuyer {
			return illegal("only the buyer can decline the purchase")
		}
		if state == negotiation.StateDeliveryConfirmed {
			return illegal("purchase already completed")
		}
		return nil

	default:
		return illegal("unknown action")
	}
}

func (s *Service) validateSchedule(
	events []*negotiation.Event,
	state negotiation.State,
	family func(negotiation.Kind) bool,
	illegal func(string) error,
) error {
	if state.Rank() < negotiation.StateBooked.Rank() {
		return illegal("deal is not booked yet")
	}
	if latest := negotiation.LatestScheduling(events, family); latest != nil {
		if !negotiation.IsTerminalStatus(latest.EffectiveStatus()) {
			return illegal(fmt.Sprintf("subject %s is still active", subjectLabel(latest)))
		}
	}
	return nil
}

// validateSubjectAction enforces that only the single most-recent,
// non-terminal scheduling entry of a family is actionable. Acting on a
// superseded subject fails naming the currently actionable one.
func (s *Service) validateSubjectAction(
	events []*negotiation.Event,
	family func(negotiation.Kind) bool,
	payload Payload,
	illegal func(string) error,
) error {
	if payload.SubjectID == nil {
		return illegal("subject id required")
	}
	latest := negotiation.LatestScheduling(events, family)
	if latest == nil {
		return illegal("nothing is scheduled")
	}
	if latest.SubjectID == nil || *latest.SubjectID != *payload.SubjectID {
		return illegal(fmt.Sprintf(
			"subject %d is superseded; current actionable subject is %s",
			*payload.SubjectID, subjectLabel(latest)))
	}
	status := latest.EffectiveStatus()
	if !negotiation.ActionableStatus(status, payload.Role) {
		return illegal(fmt.Sprintf("subject %s is %s", subjectLabel(latest), status))
	}
	return nil
}

func subjectLabel(e *negotiation.Event) string {
	if e.SubjectID == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *e.SubjectID)
}
