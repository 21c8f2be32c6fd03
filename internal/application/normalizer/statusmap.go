package normalizer

import (
	"fmt"
	"strings"

	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

// statusAliases is the single source of truth for mapping source-specific
// status strings into the closed status vocabulary. Matching is
// case-insensitive. The sources are not consistent with each other: the
// push channel says "active", the persisted schema says "yes", older rows
// say "Expired".
var statusAliases = map[string]negotiation.Status{
	"pending":               negotiation.StatusPending,
	"waiting":               negotiation.StatusPending,
	"requested":             negotiation.StatusPending,
	"in_progress":           negotiation.StatusPending,
	"scheduled":             negotiation.StatusScheduled,
	"active":                negotiation.StatusScheduled,
	"booked":                negotiation.StatusScheduled,
	"rescheduled":           negotiation.StatusRescheduled,
	"confirmed":             negotiation.StatusConfirmed,
	"yes":                   negotiation.StatusConfirmed,
	"accepted":              negotiation.StatusConfirmed,
	"captured":              negotiation.StatusConfirmed,
	"success":               negotiation.StatusConfirmed,
	"done":                  negotiation.StatusConfirmed,
	"completed":             negotiation.StatusConfirmed,
	"cancelled":             negotiation.StatusCancelled,
	"canceled":              negotiation.StatusCancelled,
	"no":                    negotiation.StatusCancelled,
	"expired":               negotiation.StatusCancelled,
	"declined":              negotiation.StatusCancelled,
	"failed":                negotiation.StatusCancelled,
	"pending_confirmation":  negotiation.StatusPendingConfirmation,
	"awaiting_confirmation": negotiation.StatusPendingConfirmation,
}

// MapStatus resolves a raw source status string into the closed vocabulary.
func MapStatus(raw string) (negotiation.Status, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", fmt.Errorf("%w: empty status", negotiation.ErrUnknownStatus)
	}
	s, ok := statusAliases[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", negotiation.ErrUnknownStatus, raw)
	}
	return s, nil
}

// pushKinds maps push-channel event types onto timeline kinds. Matching is
// case-insensitive.
var pushKinds = map[string]negotiation.Kind{
	"offer_submitted":           negotiation.KindOffer,
	"offer":                     negotiation.KindOffer,
	"counter_offer":             negotiation.KindCounterOffer,
	"offer_accepted":            negotiation.KindAcceptance,
	"offer_rejected":            negotiation.KindRejection,
	"counter_rejected_new_offer": negotiation.KindCounterRejectedFresh,
	"waiting_for_buyer":         negotiation.KindWaitingForBuyer,
	"booking_confirmed":         negotiation.KindBookingConfirmed,
	"payment_confirmed":         negotiation.KindPaymentConfirmed,
	"test_drive_scheduled":      negotiation.KindTestDriveScheduled,
	"test_drive_rescheduled":    negotiation.KindTestDriveRescheduled,
	"test_drive_confirmed":      negotiation.KindTestDriveConfirmed,
	"test_drive_cancelled":      negotiation.KindTestDriveCancelled,
	"test_drive_completed":      negotiation.KindTestDriveCompleted,
	"delivery_scheduled":        negotiation.KindDeliveryScheduled,
	"delivery_rescheduled":      negotiation.KindDeliveryRescheduled,
	"delivery_confirmed":        negotiation.KindDeliveryConfirmed,
	"delivery_cancelled":        negotiation.KindDeliveryCancelled,
	"purchase_declined":         negotiation.KindBuyerDeclinedPurchase,
	"buyer_declined_purchase":   negotiation.KindBuyerDeclinedPurchase,
}

// mapPushKind resolves a push event type into a timeline kind.
func mapPushKind(raw string) (negotiation.Kind, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	k, ok := pushKinds[key]
	if !ok {
		return "", fmt.Errorf("%w: push type %q", negotiation.ErrUnknownKind, raw)
	}
	return k, nil
}

// messageKinds maps persisted message_type values onto timeline kinds.
var messageKinds = map[string]negotiation.Kind{
	"offer":                             negotiation.KindOffer,
	"counter_offer":                     negotiation.KindCounterOffer,
	"acceptance":                        negotiation.KindAcceptance,
	"rejection":                         negotiation.KindRejection,
	"counter_rejected_with_fresh_offer": negotiation.KindCounterRejectedFresh,
	"waiting_for_buyer":                 negotiation.KindWaitingForBuyer,
	"purchase_declined":                 negotiation.KindBuyerDeclinedPurchase,
}

func mapMessageKind(raw string) (negotiation.Kind, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	k, ok := messageKinds[key]
	if !ok {
		return "", fmt.Errorf("%w: message type %q", negotiation.ErrUnknownKind, raw)
	}
	return k, nil
}

// mapRole resolves a source role string; senders outside the two-party
// vocabulary default to seller (system/dealer messages render on the seller
// side).
func mapRole(raw string) negotiation.Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(negotiation.RoleBuyer)) {
		return negotiation.RoleBuyer
	}
	return negotiation.RoleSeller
}
