package sse

import (
	"encoding/json"
)

// TimelineNotifier bridges timeline updates onto the SSE hub: every admit or
// status change becomes a deal_updated message for that deal's subscribers.
type TimelineNotifier struct {
	hub *Hub
}

func NewTimelineNotifier(hub *Hub) *TimelineNotifier {
	return &TimelineNotifier{hub: hub}
}

type dealUpdatePayload struct {
	DealID  int64  `json:"dealId"`
	EventID string `json:"eventId"`
	Reason  string `json:"reason"`
}

// DealUpdated implements the timeline store's change-notification hook.
func (n *TimelineNotifier) DealUpdated(dealID int64, eventID string, reason string) {
	data, err := json.Marshal(dealUpdatePayload{DealID: dealID, EventID: eventID, Reason: reason})
	if err != nil {
		return
	}
	n.hub.BroadcastDeal(dealID, NewMessage("deal_updated", dealID, data))
}
