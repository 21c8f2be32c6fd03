package watch

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deal-hub/deal-hub/internal/application/timeline"
	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
	"github.com/deal-hub/deal-hub/internal/infrastructure/sse"
)

// Rule is a boolean expression evaluated against a deal's projected state on
// every timeline update, e.g. `state == 'ACCEPTED' && amount >= 4500000`.
type Rule struct {
	RuleID     uuid.UUID `json:"ruleId"`
	Name       string    `json:"name"`
	Expression string    `json:"expression"`
	CreatedAt  time.Time `json:"createdAt"`

	expr *govaluate.EvaluableExpression
}

// Service holds registered watch rules and broadcasts a deal_alert SSE
// message whenever a timeline update makes a rule evaluate true. Rules see
// the buyer-side projection: the only role-dependent distinction
// (OFFER_SENT vs OFFER_RECEIVED) is rarely what a watch cares about, and a
// rule that does can test both values.
type Service struct {
	store  *timeline.Store
	hub    *sse.Hub
	logger zerolog.Logger

	mu    sync.RWMutex
	rules map[uuid.UUID]*Rule
}

// NewService creates a watch service.
func NewService(store *timeline.Store, hub *sse.Hub, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		hub:    hub,
		logger: logger.With().Str("service", "watch").Logger(),
		rules:  make(map[uuid.UUID]*Rule),
	}
}

// AddRule compiles and registers a rule.
func (s *Service) AddRule(name, expression string) (*Rule, error) {
	expr, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid watch expression: %w", err)
	}
	r := &Rule{
		RuleID:     uuid.New(),
		Name:       name,
		Expression: expression,
		CreatedAt:  time.Now().UTC(),
		expr:       expr,
	}
	s.mu.Lock()
	s.rules[r.RuleID] = r
	s.mu.Unlock()
	s.logger.Info().Str("rule_id", r.RuleID.String()).Str("name", name).Msg("watch rule added")
	return r, nil
}

// RemoveRule deletes a rule; it reports whether the rule existed.
func (s *Service) RemoveRule(ruleID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[ruleID]; !ok {
		return false
	}
	delete(s.rules, ruleID)
	return true
}

// ListRules returns the registered rules sorted by creation time.
func (s *Service) ListRules() []*Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type alertPayload struct {
	RuleID     uuid.UUID         `json:"ruleId"`
	RuleName   string            `json:"ruleName"`
	Expression string            `json:"expression"`
	DealID     int64             `json:"dealId"`
	EventID    string            `json:"eventId"`
	State      negotiation.State `json:"state"`
}

// DealUpdated implements the timeline store's change-notification hook:
// projects the deal and evaluates every rule against the update.
func (s *Service) DealUpdated(dealID int64, eventID string, reason string) {
	s.mu.RLock()
	rules := make([]*Rule, 0, len(s.rules))
	for _, r := range s.rules {
		rules = append(rules, r)
	}
	s.mu.RUnlock()
	if len(rules) == 0 {
		return
	}

	events := s.store.Events(dealID)
	state := negotiation.Project(events, negotiation.RoleBuyer)
	params := map[string]interface{}{
		"dealId": dealID,
		"state":  string(state),
		"reason": reason,
		"kind":   "",
		"amount": float64(0),
	}
	if e, err := s.store.GetEvent(dealID, eventID); err == nil {
		params["kind"] = string(e.Kind)
		if e.Amount != nil {
			params["amount"] = float64(*e.Amount)
		}
	}

	for _, r := range rules {
		result, err := r.expr.Evaluate(params)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("rule_id", r.RuleID.String()).
				Int64("deal_id", dealID).
				Msg("watch rule evaluation failed")
			continue
		}
		matched, ok := result.(bool)
		if !ok || !matched {
			continue
		}
		data, err := json.Marshal(alertPayload{
			RuleID:     r.RuleID,
			RuleName:   r.Name,
			Expression: r.Expression,
			DealID:     dealID,
			EventID:    eventID,
			State:      state,
		})
		if err != nil {
			continue
		}
		s.hub.BroadcastDeal(dealID, sse.NewMessage("deal_alert", dealID, data))
		s.logger.Info().
			Str("rule_id", r.RuleID.String()).
			Int64("deal_id", dealID).
			Str("state", string(state)).
			Msg("watch rule matched")
	}
}
