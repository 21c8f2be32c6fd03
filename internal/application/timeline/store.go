package timeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

// Notifier receives a discrete signal whenever a deal's timeline gains an
// event or an event's status changes. How a consumer reacts is not the
// store's concern.
type Notifier interface {
	DealUpdated(dealID int64, eventID string, reason string)
}

// Archiver persists admitted events so timelines survive a restart.
// Archive failures are logged and never block admission.
type Archiver interface {
	ArchiveEvent(ctx context.Context, e *negotiation.Event) error
	UpdateEventStatus(ctx context.Context, dealID int64, eventID string, status negotiation.Status) error
}

const (
	reasonAppended      = "appended"
	reasonStatusUpdated = "status_updated"
)

// Store is the ordered, append-only-per-deal log of negotiation events. It
// is the single serialization point for a deal: concurrent admits for the
// same deal are serialized behind a per-deal lock so the deduplicator always
// sees a consistent snapshot of the existing set. Different deals share
// nothing but the outer map.
type Store struct {
	mu        sync.RWMutex
	deals     map[int64]*dealLog
	window    time.Duration
	notifiers []Notifier
	archiver  Archiver
	logger    zerolog.Logger
}

type dealLog struct {
	mu     sync.Mutex
	events []*negotiation.Event
	byID   map[string]*negotiation.Event
	seq    int64
}

// NewStore creates a timeline store with the given dedup tolerance window.
func NewStore(window time.Duration, logger zerolog.Logger) *Store {
	return &Store{
		deals:  make(map[int64]*dealLog),
		window: window,
		logger: logger.With().Str("service", "timeline").Logger(),
	}
}

// AddNotifier registers a change-notification hook. Safe to call while the
// store is serving traffic; the new notifier sees subsequent changes.
func (s *Store) AddNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

// SetArchiver attaches the write-through event archive.
func (s *Store) SetArchiver(a Archiver) {
	s.archiver = a
}

// Append runs the event through the deduplicator and inserts it into the
// deal's ordered log. It returns false (and no error) when the event is a
// duplicate: dedup rejection is an expected outcome, not a failure.
func (s *Store) Append(ctx context.Context, e *negotiation.Event) (bool, error) {
	return s.append(ctx, e, true)
}

// Hydrate admits an event without firing notifiers or re-archiving, used
// when replaying the archive at startup.
func (s *Store) Hydrate(e *negotiation.Event) (bool, error) {
	return s.append(context.Background(), e, false)
}

func (s *Store) append(ctx context.Context, e *negotiation.Event, live bool) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}
	log := s.dealLog(e.DealID, true)

	log.mu.Lock()
	if err := negotiation.Admit(e, log.events, s.window); err != nil {
		log.mu.Unlock()
		var dup *negotiation.DuplicateError
		if errors.As(err, &dup) {
			s.logger.Debug().
				Int64("deal_id", e.DealID).
				Str("event_id", e.ID).
				Str("existing_id", dup.ExistingID).
				Str("reason", dup.Reason).
				Msg("duplicate event rejected")
			return false, nil
		}
		return false, err
	}
	log.seq++
	e.Seq = log.seq
	idx := sort.Search(len(log.events), func(i int) bool {
		return log.events[i].Timestamp.After(e.Timestamp)
	})
	log.events = append(log.events, nil)
	copy(log.events[idx+1:], log.events[idx:])
	log.events[idx] = e
	log.byID[e.ID] = e
	log.mu.Unlock()

	if live {
		if s.archiver != nil {
			if err := s.archiver.ArchiveEvent(ctx, e); err != nil {
				s.logger.Warn().Err(err).
					Int64("deal_id", e.DealID).
					Str("event_id", e.ID).
					Msg("event archive write failed")
			}
		}
		s.notify(e.DealID, e.ID, reasonAppended)
		s.logger.Info().
			Int64("deal_id", e.DealID).
			Str("event_id", e.ID).
			Str("kind", string(e.Kind)).
			Str("source", string(e.Source)).
			Msg("event admitted")
	}
	return true, nil
}

// Events returns a copy of the deal's event sequence, sorted ascending by
// timestamp with stable insertion-order tie-break. It never contains events
// from another deal.
func (s *Store) Events(dealID int64) []*negotiation.Event {
	log := s.dealLog(dealID, false)
	if log == nil {
		return nil
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	out := make([]*negotiation.Event, len(log.events))
	copy(out, log.events)
	return out
}

// GetEvent looks an event up by id within a deal.
func (s *Store) GetEvent(dealID int64, eventID string) (*negotiation.Event, error) {
	log := s.dealLog(dealID, false)
	if log == nil {
		return nil, negotiation.ErrEventNotFound
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	e, ok := log.byID[eventID]
	if !ok {
		return nil, negotiation.ErrEventNotFound
	}
	return e, nil
}

// UpdateStatus is the only mutation permitted on a stored event and is
// restricted to the status field; every other field is immutable
// post-append. The stored event is replaced with a fresh copy rather than
// mutated, so snapshots already handed out by Events or GetEvent never
// change underneath their holders.
func (s *Store) UpdateStatus(ctx context.Context, dealID int64, eventID string, status negotiation.Status) error {
	log := s.dealLog(dealID, false)
	if log == nil {
		return negotiation.ErrEventNotFound
	}
	log.mu.Lock()
	e, ok := log.byID[eventID]
	if !ok {
		log.mu.Unlock()
		return negotiation.ErrEventNotFound
	}
	st := status
	updated := *e
	updated.Status = &st
	log.byID[eventID] = &updated
	for i, ev := range log.events {
		if ev.ID == eventID {
			log.events[i] = &updated
			break
		}
	}
	log.mu.Unlock()

	if s.archiver != nil {
		if err := s.archiver.UpdateEventStatus(ctx, dealID, eventID, status); err != nil {
			s.logger.Warn().Err(err).
				Int64("deal_id", dealID).
				Str("event_id", eventID).
				Msg("event archive status update failed")
		}
	}
	s.notify(dealID, eventID, reasonStatusUpdated)
	return nil
}

// DealIDs lists every deal that currently has a timeline.
func (s *Store) DealIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.deals))
	for id := range s.deals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) dealLog(dealID int64, create bool) *dealLog {
	s.mu.RLock()
	log := s.deals[dealID]
	s.mu.RUnlock()
	if log != nil || !create {
		return log
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if log = s.deals[dealID]; log == nil {
		log = &dealLog{byID: make(map[string]*negotiation.Event)}
		s.deals[dealID] = log
	}
	return log
}

func (s *Store) notify(dealID int64, eventID, reason string) {
	s.mu.RLock()
	notifiers := s.notifiers
	s.mu.RUnlock()
	for _, n := range notifiers {
		n.DealUpdated(dealID, eventID, reason)
	}
}
