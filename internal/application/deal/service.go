package deal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deal-hub/deal-hub/internal/application/timeline"
	domaindeal "github.com/deal-hub/deal-hub/internal/domain/deal"
	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

// Service maintains the persisted deal registry. Deal rows are created when
// a deal is first seen and their status column is refreshed from the
// projection after every timeline update.
type Service struct {
	repo   domaindeal.Repository
	store  *timeline.Store
	logger zerolog.Logger
}

// NewService creates a deal registry service.
func NewService(repo domaindeal.Repository, store *timeline.Store, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		logger: logger.With().Str("service", "deal").Logger(),
	}
}

// Register upserts deal metadata discovered during a sync.
func (s *Service) Register(ctx context.Context, d *domaindeal.Deal) error {
	if err := s.repo.Upsert(ctx, d); err != nil {
		return fmt.Errorf("failed to upsert deal: %w", err)
	}
	return nil
}

// Get retrieves a deal by id.
func (s *Service) Get(ctx context.Context, dealID int64) (*domaindeal.Deal, error) {
	d, err := s.repo.GetByID(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	if d == nil {
		return nil, domaindeal.ErrNotFound
	}
	return d, nil
}

// List returns deals from the registry.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*domaindeal.Deal, error) {
	return s.repo.List(ctx, limit, offset)
}

// DealUpdated implements the timeline store's change-notification hook:
// every appended event may move the persisted deal status forward.
func (s *Service) DealUpdated(dealID int64, eventID string, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.refreshStatus(ctx, dealID); err != nil {
		s.logger.Warn().Err(err).Int64("deal_id", dealID).Msg("deal status refresh failed")
	}
}

// refreshStatus projects the timeline and persists the mapped status. The
// registry never regresses: COMPLETED and DECLINED are immutable, and an
// unknown deal gets a minimal row until a sync fills in its metadata.
func (s *Service) refreshStatus(ctx context.Context, dealID int64) error {
	state := negotiation.Project(s.store.Events(dealID), negotiation.RoleBuyer)
	target := domaindeal.StatusForState(state)

	d, err := s.repo.GetByID(ctx, dealID)
	if err != nil {
		return err
	}
	if d == nil {
		d = domaindeal.New(dealID, 0, 0, 0)
		d.Status = target
		return s.repo.Upsert(ctx, d)
	}
	if d.Status == target || !d.CanTransitionTo(target) {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, dealID, target); err != nil {
		return err
	}
	s.logger.Info().
		Int64("deal_id", dealID).
		Str("from", string(d.Status)).
		Str("to", string(target)).
		Msg("deal status updated")
	return nil
}
