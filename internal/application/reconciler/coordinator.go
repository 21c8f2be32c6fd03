package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/deal-hub/deal-hub/internal/application/normalizer"
	"github.com/deal-hub/deal-hub/internal/application/timeline"
	"github.com/deal-hub/deal-hub/internal/domain/deal"
	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

// ErrRateLimited marks a snapshot pull rejected by the source's rate
// limiter. It is a transient sync failure: retried on the next trigger,
// never fatal.
var ErrRateLimited = errors.New("rate limited")

// SyncError wraps a failed sub-resource pull for one deal.
type SyncError struct {
	DealID   int64
	Resource string
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync deal %d: %s pull failed: %v", e.DealID, e.Resource, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_client.go -package=mocks . SnapshotClient

// SnapshotClient pulls the persisted REST snapshot of a deal and its
// sub-resources.
type SnapshotClient interface {
	Deal(ctx context.Context, dealID int64) (normalizer.DealRow, error)
	DealMessages(ctx context.Context, dealID int64) ([]normalizer.MessageRow, error)
	DealPayments(ctx context.Context, dealID int64) ([]normalizer.PaymentRow, error)
	DealTestDrives(ctx context.Context, dealID int64) ([]normalizer.TestDriveRow, error)
	DealDeliveries(ctx context.Context, dealID int64) ([]normalizer.DeliveryRow, error)
}

// DealRegistry receives deal metadata discovered during syncs.
type DealRegistry interface {
	Register(ctx context.Context, d *deal.Deal) error
}

// Coordinator orchestrates snapshot pulls: normalize, admit, repeat. A sync
// is idempotent by construction of the normalizer's deterministic ids plus
// the deduplicator, so calling it concurrently or repeatedly is safe.
// Overlapping requests for the same deal coalesce into a single outstanding
// pull, and a debounce window suppresses redundant back-to-back round trips.
type Coordinator struct {
	client   SnapshotClient
	norm     *normalizer.Service
	store    *timeline.Store
	registry DealRegistry
	logger   zerolog.Logger

	debounce    time.Duration
	pullTimeout time.Duration

	mu       sync.Mutex
	inflight map[int64]*syncRun
	lastSync map[int64]time.Time
	tracked  map[int64]struct{}
}

type syncRun struct {
	done chan struct{}
	err  error
}

// NewCoordinator creates a reconciliation coordinator. registry may be nil.
func NewCoordinator(
	client SnapshotClient,
	norm *normalizer.Service,
	store *timeline.Store,
	registry DealRegistry,
	debounce time.Duration,
	logger zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		client:      client,
		norm:        norm,
		store:       store,
		registry:    registry,
		logger:      logger.With().Str("service", "reconciler").Logger(),
		debounce:    debounce,
		pullTimeout: 30 * time.Second,
		inflight:    make(map[int64]*syncRun),
		lastSync:    make(map[int64]time.Time),
		tracked:     make(map[int64]struct{}),
	}
}

// Track marks a deal for periodic reconciliation.
func (c *Coordinator) Track(dealID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracked[dealID] = struct{}{}
}

// Untrack stops periodic reconciliation for a deal. An in-flight sync is
// left to finish; admits already committed are not rolled back.
func (c *Coordinator) Untrack(dealID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tracked, dealID)
}

// Tracked lists deals under periodic reconciliation.
func (c *Coordinator) Tracked() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int64, 0, len(c.tracked))
	for id := range c.tracked {
		ids = append(ids, id)
	}
	return ids
}

// Sync pulls the full snapshot for one deal. Callers arriving while a pull
// for the same deal is outstanding join it instead of issuing another round
// trip; callers arriving within the debounce window after a completed pull
// get that pull's result for free.
func (c *Coordinator) Sync(ctx context.Context, dealID int64) error {
	c.mu.Lock()
	if run, ok := c.inflight[dealID]; ok {
		c.mu.Unlock()
		select {
		case <-run.done:
			return run.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if last, ok := c.lastSync[dealID]; ok && time.Since(last) < c.debounce {
		c.mu.Unlock()
		return nil
	}
	run := &syncRun{done: make(chan struct{})}
	c.inflight[dealID] = run
	c.mu.Unlock()

	// The pull survives the triggering caller: a deal view being torn down
	// abandons the wait, not the work.
	pullCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.pullTimeout)
	go func() {
		defer cancel()
		run.err = c.pull(pullCtx, dealID)
		c.mu.Lock()
		delete(c.inflight, dealID)
		if run.err == nil {
			c.lastSync[dealID] = time.Now()
		}
		c.mu.Unlock()
		close(run.done)
	}()

	select {
	case <-run.done:
		return run.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pull is fetch-then-apply: every sub-resource is fetched and normalized
// before anything is admitted, so a failed pull never leaves a timeline
// partially updated.
func (c *Coordinator) pull(ctx context.Context, dealID int64) error {
	syncID := ulid.Make().String()
	started := time.Now()

	dealRow, err := c.client.Deal(ctx, dealID)
	if err != nil {
		return c.pullFailed(dealID, syncID, "deal", err)
	}
	messages, err := c.client.DealMessages(ctx, dealID)
	if err != nil {
		return c.pullFailed(dealID, syncID, "messages", err)
	}
	payments, err := c.client.DealPayments(ctx, dealID)
	if err != nil {
		return c.pullFailed(dealID, syncID, "payments", err)
	}
	testDrives, err := c.client.DealTestDrives(ctx, dealID)
	if err != nil {
		return c.pullFailed(dealID, syncID, "test_drives", err)
	}
	deliveries, err := c.client.DealDeliveries(ctx, dealID)
	if err != nil {
		return c.pullFailed(dealID, syncID, "deliveries", err)
	}

	events := make([]*negotiation.Event, 0, len(messages)+len(payments)+len(testDrives)+len(deliveries))
	for _, row := range messages {
		e, err := c.norm.NormalizeMessage(row)
		if err != nil {
			c.logDropped(dealID, syncID, "message", err)
			continue
		}
		events = append(events, e)
	}
	for _, row := range payments {
		e, err := c.norm.NormalizePayment(row)
		if err != nil {
			if !normalizer.IsSkip(err) {
				c.logDropped(dealID, syncID, "payment", err)
			}
			continue
		}
		events = append(events, e)
	}
	for _, row := range testDrives {
		e, err := c.norm.NormalizeTestDrive(row)
		if err != nil {
			c.logDropped(dealID, syncID, "test_drive", err)
			continue
		}
		events = append(events, e)
	}
	for _, row := range deliveries {
		e, err := c.norm.NormalizeDelivery(row)
		if err != nil {
			c.logDropped(dealID, syncID, "delivery", err)
			continue
		}
		events = append(events, e)
	}

	if c.registry != nil && dealRow.ID != 0 {
		d := deal.New(dealRow.ID, dealRow.CarID, dealRow.BuyerID, dealRow.SellerID)
		d.CreatedAt = dealRow.CreatedAt
		if err := c.registry.Register(ctx, d); err != nil {
			c.logger.Warn().Err(err).Int64("deal_id", dealID).Msg("deal registration failed")
		}
	}

	admitted, updated, err := c.apply(ctx, events)
	if err != nil {
		return &SyncError{DealID: dealID, Resource: "timeline", Err: err}
	}
	c.logger.Info().
		Int64("deal_id", dealID).
		Str("sync_id", syncID).
		Int("fetched", len(events)).
		Int("admitted", admitted).
		Int("updated", updated).
		Dur("elapsed", time.Since(started)).
		Msg("sync completed")
	return nil
}

// apply admits each snapshot event. A scheduling row re-fetched under an id
// the store already holds carries the source's current view of that row, so
// a changed effective status is folded in through UpdateStatus instead of
// being dropped at the identity tier.
func (c *Coordinator) apply(ctx context.Context, events []*negotiation.Event) (admitted, updated int, err error) {
	for _, e := range events {
		ok, err := c.store.Append(ctx, e)
		if err != nil {
			return admitted, updated, err
		}
		if ok {
			admitted++
			continue
		}
		if !e.Kind.IsScheduling() {
			continue
		}
		existing, err := c.store.GetEvent(e.DealID, e.ID)
		if err != nil {
			// Fingerprint-tier duplicate stored under another id; the
			// stored event is the authoritative copy of this action.
			continue
		}
		status := e.EffectiveStatus()
		if existing.EffectiveStatus() == status {
			continue
		}
		if err := c.store.UpdateStatus(ctx, e.DealID, e.ID, status); err != nil {
			c.logger.Warn().Err(err).
				Int64("deal_id", e.DealID).
				Str("event_id", e.ID).
				Msg("status update failed")
			continue
		}
		updated++
	}
	return admitted, updated, nil
}

func (c *Coordinator) pullFailed(dealID int64, syncID, resource string, err error) error {
	evt := c.logger.Warn().
		Int64("deal_id", dealID).
		Str("sync_id", syncID).
		Str("resource", resource).
		Err(err)
	if errors.Is(err, ErrRateLimited) {
		evt.Msg("sync rate limited; will retry on next trigger")
	} else {
		evt.Msg("sync pull failed; will retry on next trigger")
	}
	return &SyncError{DealID: dealID, Resource: resource, Err: err}
}

func (c *Coordinator) logDropped(dealID int64, syncID, resource string, err error) {
	c.logger.Warn().
		Int64("deal_id", dealID).
		Str("sync_id", syncID).
		Str("resource", resource).
		Err(err).
		Msg("snapshot row dropped")
}

// SyncTracked reconciles every tracked deal. Failures are logged per deal
// and never stop the loop.
func (c *Coordinator) SyncTracked(ctx context.Context) {
	for _, dealID := range c.Tracked() {
		if err := c.Sync(ctx, dealID); err != nil {
			c.logger.Warn().Err(err).Int64("deal_id", dealID).Msg("tracked sync failed")
		}
		if ctx.Err() != nil {
			return
		}
	}
}
