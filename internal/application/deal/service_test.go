package deal

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deal-hub/deal-hub/internal/application/timeline"
	domaindeal "github.com/deal-hub/deal-hub/internal/domain/deal"
	"github.com/deal-hub/deal-hub/internal/domain/deal/mocks"
	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

func newService(t *testing.T) (*Service, *timeline.Store, *mocks.MockRepository) {
	t.Helper()
	repo := &mocks.MockRepository{}
	store := timeline.NewStore(15*time.Second, zerolog.Nop())
	return NewService(repo, store, zerolog.Nop()), store, repo
}

func TestGet(t *testing.T) {
	svc, _, repo := newService(t)
	ctx := context.Background()

	d := domaindeal.New(42, 7, 100, 200)
	repo.On("GetByID", ctx, int64(42)).Return(d, nil).Once()
	got, err := svc.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.DealID)

	repo.On("GetByID", ctx, int64(99)).Return(nil, nil).Once()
	_, err = svc.Get(ctx, 99)
	require.ErrorIs(t, err, domaindeal.ErrNotFound)
	repo.AssertExpectations(t)
}

func TestDealUpdatedAdvancesStatus(t *testing.T) {
	svc, store, repo := newService(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Append(ctx, &negotiation.Event{
		ID: "a", DealID: 42, Kind: negotiation.KindBookingConfirmed,
		OriginRole: negotiation.RoleBuyer, Timestamp: ts,
	})
	require.NoError(t, err)

	repo.On("GetByID", mock.Anything, int64(42)).Return(domaindeal.New(42, 7, 100, 200), nil).Once()
	repo.On("UpdateStatus", mock.Anything, int64(42), domaindeal.StatusBooked).Return(nil).Once()

	svc.DealUpdated(42, "a", "appended")
	repo.AssertExpectations(t)
}

func TestDealUpdatedCreatesMinimalRow(t *testing.T) {
	svc, store, repo := newService(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.Append(ctx, &negotiation.Event{
		ID: "a", DealID: 42, Kind: negotiation.KindOffer,
		OriginRole: negotiation.RoleBuyer, Timestamp: ts,
	})
	require.NoError(t, err)

	repo.On("GetByID", mock.Anything, int64(42)).Return(nil, nil).Once()
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(d *domaindeal.Deal) bool {
		return d.DealID == 42 && d.Status == domaindeal.StatusOpen
	})).Return(nil).Once()

	svc.DealUpdated(42, "a", "appended")
	repo.AssertExpectations(t)
}

func TestDealUpdatedNeverRegresses(t *testing.T) {
	svc, store, repo := newService(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Timeline projects OPEN, but the registry already says COMPLETED.
	_, err := store.Append(ctx, &negotiation.Event{
		ID: "a", DealID: 42, Kind: negotiation.KindOffer,
		OriginRole: negotiation.RoleBuyer, Timestamp: ts,
	})
	require.NoError(t, err)

	done := domaindeal.New(42, 7, 100, 200)
	done.Status = domaindeal.StatusCompleted
	repo.On("GetByID", mock.Anything, int64(42)).Return(done, nil).Once()

	svc.DealUpdated(42, "a", "appended")
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}
