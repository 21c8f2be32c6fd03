package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/deal-hub/deal-hub/internal/application/normalizer"
	"github.com/deal-hub/deal-hub/internal/application/reconciler/mocks"
	"github.com/deal-hub/deal-hub/internal/application/timeline"
	"github.com/deal-hub/deal-hub/internal/domain/deal"
	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

const window = 15 * time.Second

func newCoordinator(t *testing.T, client SnapshotClient, debounce time.Duration) (*Coordinator, *timeline.Store) {
	t.Helper()
	logger := zerolog.Nop()
	norm := normalizer.NewService(window, logger)
	store := timeline.NewStore(window, logger)
	return NewCoordinator(client, norm, store, nil, debounce, logger), store
}

func fullSnapshot(ts time.Time) (normalizer.DealRow, []normalizer.MessageRow, []normalizer.PaymentRow, []normalizer.TestDriveRow, []normalizer.DeliveryRow) {
	dealRow := normalizer.DealRow{ID: 42, CarID: 7, BuyerID: 100, SellerID: 200, Status: "open", CreatedAt: ts}
	amount := int64(450000)
	messages := []normalizer.MessageRow{
		{ID: 1, DealID: 42, MessageType: "offer", SenderRole: "buyer", Amount: &amount, CreatedAt: ts},
		{ID: 2, DealID: 42, MessageType: "counter_offer", SenderRole: "seller", Amount: &amount, CreatedAt: ts.Add(time.Minute)},
		{ID: 3, DealID: 42, MessageType: "acceptance", SenderRole: "buyer", CreatedAt: ts.Add(2 * time.Minute)},
	}
	payments := []normalizer.PaymentRow{
		{ID: 9, DealID: 42, Amount: 25000, Purpose: "booking", Status: "captured", CapturedAt: ts.Add(3 * time.Minute)},
		{ID: 10, DealID: 42, Amount: 425000, Purpose: "full_payment", Status: "pending", CapturedAt: ts.Add(4 * time.Minute)},
	}
	testDrives := []normalizer.TestDriveRow{
		{ID: 5, DealID: 42, Status: "scheduled", ScheduledBy: "buyer", UpdatedAt: ts.Add(5 * time.Minute)},
	}
	return dealRow, messages, payments, testDrives, nil
}

func expectSnapshot(client *mocks.MockSnapshotClient, ts time.Time) {
	dealRow, messages, payments, testDrives, deliveries := fullSnapshot(ts)
	client.EXPECT().Deal(gomock.Any(), int64(42)).Return(dealRow, nil)
	client.EXPECT().DealMessages(gomock.Any(), int64(42)).Return(messages, nil)
	client.EXPECT().DealPayments(gomock.Any(), int64(42)).Return(payments, nil)
	client.EXPECT().DealTestDrives(gomock.Any(), int64(42)).Return(testDrives, nil)
	client.EXPECT().DealDeliveries(gomock.Any(), int64(42)).Return(deliveries, nil)
}

func TestSyncAdmitsSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockSnapshotClient(ctrl)
	coord, store := newCoordinator(t, client, 0)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	expectSnapshot(client, ts)
	require.NoError(t, coord.Sync(context.Background(), 42))

	// 3 messages + 1 captured payment + 1 test drive; the pending payment is
	// skipped.
	assert.Len(t, store.Events(42), 5)
}

func TestSyncIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockSnapshotClient(ctrl)
	coord, store := newCoordinator(t, client, 0)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	expectSnapshot(client, ts)
	require.NoError(t, coord.Sync(context.Background(), 42))
	before := store.Events(42)

	expectSnapshot(client, ts)
	require.NoError(t, coord.Sync(context.Background(), 42))
	after := store.Events(42)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
	}
}

func TestSyncFoldsInChangedSchedulingStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockSnapshotClient(ctrl)
	coord, store := newCoordinator(t, client, 0)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	dealRow := normalizer.DealRow{ID: 42, CarID: 7, BuyerID: 100, SellerID: 200, Status: "open", CreatedAt: ts}
	expectWithTestDrive := func(status string) {
		client.EXPECT().Deal(gomock.Any(), int64(42)).Return(dealRow, nil)
		client.EXPECT().DealMessages(gomock.Any(), int64(42)).Return(nil, nil)
		client.EXPECT().DealPayments(gomock.Any(), int64(42)).Return(nil, nil)
		client.EXPECT().DealTestDrives(gomock.Any(), int64(42)).Return([]normalizer.TestDriveRow{
			{ID: 12, DealID: 42, Status: status, ScheduledBy: "buyer", UpdatedAt: ts},
		}, nil)
		client.EXPECT().DealDeliveries(gomock.Any(), int64(42)).Return(nil, nil)
	}

	expectWithTestDrive("scheduled")
	require.NoError(t, coord.Sync(context.Background(), 42))
	events := store.Events(42)
	require.Len(t, events, 1)
	assert.Equal(t, negotiation.StatusScheduled, events[0].EffectiveStatus())

	// The source confirmed the test drive: the re-fetched row carries the
	// same id, so it must update the stored event, not be dropped.
	expectWithTestDrive("confirmed")
	require.NoError(t, coord.Sync(context.Background(), 42))
	events = store.Events(42)
	require.Len(t, events, 1)
	assert.Equal(t, "db-td-12", events[0].ID)
	assert.Equal(t, negotiation.StatusConfirmed, events[0].EffectiveStatus())
}

func TestSyncFetchFailureAppliesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockSnapshotClient(ctrl)
	coord, store := newCoordinator(t, client, 0)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	dealRow, messages, _, _, _ := fullSnapshot(ts)
	client.EXPECT().Deal(gomock.Any(), int64(42)).Return(dealRow, nil)
	client.EXPECT().DealMessages(gomock.Any(), int64(42)).Return(messages, nil)
	client.EXPECT().DealPayments(gomock.Any(), int64(42)).Return(nil, errors.New("boom"))

	err := coord.Sync(context.Background(), 42)
	require.Error(t, err)
	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "payments", syncErr.Resource)
	assert.Equal(t, int64(42), syncErr.DealID)

	// Fetch-then-apply: the messages that did arrive were not admitted.
	assert.Empty(t, store.Events(42))
}

func TestSyncRateLimitSurfaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockSnapshotClient(ctrl)
	coord, _ := newCoordinator(t, client, 0)

	client.EXPECT().Deal(gomock.Any(), int64(42)).
		Return(normalizer.DealRow{}, fmt.Errorf("deal 42: %w", ErrRateLimited))

	err := coord.Sync(context.Background(), 42)
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestSyncDebounceSkipsBackToBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockSnapshotClient(ctrl)
	coord, _ := newCoordinator(t, client, time.Minute)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Exactly one round trip despite two calls.
	expectSnapshot(client, ts)
	require.NoError(t, coord.Sync(context.Background(), 42))
	require.NoError(t, coord.Sync(context.Background(), 42))
}

func TestSyncCoalescesConcurrentCallers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockSnapshotClient(ctrl)
	coord, store := newCoordinator(t, client, 0)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	release := make(chan struct{})
	dealRow, messages, payments, testDrives, deliveries := fullSnapshot(ts)
	client.EXPECT().Deal(gomock.Any(), int64(42)).DoAndReturn(
		func(ctx context.Context, dealID int64) (normalizer.DealRow, error) {
			<-release
			return dealRow, nil
		})
	client.EXPECT().DealMessages(gomock.Any(), int64(42)).Return(messages, nil)
	client.EXPECT().DealPayments(gomock.Any(), int64(42)).Return(payments, nil)
	client.EXPECT().DealTestDrives(gomock.Any(), int64(42)).Return(testDrives, nil)
	client.EXPECT().DealDeliveries(gomock.Any(), int64(42)).Return(deliveries, nil)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = coord.Sync(context.Background(), 42)
		}(i)
	}
	// Let the callers pile onto the single in-flight pull.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.Len(t, store.Events(42), 5)
}

func TestTrackUntrack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockSnapshotClient(ctrl)
	coord, _ := newCoordinator(t, client, 0)

	coord.Track(42)
	coord.Track(43)
	coord.Untrack(42)
	assert.Equal(t, []int64{43}, coord.Tracked())
}

func TestRegistryReceivesDealMetadata(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	client := mocks.NewMockSnapshotClient(ctrl)
	logger := zerolog.Nop()
	norm := normalizer.NewService(window, logger)
	store := timeline.NewStore(window, logger)
	registry := &capturingRegistry{}
	coord := NewCoordinator(client, norm, store, registry, 0, logger)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	expectSnapshot(client, ts)
	require.NoError(t, coord.Sync(context.Background(), 42))

	require.NotNil(t, registry.last)
	assert.Equal(t, int64(42), registry.last.DealID)
	assert.Equal(t, int64(7), registry.last.CarID)
}

type capturingRegistry struct {
	mu   sync.Mutex
	last *deal.Deal
}

func (r *capturingRegistry) Register(ctx context.Context, d *deal.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = d
	return nil
}
