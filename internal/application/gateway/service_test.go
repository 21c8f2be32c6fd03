package gateway_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/deal-hub/deal-hub/internal/application/gateway"
	"github.com/deal-hub/deal-hub/internal/application/gateway/mocks"
	"github.com/deal-hub/deal-hub/internal/application/normalizer"
	"github.com/deal-hub/deal-hub/internal/application/timeline"
	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

const window = 15 * time.Second

func newGateway(t *testing.T) (*gateway.Service, *timeline.Store, *mocks.MockActionClient) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	client := mocks.NewMockActionClient(ctrl)
	logger := zerolog.Nop()
	norm := normalizer.NewService(window, logger)
	store := timeline.NewStore(window, logger)
	return gateway.NewService(store, norm, client, logger), store, client
}

func seed(t *testing.T, store *timeline.Store, events ...*negotiation.Event) {
	t.Helper()
	for _, e := range events {
		ok, err := store.Append(context.Background(), e)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func tsAt(min int) time.Time {
	return time.Date(2026, 3, 1, 12, min, 0, 0, time.UTC)
}

func TestRequestActionOffer(t *testing.T) {
	svc, store, client := newGateway(t)
	amount := int64(450000)

	done := make(chan struct{})
	client.EXPECT().Perform(gomock.Any(), int64(42), "offer", gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, dealID int64, action string, p gateway.Payload, correlationID string) error {
			assert.NotEmpty(t, correlationID)
			close(done)
			return nil
		})

	result, err := svc.RequestAction(context.Background(), 42, gateway.ActionOffer, gateway.Payload{Role: negotiation.RoleBuyer, Amount: &amount})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, negotiation.StateOfferSent, result.State)
	assert.Equal(t, negotiation.SourceOptimistic, result.Event.Source)
	require.Len(t, store.Events(42), 1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("authoritative request was never dispatched")
	}
}

func TestRequestActionRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newGateway(t)
	_, err := svc.RequestAction(context.Background(), 42, gateway.ActionOffer, gateway.Payload{Role: "admin"})
	require.Error(t, err)
}

func TestRequestActionIllegalCases(t *testing.T) {
	amount := int64(450000)
	subject := int64(7)
	stale := int64(5)

	cases := []struct {
		name    string
		seed    func(t *testing.T, store *timeline.Store)
		action  gateway.Action
		payload gateway.Payload
		detail  string
	}{
		{
			name:    "seller cannot open",
			action:  gateway.ActionOffer,
			payload: gateway.Payload{Role: negotiation.RoleSeller, Amount: &amount},
			detail:  "only the buyer opens",
		},
		{
			name:    "offer without amount",
			action:  gateway.ActionOffer,
			payload: gateway.Payload{Role: negotiation.RoleBuyer},
			detail:  "requires an amount",
		},
		{
			name: "second offer while one is open",
			seed: func(t *testing.T, store *timeline.Store) {
				seed(t, store, &negotiation.Event{ID: "a", DealID: 42, Kind: negotiation.KindOffer, OriginRole: negotiation.RoleBuyer, Amount: &amount, Timestamp: tsAt(0)})
			},
			action:  gateway.ActionOffer,
			payload: gateway.Payload{Role: negotiation.RoleBuyer, Amount: &amount},
			detail:  "already outstanding",
		},
		{
			name:    "accept with nothing to accept",
			action:  gateway.ActionAccept,
			payload: gateway.Payload{Role: negotiation.RoleSeller},
			detail:  "no unresolved offer",
		},
		{
			name: "accept own offer",
			seed: func(t *testing.T, store *timeline.Store) {
				seed(t, store, &negotiation.Event{ID: "a", DealID: 42, Kind: negotiation.KindOffer, OriginRole: negotiation.RoleBuyer, Amount: &amount, Timestamp: tsAt(0)})
			},
			action:  gateway.ActionAccept,
			payload: gateway.Payload{Role: negotiation.RoleBuyer},
			detail:  "no unresolved offer",
		},
		{
			name:    "schedule test drive before booking",
			action:  gateway.ActionScheduleTestDrive,
			payload: gateway.Payload{Role: negotiation.RoleBuyer},
			detail:  "not booked",
		},
		{
			name: "confirm superseded subject",
			seed: func(t *testing.T, store *timeline.Store) {
				seed(t, store,
					&negotiation.Event{ID: "a", DealID: 42, Kind: negotiation.KindBookingConfirmed, OriginRole: negotiation.RoleBuyer, Timestamp: tsAt(0)},
					&negotiation.Event{ID: "b", DealID: 42, Kind: negotiation.KindTestDriveScheduled, OriginRole: negotiation.RoleBuyer, SubjectID: &stale, Timestamp: tsAt(1)},
					&negotiation.Event{ID: "c", DealID: 42, Kind: negotiation.KindTestDriveScheduled, OriginRole: negotiation.RoleBuyer, SubjectID: &subject, Timestamp: tsAt(2)},
				)
			},
			action:  gateway.ActionConfirmTestDrive,
			payload: gateway.Payload{Role: negotiation.RoleBuyer, SubjectID: &stale},
			detail:  "superseded; current actionable subject is 7",
		},
		{
			name: "decline after delivery confirmed",
			seed: func(t *testing.T, store *timeline.Store) {
				seed(t, store,
					&negotiation.Event{ID: "a", DealID: 42, Kind: negotiation.KindBookingConfirmed, OriginRole: negotiation.RoleBuyer, Timestamp: tsAt(0)},
					&negotiation.Event{ID: "b", DealID: 42, Kind: negotiation.KindDeliveryScheduled, OriginRole: negotiation.RoleSeller, SubjectID: &subject, Timestamp: tsAt(1)},
					&negotiation.Event{ID: "c", DealID: 42, Kind: negotiation.KindDeliveryConfirmed, OriginRole: negotiation.RoleBuyer, SubjectID: &subject, Timestamp: tsAt(2)},
				)
			},
			action:  gateway.ActionDeclinePurchase,
			payload: gateway.Payload{Role: negotiation.RoleBuyer},
			detail:  "already completed",
		},
		{
			name: "anything after decline",
			seed: func(t *testing.T, store *timeline.Store) {
				seed(t, store, &negotiation.Event{ID: "a", DealID: 42, Kind: negotiation.KindBuyerDeclinedPurchase, OriginRole: negotiation.RoleBuyer, Timestamp: tsAt(0)})
			},
			action:  gateway.ActionOffer,
			payload: gateway.Payload{Role: negotiation.RoleBuyer, Amount: &amount},
			detail:  "declined",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, _ := newGateway(t)
			if tc.seed != nil {
				tc.seed(t, store)
			}
			before := len(store.Events(42))

			_, err := svc.RequestAction(context.Background(), 42, tc.action, tc.payload)
			require.Error(t, err)
			require.ErrorIs(t, err, negotiation.ErrIllegalAction)
			var illegal *negotiation.IllegalActionError
			require.ErrorAs(t, err, &illegal)
			assert.Equal(t, string(tc.action), illegal.Action)
			assert.Contains(t, illegal.Error(), tc.detail)

			// Rejection appends nothing.
			assert.Len(t, store.Events(42), before)
		})
	}
}

func TestRequestActionAcceptCounter(t *testing.T) {
	svc, store, client := newGateway(t)
	amount := int64(450000)

	seed(t, store,
		&negotiation.Event{ID: "a", DealID: 42, Kind: negotiation.KindOffer, OriginRole: negotiation.RoleBuyer, Amount: &amount, Timestamp: tsAt(0)},
	)

	client.EXPECT().Perform(gomock.Any(), int64(42), "accept", gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	result, err := svc.RequestAction(context.Background(), 42, gateway.ActionAccept, gateway.Payload{Role: negotiation.RoleSeller})
	require.NoError(t, err)
	assert.Equal(t, negotiation.StateAccepted, result.State)
}

func TestRequestActionSurvivesDispatchFailure(t *testing.T) {
	svc, store, client := newGateway(t)
	amount := int64(450000)

	done := make(chan struct{})
	client.EXPECT().Perform(gomock.Any(), int64(42), "offer", gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, dealID int64, action string, p gateway.Payload, correlationID string) error {
			close(done)
			return errors.New("marketplace down")
		})

	_, err := svc.RequestAction(context.Background(), 42, gateway.ActionOffer, gateway.Payload{Role: negotiation.RoleBuyer, Amount: &amount})
	require.NoError(t, err, "dispatch failure is asynchronous; the optimistic event stands")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch never ran")
	}
	assert.Len(t, store.Events(42), 1)
}

func TestConcurrentIdenticalActionsCollapse(t *testing.T) {
	svc, store, client := newGateway(t)
	amount := int64(450000)

	client.EXPECT().Perform(gomock.Any(), int64(42), "offer", gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.RequestAction(context.Background(), 42, gateway.ActionOffer, gateway.Payload{Role: negotiation.RoleBuyer, Amount: &amount})
		}()
	}
	wg.Wait()

	// Same fingerprint within the window: at most one timeline entry.
	assert.Len(t, store.Events(42), 1)
}
