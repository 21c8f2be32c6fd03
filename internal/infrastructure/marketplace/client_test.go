package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deal-hub/deal-hub/internal/application/gateway"
	"github.com/deal-hub/deal-hub/internal/application/normalizer"
	"github.com/deal-hub/deal-hub/internal/application/reconciler"
	"github.com/deal-hub/deal-hub/internal/domain/negotiation"
)

func fastClient(baseURL string) *Client {
	c := NewClient(baseURL, "test-token", &http.Client{Timeout: 5 * time.Second})
	c.baseDelay = time.Millisecond
	c.maxDelay = 5 * time.Millisecond
	return c
}

func TestDealMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/deals/42/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]normalizer.MessageRow{
			{ID: 1, DealID: 42, MessageType: "offer", SenderRole: "buyer"},
		})
	}))
	defer srv.Close()

	rows, err := fastClient(srv.URL).DealMessages(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "offer", rows[0].MessageType)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(normalizer.DealRow{ID: 42, CarID: 7})
	}))
	defer srv.Close()

	row, err := fastClient(srv.URL).Deal(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), row.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRateLimitExhaustionSurfacesSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).DealPayments(context.Background(), 42)
	require.ErrorIs(t, err, reconciler.ErrRateLimited)
}

func TestNonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "NOT_FOUND", "message": "no such deal"})
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).Deal(context.Background(), 42)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", httpErr.Code)
	assert.Equal(t, int32(1), calls.Load(), "4xx is not retried")
}

func TestPerform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/deals/42/actions", r.URL.Path)
		assert.Equal(t, "corr-1", r.Header.Get("X-Correlation-Id"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "offer", body["action"])
		assert.Equal(t, "buyer", body["role"])
		assert.Equal(t, float64(450000), body["amount"])
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	amount := int64(450000)
	payload := gateway.Payload{Role: negotiation.RoleBuyer, Amount: &amount}
	err := fastClient(srv.URL).Perform(context.Background(), 42, "offer", payload, "corr-1")
	require.NoError(t, err)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("garbage"))
}
