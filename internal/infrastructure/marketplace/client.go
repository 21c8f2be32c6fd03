package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/deal-hub/deal-hub/internal/application/gateway"
	"github.com/deal-hub/deal-hub/internal/application/normalizer"
	"github.com/deal-hub/deal-hub/internal/application/reconciler"
)

// HTTPError is a non-retryable marketplace response.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("marketplace http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("marketplace http %d: %s", e.StatusCode, e.Message)
}

// Client talks to the marketplace backend's REST API. It implements both the
// snapshot-pull and action-dispatch interfaces. Transient failures (network
// errors, 5xx) are retried with exponential backoff; 429 honors Retry-After
// while retries last, then surfaces as a rate-limit error.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var (
	_ reconciler.SnapshotClient = (*Client)(nil)
	_ gateway.ActionClient      = (*Client)(nil)
)

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   2 * time.Second,
	}
}

func (c *Client) Deal(ctx context.Context, dealID int64) (normalizer.DealRow, error) {
	var out normalizer.DealRow
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v1/deals/%d", dealID), nil, nil, &out)
	return out, err
}

func (c *Client) DealMessages(ctx context.Context, dealID int64) ([]normalizer.MessageRow, error) {
	var out []normalizer.MessageRow
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v1/deals/%d/messages", dealID), nil, nil, &out)
	return out, err
}

func (c *Client) DealPayments(ctx context.Context, dealID int64) ([]normalizer.PaymentRow, error) {
	var out []normalizer.PaymentRow
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v1/deals/%d/payments", dealID), nil, nil, &out)
	return out, err
}

func (c *Client) DealTestDrives(ctx context.Context, dealID int64) ([]normalizer.TestDriveRow, error) {
	var out []normalizer.TestDriveRow
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v1/deals/%d/test-drives", dealID), nil, nil, &out)
	return out, err
}

func (c *Client) DealDeliveries(ctx context.Context, dealID int64) ([]normalizer.DeliveryRow, error) {
	var out []normalizer.DeliveryRow
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/v1/deals/%d/deliveries", dealID), nil, nil, &out)
	return out, err
}

// Perform submits a caller action to the marketplace.
func (c *Client) Perform(ctx context.Context, dealID int64, action string, payload gateway.Payload, correlationID string) error {
	body := map[string]any{
		"action": action,
		"role":   payload.Role,
	}
	if payload.Amount != nil {
		body["amount"] = *payload.Amount
	}
	if payload.SubjectID != nil {
		body["subjectId"] = *payload.SubjectID
	}
	headers := map[string]string{"X-Correlation-Id": correlationID}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/v1/deals/%d/actions", dealID), headers, body, nil)
}

func (c *Client) doJSON(
	ctx context.Context,
	method, requestPath string,
	headers map[string]string,
	body any,
	out any,
) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
		if err != nil {
			return err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}
		payloadBytes, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(payloadBytes) == 0 {
				return nil
			}
			return json.Unmarshal(payloadBytes, out)
		}

		if (resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)) && attempt < c.maxRetries {
			if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}

		var errPayload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(payloadBytes, &errPayload)
		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%s: %w", requestPath, reconciler.ErrRateLimited)
		}
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Code:       errPayload.Code,
			Message:    errPayload.Message,
		}
	}
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	maxDelay := c.maxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	if retryAfter := parseRetryAfter(retryAfterHeader); retryAfter > 0 {
		if retryAfter > maxDelay {
			return maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if ts, err := time.Parse(time.RFC1123, header); err == nil {
		delta := time.Until(ts)
		if delta > 0 {
			return delta
		}
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
