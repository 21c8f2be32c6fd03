package push

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/deal-hub/deal-hub/internal/application/normalizer"
	"github.com/deal-hub/deal-hub/internal/application/timeline"
)

// Listener consumes the marketplace push channel over a websocket and feeds
// decoded events into the timeline. The push channel is best-effort: a lost
// connection means missed events, so every reconnect fires the onReconnect
// hook to let a snapshot sync close the gap.
type Listener struct {
	url         string
	token       string
	store       *timeline.Store
	norm        *normalizer.Service
	onReconnect func(ctx context.Context)
	logger      zerolog.Logger

	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewListener creates a push listener. onReconnect may be nil.
func NewListener(
	url, token string,
	store *timeline.Store,
	norm *normalizer.Service,
	onReconnect func(ctx context.Context),
	logger zerolog.Logger,
) *Listener {
	return &Listener{
		url:         url,
		token:       token,
		store:       store,
		norm:        norm,
		onReconnect: onReconnect,
		logger:      logger.With().Str("service", "push").Logger(),
		baseDelay:   time.Second,
		maxDelay:    30 * time.Second,
	}
}

// Run dials the push channel and consumes it until ctx is cancelled,
// redialing with exponential backoff after any failure.
func (l *Listener) Run(ctx context.Context) {
	delay := l.baseDelay
	connected := false
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := l.dial(ctx)
		if err != nil {
			l.logger.Warn().Err(err).Dur("retry_in", delay).Msg("push dial failed")
			if !sleepContext(ctx, delay) {
				return
			}
			delay = min(delay*2, l.maxDelay)
			continue
		}
		delay = l.baseDelay
		l.logger.Info().Str("url", l.url).Msg("push channel connected")
		if connected && l.onReconnect != nil {
			// Events emitted while disconnected are gone from the channel;
			// only a snapshot pull can recover them.
			l.onReconnect(ctx)
		}
		connected = true

		err = l.consume(ctx, conn)
		_ = conn.Close(websocket.StatusNormalClosure, "")
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn().Err(err).Msg("push channel closed; reconnecting")
	}
}

func (l *Listener) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := &websocket.DialOptions{}
	if l.token != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + l.token}}
	}
	conn, _, err := websocket.Dial(dialCtx, l.url, opts)
	return conn, err
}

func (l *Listener) consume(ctx context.Context, conn *websocket.Conn) error {
	for {
		var payload normalizer.PushPayload
		if err := wsjson.Read(ctx, conn, &payload); err != nil {
			return err
		}
		event, err := l.norm.NormalizePush(payload)
		if err != nil {
			l.logger.Warn().Err(err).
				Str("type", payload.Type).
				Str("event_id", payload.EventID).
				Msg("push payload dropped")
			continue
		}
		if _, err := l.store.Append(ctx, event); err != nil {
			l.logger.Warn().Err(err).
				Int64("deal_id", event.DealID).
				Str("event_id", event.ID).
				Msg("push event rejected")
		}
	}
}

func sleepContext(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
