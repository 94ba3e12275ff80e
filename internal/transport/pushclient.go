package transport

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harborops/harbordesk/internal/logging"
)

const (
	defaultReconnectMin = time.Second
	defaultReconnectMax = 30 * time.Second
	defaultDialTimeout  = 5 * time.Second
	defaultEventBuffer  = 256
)

// PushClientConfig configures the websocket push consumer.
type PushClientConfig struct {
	// URL is the gateway websocket endpoint (ws:// or wss://).
	URL string

	// ReconnectMin/Max bound the exponential backoff between dials.
	ReconnectMin time.Duration
	ReconnectMax time.Duration

	// DialTimeout bounds a single connection attempt.
	DialTimeout time.Duration

	// EventBuffer is the delivery channel capacity.
	EventBuffer int
}

func (c PushClientConfig) withDefaults() PushClientConfig {
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = defaultReconnectMin
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = defaultReconnectMax
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = defaultEventBuffer
	}
	return c
}

// PushClient consumes the platform's push stream over a websocket and
// delivers decoded events on a channel. It reconnects with exponential
// backoff and drops malformed frames instead of tearing down the stream.
type PushClient struct {
	cfg    PushClientConfig
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPushClient creates a push client; Start begins consuming.
func NewPushClient(cfg PushClientConfig) *PushClient {
	cfg = cfg.withDefaults()
	return &PushClient{
		cfg:    cfg,
		events: make(chan Event, cfg.EventBuffer),
		done:   make(chan struct{}),
	}
}

// Events is the delivery channel. It closes after Close once the reader
// loop has stopped.
func (p *PushClient) Events() <-chan Event {
	return p.events
}

// Start launches the connect/read loop.
func (p *PushClient) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
}

// Close stops the client and waits for the reader loop to exit.
func (p *PushClient) Close() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *PushClient) run(ctx context.Context) {
	defer close(p.done)
	defer close(p.events)

	backoff := p.cfg.ReconnectMin
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := p.dial(ctx)
		if err != nil {
			logging.Warn().Err(err).Str("url", p.cfg.URL).Msg("push dial failed")
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, p.cfg.ReconnectMax)
			continue
		}

		logging.Info().Str("url", p.cfg.URL).Msg("push stream connected")
		backoff = p.cfg.ReconnectMin
		p.read(ctx, conn)
		_ = conn.Close()
	}
}

func (p *PushClient) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.DialTimeout)
	defer cancel()

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, p.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// read pumps frames until the connection drops or the context ends. The
// unblock watcher is scoped to this connection so it does not outlive it
// across reconnects.
func (p *PushClient) read(ctx context.Context, conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logging.Warn().Err(err).Msg("push stream read failed, reconnecting")
			}
			return
		}

		event, err := DecodeEvent(raw)
		if err != nil {
			logging.Debug().Err(err).Msg("dropping malformed push frame")
			continue
		}

		select {
		case p.events <- event:
		case <-ctx.Done():
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
