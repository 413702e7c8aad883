package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hireloop/interview-cli/internal/utils"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const defaultPingInterval = 30 * time.Second

// WSConfig configures the optional WebSocket channel.
type WSConfig struct {
	URL          string
	PingInterval time.Duration
	Reconnect    Policy
}

// WSEvent is delivered to subscribers. Either Data or Err is set; an Err
// event means the connection is gone and could not be re-established.
type WSEvent struct {
	Data []byte
	Err  error
}

// WSClient maintains a single WebSocket connection with keep-alive pings and
// bounded reconnects. It is constructed explicitly and owned by its caller;
// lifecycle is Connect then Close.
type WSClient struct {
	cfg    WSConfig
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	conn    *websocket.Conn
	subs    map[uint64]chan WSEvent
	nextSub uint64
	closed  bool
}

// NewWS creates a WebSocket client for the given endpoint. No connection is
// made until Connect is called.
func NewWS(cfg WSConfig, logger *zap.Logger) *WSClient {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WSClient{
		cfg:    cfg,
		logger: logger,
		subs:   make(map[uint64]chan WSEvent),
	}
}

// Connect dials the endpoint and starts the read and ping loops.
func (c *WSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("websocket client is closed")
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.ctx, c.cancel = context.WithCancel(ctx)

	conn, err := c.dial(c.ctx)
	if err != nil {
		c.cancel()
		return fmt.Errorf("websocket dial %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop()
	go c.pingLoop()

	return nil
}

func (c *WSClient) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.cfg.URL, nil)
	return conn, err
}

// Send writes a text message on the current connection.
func (c *WSClient) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("websocket is not connected")
	}

	return conn.Write(ctx, websocket.MessageText, data)
}

// Subscribe registers a new subscriber channel. The returned func removes the
// subscription; it is safe to call more than once.
func (c *WSClient) Subscribe() (<-chan WSEvent, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++

	ch := make(chan WSEvent, 16)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	c.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

// Close tears the connection down and closes all subscriber channels.
func (c *WSClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	for id, sub := range c.subs {
		delete(c.subs, id)
		close(sub)
	}
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "")
	}
	return nil
}

func (c *WSClient) publish(ev WSEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	for _, sub := range c.subs {
		select {
		case sub <- ev:
		default:
			// Slow subscribers drop messages instead of blocking the read loop.
		}
	}
}

func (c *WSClient) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		closed := c.closed
		c.mu.Unlock()

		if closed || conn == nil {
			return
		}

		_, data, err := conn.Read(c.ctx)
		if err != nil {
			c.mu.Lock()
			closed = c.closed
			c.mu.Unlock()
			if closed {
				return
			}

			if rerr := c.reconnect(); rerr != nil {
				c.logger.Warn("websocket reconnect exhausted", zap.Error(rerr))
				c.publish(WSEvent{Err: rerr})
				return
			}
			continue
		}

		c.publish(WSEvent{Data: data})
	}
}

func (c *WSClient) reconnect() error {
	p := c.cfg.Reconnect.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		delay := p.Backoff(attempt)
		c.logger.Info("websocket connection lost, reconnecting",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("delay", delay),
		)

		if err := utils.WaitFor(c.ctx, delay); err != nil {
			return err
		}

		conn, err := c.dial(c.ctx)
		if err != nil {
			lastErr = err
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close(websocket.StatusNormalClosure, "")
			return fmt.Errorf("websocket client is closed")
		}
		c.conn = conn
		c.mu.Unlock()
		return nil
	}

	return fmt.Errorf("reconnect failed after %d attempts: %w", p.MaxAttempts, lastErr)
}

func (c *WSClient) pingLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		conn := c.conn
		closed := c.closed
		c.mu.Unlock()

		if closed {
			return
		}
		if conn == nil {
			continue
		}

		pingCtx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
		if err := conn.Ping(pingCtx); err != nil {
			// The read loop notices the broken connection and reconnects.
			c.logger.Debug("websocket ping failed", zap.Error(err))
		}
		cancel()
	}
}
