// Package wsconn provides a WebSocket client with reconnection, keep-alive
// pings and read limits, built on coder/websocket.
package wsconn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
)

const meterName = "wsconn"

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL  string
	Name string // used in metrics and errors

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite

	PingInterval   time.Duration // 0 disables pings
	ReadTimeout    time.Duration // 0 disables the per-read deadline
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0,
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// MessageHandler receives every data frame.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler is notified on every state transition. err carries the cause
// for disconnects.
type StateHandler func(state State, err error)

// ConnectHandler runs after every successful (re)connect, e.g. to resubscribe.
type ConnectHandler func(ctx context.Context) error

// Client is a reconnecting WebSocket client.
type Client struct {
	config Config

	conn   *websocket.Conn
	connMu sync.RWMutex

	state   State
	stateMu sync.RWMutex

	onMessage MessageHandler
	onState   StateHandler
	onConnect ConnectHandler
	handlerMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	reconnecting atomic.Bool

	messages   metric.Int64Counter
	reconnects metric.Int64Counter
	attrs      metric.MeasurementOption
}

// New creates a client. It does not connect.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("wsconn: empty url"))
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		config: cfg,
		state:  StateDisconnected,
		ctx:    ctx,
		cancel: cancel,
		attrs:  metric.WithAttributes(attribute.String("conn", cfg.Name)),
	}

	meter := otel.Meter(meterName)
	var err error
	c.messages, err = meter.Int64Counter("wsconn_messages_total",
		metric.WithDescription("Frames received"))
	if err != nil {
		return nil, err
	}
	c.reconnects, err = meter.Int64Counter("wsconn_reconnects_total",
		metric.WithDescription("Reconnect attempts"))
	if err != nil {
		return nil, err
	}

	return c, nil
}

// OnMessage registers the frame handler.
func (c *Client) OnMessage(h MessageHandler) {
	c.handlerMu.Lock()
	c.onMessage = h
	c.handlerMu.Unlock()
}

// OnStateChange registers the state handler.
func (c *Client) OnStateChange(h StateHandler) {
	c.handlerMu.Lock()
	c.onState = h
	c.handlerMu.Unlock()
}

// OnConnect registers a hook run after each successful connect.
func (c *Client) OnConnect(h ConnectHandler) {
	c.handlerMu.Lock()
	c.onConnect = h
	c.handlerMu.Unlock()
}

// Connect dials once.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return apperror.New(apperror.CodeWebSocketClosed,
			apperror.WithContext(c.config.Name))
	}

	c.setState(StateConnecting, nil)

	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		c.setState(StateDisconnected, err)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s: dial %s", c.config.Name, c.config.URL)))
	}
	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.setState(StateConnected, nil)

	// Loops start only after the hook succeeds.
	c.handlerMu.RLock()
	hook := c.onConnect
	c.handlerMu.RUnlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			c.connMu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.connMu.Unlock()
			conn.CloseNow()
			c.setState(StateDisconnected, err)
			return apperror.New(apperror.CodeWebSocketSendError,
				apperror.WithCause(err),
				apperror.WithContext(c.config.Name+": on-connect hook"))
		}
	}

	go c.readLoop(conn)
	if c.config.PingInterval > 0 {
		go c.pingLoop(conn)
	}

	return nil
}

// ConnectWithRetry dials with exponential backoff until success, ctx is done
// or MaxReconnects attempts have failed.
func (c *Client) ConnectWithRetry(ctx context.Context) error {
	backoff := c.config.InitialBackoff
	attempt := 0

	for {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if c.closed.Load() {
			return err
		}

		attempt++
		if c.config.MaxReconnects > 0 && attempt >= c.config.MaxReconnects {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}
	}
}

// Send writes a text frame.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil || c.State() != StateConnected {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithContext(c.config.Name+": not connected"))
	}

	if c.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.WriteTimeout)
		defer cancel()
	}

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name))
	}
	return nil
}

// SendJSON marshals v and sends it as a text frame.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext(c.config.Name+": marshal"))
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the client is connected.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close shuts the connection down and stops reconnecting. It is idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	c.setState(StateClosed, nil)

	if conn != nil {
		// The peer may already be gone; a failed close handshake is not an error here.
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
	c.cancel()
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		ctx := c.ctx
		var cancel context.CancelFunc = func() {}
		if c.config.ReadTimeout > 0 {
			ctx, cancel = context.WithTimeout(c.ctx, c.config.ReadTimeout)
		}

		_, data, err := conn.Read(ctx)
		cancel()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		c.messages.Add(c.ctx, 1, c.attrs)

		c.handlerMu.RLock()
		h := c.onMessage
		c.handlerMu.RUnlock()
		if h != nil {
			h(c.ctx, data)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if c.currentConn() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(c.ctx, c.config.PingInterval)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				// Forces readLoop to fail and drive the reconnect.
				conn.CloseNow()
				return
			}
		}
	}
}

func (c *Client) handleDisconnect(conn *websocket.Conn, cause error) {
	if c.closed.Load() {
		return
	}

	c.connMu.Lock()
	if c.conn != conn {
		c.connMu.Unlock()
		return
	}
	c.conn = nil
	c.connMu.Unlock()
	conn.CloseNow()

	c.setState(StateDisconnected, cause)

	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.reconnecting.Store(false)

		c.setState(StateReconnecting, cause)
		c.reconnects.Add(c.ctx, 1, c.attrs)

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(c.config.InitialBackoff):
		}

		// Errors surface through the state handler; the loop ends only when
		// the client is closed or retries are exhausted.
		_ = c.ConnectWithRetry(c.ctx)
	}()
}

func (c *Client) currentConn() *websocket.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn
}

func (c *Client) setState(s State, err error) {
	c.stateMu.Lock()
	if c.state == StateClosed && s != StateClosed {
		c.stateMu.Unlock()
		return
	}
	c.state = s
	c.stateMu.Unlock()

	c.handlerMu.RLock()
	h := c.onState
	c.handlerMu.RUnlock()
	if h != nil {
		h(s, err)
	}
}
