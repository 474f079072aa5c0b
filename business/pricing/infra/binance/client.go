package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/oracle-arbitrage-bot/internal/apm"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
	"github.com/fd1az/oracle-arbitrage-bot/internal/wsconn"
)

const (
	tracerName = "binance"
	meterName  = "binance"

	// Binance WebSocket endpoints
	BaseWSURL = "wss://stream.binance.com:9443"
	// Binance US endpoint (for users in USA)
	BaseWSURLUS = "wss://stream.binance.us:9443"

	// Keep-alive interval (Binance requires message every 3 min)
	keepAliveInterval = 2 * time.Minute
)

// ClientConfig holds configuration for the Binance client.
type ClientConfig struct {
	BaseURL      string        // WebSocket base URL
	Symbol       string        // Symbol to follow (e.g., "SOLUSDT")
	ReadTimeout  time.Duration // Read timeout
	WriteTimeout time.Duration // Write timeout
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(symbol string) ClientConfig {
	return ClientConfig{
		BaseURL:      BaseWSURL,
		Symbol:       symbol,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// clientMetrics holds OTEL metric instruments.
type clientMetrics struct {
	messagesReceived metric.Int64Counter
	tickerUpdates    metric.Int64Counter
	parseErrors      metric.Int64Counter
}

// Client is a Binance bookTicker WebSocket client.
type Client struct {
	config ClientConfig
	logger logger.LoggerInterface

	conn *wsconn.Client

	onBookTicker func(*BookTickerEvent)
	handlersMu   sync.RWMutex

	nextID atomic.Int64

	tracer  apm.Tracer
	metrics *clientMetrics
	attrs   metric.MeasurementOption
}

// NewClient creates a new Binance WebSocket client. It does not connect.
func NewClient(cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseWSURL
	}

	wsURL, err := BuildStreamURL(cfg.BaseURL, cfg.Symbol)
	if err != nil {
		return nil, err
	}

	wsCfg := wsconn.DefaultConfig(wsURL, "binance")
	if cfg.ReadTimeout > 0 {
		wsCfg.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		wsCfg.WriteTimeout = cfg.WriteTimeout
	}

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return nil, apperror.New(apperror.CodeBinanceConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to create wsconn"))
	}

	c := &Client{
		config: cfg,
		logger: log,
		conn:   conn,
		tracer: apm.NewTracer(tracerName),
		attrs:  metric.WithAttributes(attribute.String("symbol", cfg.Symbol)),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	conn.OnMessage(c.handleMessage)
	conn.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			c.logger.Warn(context.Background(), "binance connection state changed", "state", state, "error", err)
			return
		}
		c.logger.Debug(context.Background(), "binance connection state changed", "state", state)
	})

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.messagesReceived, err = meter.Int64Counter(
		"binance_messages_total",
		metric.WithDescription("Total messages received"),
	)
	if err != nil {
		return err
	}

	c.metrics.tickerUpdates, err = meter.Int64Counter(
		"binance_book_ticker_updates_total",
		metric.WithDescription("Total bookTicker updates received"),
	)
	if err != nil {
		return err
	}

	c.metrics.parseErrors, err = meter.Int64Counter(
		"binance_parse_errors_total",
		metric.WithDescription("Message parse errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// OnBookTicker registers a handler for book ticker events.
func (c *Client) OnBookTicker(handler func(*BookTickerEvent)) {
	c.handlersMu.Lock()
	c.onBookTicker = handler
	c.handlersMu.Unlock()
}

// Connect dials with retry until connected or ctx is done, then starts the
// keep-alive loop.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := c.tracer.StartSpanFromContext(ctx, "binance.connect",
		trace.WithAttributes(attribute.String("symbol", c.config.Symbol)),
	)
	defer span.End()

	if err := c.conn.ConnectWithRetry(ctx); err != nil {
		span.NoticeError(err)
		return apperror.New(apperror.CodeBinanceConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect to Binance"))
	}

	go c.keepAlive(ctx)

	c.logger.Info(ctx, "binance client connected", "symbol", c.config.Symbol)
	return nil
}

// BuildStreamURL constructs the combined stream URL for a symbol's bookTicker.
func BuildStreamURL(baseURL, symbol string) (string, error) {
	if symbol == "" {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no symbol configured"))
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("invalid binance websocket url"))
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + BookTickerStream(symbol)

	return u.String(), nil
}

// handleMessage processes incoming WebSocket messages.
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	c.metrics.messagesReceived.Add(ctx, 1, c.attrs)

	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil || event.Stream == "" {
		// Control responses (e.g. to LIST_SUBSCRIPTIONS) carry no stream.
		var resp WSResponse
		if json.Unmarshal(data, &resp) == nil && resp.ID != 0 {
			c.logger.Debug(ctx, "control response received", "id", resp.ID)
			return
		}
		c.metrics.parseErrors.Add(ctx, 1, c.attrs)
		c.logger.Debug(ctx, "failed to parse message", "error", err, "data", string(data[:min(len(data), 500)]))
		return
	}

	if !strings.HasSuffix(event.Stream, "@bookTicker") {
		return
	}

	var ticker BookTickerEvent
	if err := json.Unmarshal(event.Data, &ticker); err != nil {
		c.metrics.parseErrors.Add(ctx, 1, c.attrs)
		c.logger.Warn(ctx, "failed to parse book ticker", "error", err)
		return
	}
	c.metrics.tickerUpdates.Add(ctx, 1, c.attrs)

	c.handlersMu.RLock()
	handler := c.onBookTicker
	c.handlersMu.RUnlock()
	if handler != nil {
		handler(&ticker)
	}
}

// keepAlive sends a LIST_SUBSCRIPTIONS request periodically so Binance sees
// client traffic.
func (c *Client) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.conn.State() == wsconn.StateClosed {
				return
			}
			if !c.conn.IsConnected() {
				continue
			}
			req := WSRequest{
				Method: "LIST_SUBSCRIPTIONS",
				ID:     c.nextID.Add(1),
			}
			if err := c.conn.SendJSON(ctx, req); err != nil {
				c.logger.Warn(ctx, "keep-alive failed", "error", err)
			}
		}
	}
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}
