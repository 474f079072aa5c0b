package pyth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apm"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
	"github.com/fd1az/oracle-arbitrage-bot/internal/wsconn"
)

const (
	tracerName = "pyth"
	meterName  = "pyth"

	// DefaultHermesWSURL is the public Hermes streaming endpoint.
	DefaultHermesWSURL = "wss://hermes.pyth.network/ws"
)

type streamMetrics struct {
	priceUpdates metric.Int64Counter
	parseErrors  metric.Int64Counter
}

// StreamClient follows one feed over the Hermes WebSocket and resubscribes
// after every reconnect.
type StreamClient struct {
	feedID string
	logger logger.LoggerInterface
	conn   *wsconn.Client

	onPrice   func(domain.PriceObservation)
	handlerMu sync.RWMutex

	tracer  apm.Tracer
	metrics *streamMetrics
	attrs   metric.MeasurementOption
}

// NewStreamClient creates the client. It does not connect.
func NewStreamClient(url, feedID string, log logger.LoggerInterface) (*StreamClient, error) {
	if url == "" {
		url = DefaultHermesWSURL
	}

	conn, err := wsconn.New(wsconn.DefaultConfig(url, "hermes"))
	if err != nil {
		return nil, apperror.New(apperror.CodeOracleConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to create wsconn"))
	}

	s := &StreamClient{
		feedID: FormatFeedID(feedID),
		logger: log,
		conn:   conn,
		tracer: apm.NewTracer(tracerName),
		attrs:  metric.WithAttributes(attribute.String("feed_id", FormatFeedID(feedID))),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	conn.OnMessage(s.handleMessage)
	conn.OnConnect(s.subscribe)

	return s, nil
}

func (s *StreamClient) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &streamMetrics{}

	s.metrics.priceUpdates, err = meter.Int64Counter(
		"pyth_price_updates_total",
		metric.WithDescription("Price updates received from Hermes"),
	)
	if err != nil {
		return err
	}

	s.metrics.parseErrors, err = meter.Int64Counter(
		"pyth_parse_errors_total",
		metric.WithDescription("Hermes messages that could not be parsed"),
	)
	if err != nil {
		return err
	}

	return nil
}

// OnPrice registers the observation handler.
func (s *StreamClient) OnPrice(handler func(domain.PriceObservation)) {
	s.handlerMu.Lock()
	s.onPrice = handler
	s.handlerMu.Unlock()
}

// Connect dials with retry until connected or ctx is done.
func (s *StreamClient) Connect(ctx context.Context) error {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "pyth.hermes.connect",
		trace.WithAttributes(attribute.String("feed_id", s.feedID)),
	)
	defer span.End()

	if err := s.conn.ConnectWithRetry(ctx); err != nil {
		span.NoticeError(err)
		return apperror.New(apperror.CodeOracleConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect to Hermes"))
	}

	s.logger.Info(ctx, "hermes stream connected", "feed_id", s.feedID)
	return nil
}

func (s *StreamClient) subscribe(ctx context.Context) error {
	return s.conn.SendJSON(ctx, SubscribeRequest{
		Type: MessageTypeSubscribe,
		IDs:  []string{s.feedID},
	})
}

func (s *StreamClient) handleMessage(ctx context.Context, data []byte) {
	var msg StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.metrics.parseErrors.Add(ctx, 1, s.attrs)
		s.logger.Debug(ctx, "failed to parse hermes message", "error", err, "data", string(data[:min(len(data), 500)]))
		return
	}

	switch msg.Type {
	case MessageTypeResponse:
		if msg.Status != "success" {
			s.logger.Error(ctx, "hermes subscription rejected", "feed_id", s.feedID, "error", msg.Error)
		}
	case MessageTypePriceUpdate:
		if msg.PriceFeed == nil || NormalizeFeedID(msg.PriceFeed.ID) != NormalizeFeedID(s.feedID) {
			return
		}
		obs, err := msg.PriceFeed.ToDomain()
		if err != nil {
			s.metrics.parseErrors.Add(ctx, 1, s.attrs)
			s.logger.Warn(ctx, "dropping malformed price update", "error", err)
			return
		}
		s.metrics.priceUpdates.Add(ctx, 1, s.attrs)

		s.handlerMu.RLock()
		handler := s.onPrice
		s.handlerMu.RUnlock()
		if handler != nil {
			handler(obs)
		}
	}
}

// IsConnected reports whether the stream is up.
func (s *StreamClient) IsConnected() bool {
	return s.conn.IsConnected()
}

// Close closes the stream.
func (s *StreamClient) Close() error {
	return s.conn.Close()
}
