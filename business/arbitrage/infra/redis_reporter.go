package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
)

var _ app.Reporter = (*RedisReporter)(nil)

const (
	meterName = "arbitrage.redis"

	// streamMaxLen is the approximate cap on the signal stream.
	streamMaxLen int64 = 10000

	publishTimeout = 2 * time.Second
	queueSize      = 64
)

// SignalPublisher fans a payload out to subscribers and a durable stream.
type SignalPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// RedisConfig holds connection parameters for the Redis client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SignalBus implements SignalPublisher with Redis Pub/Sub and Streams.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus connects to Redis and pings it.
func NewSignalBus(ctx context.Context, cfg RedisConfig) (*SignalBus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, apperror.New(apperror.CodeServiceUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("redis ping "+cfg.Addr))
	}

	return &SignalBus{rdb: rdb}, nil
}

// Publish sends payload on a Pub/Sub channel.
func (b *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// StreamAppend appends payload to a stream trimmed to about streamMaxLen.
func (b *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// Close closes the Redis connection.
func (b *SignalBus) Close() error {
	return b.rdb.Close()
}

// RedisReporter publishes each signal as JSON from a background worker.
// When the queue is full the signal is dropped and counted.
type RedisReporter struct {
	pub     SignalPublisher
	channel string
	stream  string
	logger  logger.LoggerInterface

	queue chan *domain.Signal
	wg    sync.WaitGroup
	once  sync.Once

	published metric.Int64Counter
	failures  metric.Int64Counter
}

// NewRedisReporter creates the reporter. An empty stream disables XADD.
func NewRedisReporter(pub SignalPublisher, channel, stream string, log logger.LoggerInterface) (*RedisReporter, error) {
	meter := otel.Meter(meterName)

	published, err := meter.Int64Counter(
		"arbitrage_redis_published_total",
		metric.WithDescription("Signals published to Redis"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter(
		"arbitrage_redis_failures_total",
		metric.WithDescription("Signals that could not be published"),
	)
	if err != nil {
		return nil, err
	}

	return &RedisReporter{
		pub:       pub,
		channel:   channel,
		stream:    stream,
		logger:    log,
		queue:     make(chan *domain.Signal, queueSize),
		published: published,
		failures:  failures,
	}, nil
}

// Start launches the publishing worker.
func (r *RedisReporter) Start(ctx context.Context) error {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for s := range r.queue {
			r.publish(context.WithoutCancel(ctx), s)
		}
	}()
	return nil
}

// Report queues a signal for publishing.
func (r *RedisReporter) Report(s *domain.Signal) {
	select {
	case r.queue <- s:
	default:
		r.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", "queue_full")))
		r.logger.Warn(context.Background(), "redis queue full, dropping signal", "signal_id", s.ID.String())
	}
}

func (r *RedisReporter) publish(ctx context.Context, s *domain.Signal) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	payload, err := json.Marshal(s)
	if err != nil {
		r.fail(ctx, s, "marshal", err)
		return
	}

	if err := r.pub.Publish(ctx, r.channel, payload); err != nil {
		r.fail(ctx, s, "publish", err)
		return
	}
	if r.stream != "" {
		if err := r.pub.StreamAppend(ctx, r.stream, payload); err != nil {
			r.fail(ctx, s, "stream", err)
			return
		}
	}

	r.published.Add(ctx, 1)
}

func (r *RedisReporter) fail(ctx context.Context, s *domain.Signal, reason string, err error) {
	r.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	r.logger.Error(ctx, "failed to publish signal",
		"signal_id", s.ID.String(),
		"error", apperror.New(apperror.CodeRedisPublishFailed, apperror.WithCause(err)),
	)
}

// UpdatePrices is a no-op; only signals are published.
func (r *RedisReporter) UpdatePrices(*pricingDomain.PriceSnapshot) {}

// UpdateConnectionStatus is a no-op.
func (r *RedisReporter) UpdateConnectionStatus(string, bool, time.Duration) {}

// Stop drains the queue and waits for the worker.
func (r *RedisReporter) Stop() error {
	r.once.Do(func() { close(r.queue) })
	r.wg.Wait()
	return nil
}
