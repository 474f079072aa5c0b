package pyth

import (
	"context"
	"sync"
	"time"

	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
)

var _ app.Feed = (*Feed)(nil)

// HermesFeedConfig holds configuration for the Hermes-backed oracle feed.
type HermesFeedConfig struct {
	WebSocketURL      string        // Hermes stream URL (empty = default)
	HTTPURL           string        // Hermes REST URL (empty = default)
	FeedID            string        // 32-byte hex feed id
	StaleTimeout      time.Duration // Poll REST once the cell is this old
	RequestsPerMinute int           // REST budget
}

// Feed keeps the oracle cell current. With a stream it polls only while the
// cell is stale; without one it polls on every interval.
type Feed struct {
	name    string
	logger  logger.LoggerInterface
	stream  *StreamClient
	fetcher app.OracleFetcher
	sink    app.ObservationSink
	age     app.AgeFunc

	staleAfter time.Duration
	interval   time.Duration

	storeMu sync.Mutex
}

// NewHermesFeed creates a feed streaming from Hermes with REST fallback.
func NewHermesFeed(cfg HermesFeedConfig, sink app.ObservationSink, age app.AgeFunc, log logger.LoggerInterface) (*Feed, error) {
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 10 * time.Second
	}

	stream, err := NewStreamClient(cfg.WebSocketURL, cfg.FeedID, log)
	if err != nil {
		return nil, err
	}

	httpClient, err := NewHTTPClient(HTTPClientConfig{
		BaseURL:           cfg.HTTPURL,
		FeedID:            cfg.FeedID,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, log)
	if err != nil {
		return nil, err
	}

	f := &Feed{
		name:       "pyth-hermes",
		logger:     log,
		stream:     stream,
		fetcher:    httpClient,
		sink:       sink,
		age:        age,
		staleAfter: cfg.StaleTimeout,
		interval:   cfg.StaleTimeout / 2,
	}
	stream.OnPrice(f.store)

	return f, nil
}

// NewPollingFeed creates a feed that reads fetcher every interval, as used
// for the on-chain contract.
func NewPollingFeed(name string, fetcher app.OracleFetcher, sink app.ObservationSink, age app.AgeFunc, interval time.Duration, log logger.LoggerInterface) *Feed {
	if interval <= 0 {
		interval = time.Second
	}
	return &Feed{
		name:     name,
		logger:   log,
		fetcher:  fetcher,
		sink:     sink,
		age:      age,
		interval: interval,
	}
}

// Name implements app.Feed.
func (f *Feed) Name() string {
	return f.name
}

// Connected implements app.Feed. A polling feed counts as connected once
// the cell holds a value.
func (f *Feed) Connected() bool {
	if f.stream != nil {
		return f.stream.IsConnected()
	}
	_, ok := f.age()
	return ok
}

// Age implements app.Feed.
func (f *Feed) Age() (time.Duration, bool) {
	return f.age()
}

// Run returns nil once ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	if f.stream != nil {
		defer f.stream.Close()
		go func() {
			if err := f.stream.Connect(ctx); err != nil && ctx.Err() == nil {
				f.logger.Error(ctx, "hermes stream gave up", "error", err)
			}
		}()
	}

	return app.PollWhenStale(ctx, f.age, f.staleAfter, f.interval,
		func(ctx context.Context) error {
			obs, err := f.fetcher.LatestPrice(ctx)
			if err != nil {
				return err
			}
			f.store(obs)
			return nil
		},
		func(err error) {
			f.logger.Warn(ctx, "oracle poll failed", "feed", f.name, "error", err)
		})
}

// store drops observations older than the one held so a slow poll cannot
// roll the price back behind the stream.
func (f *Feed) store(obs domain.PriceObservation) {
	f.storeMu.Lock()
	defer f.storeMu.Unlock()

	if cur, ok := f.sink.Load(); ok && obs.PublishTime.Before(cur.PublishTime) {
		return
	}
	f.sink.Store(obs)
}
