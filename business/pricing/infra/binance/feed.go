package binance

import (
	"context"
	"time"

	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
)

var _ app.Feed = (*Feed)(nil)

// FeedConfig holds configuration for the Binance ticker feed.
type FeedConfig struct {
	WebSocketURL   string        // WebSocket base URL (empty = default)
	HTTPURL        string        // REST API base URL (empty = default)
	Symbol         string        // Trading symbol (e.g., "SOLUSDT")
	StaleTimeout   time.Duration // How long before data is considered stale
	EnableFallback bool          // Poll REST when WS data is stale
}

// Feed streams bookTicker updates into the ticker cell, polling the REST
// endpoint while the stream is stale.
type Feed struct {
	config FeedConfig
	logger logger.LoggerInterface
	client *Client
	http   app.TickerFetcher
	sink   app.TickerSink
	age    app.AgeFunc
}

// NewFeed creates the feed. sink receives every ticker and age reports the
// sink's freshness for the fallback decision.
func NewFeed(cfg FeedConfig, sink app.TickerSink, age app.AgeFunc, log logger.LoggerInterface) (*Feed, error) {
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 5 * time.Second
	}

	clientCfg := DefaultClientConfig(cfg.Symbol)
	if cfg.WebSocketURL != "" {
		clientCfg.BaseURL = cfg.WebSocketURL
	}

	client, err := NewClient(clientCfg, log)
	if err != nil {
		return nil, err
	}

	f := &Feed{
		config: cfg,
		logger: log,
		client: client,
		sink:   sink,
		age:    age,
	}

	if cfg.EnableFallback {
		httpClient, err := NewHTTPClient(HTTPClientConfig{BaseURL: cfg.HTTPURL}, log)
		if err != nil {
			// Continue without HTTP fallback
			log.Warn(context.Background(), "failed to create HTTP fallback client", "error", err)
		} else {
			f.http = httpClient
		}
	}

	client.OnBookTicker(func(e *BookTickerEvent) {
		f.sink.Store(e.ToDomain())
	})

	return f, nil
}

// Name implements app.Feed.
func (f *Feed) Name() string {
	return "binance"
}

// Connected implements app.Feed.
func (f *Feed) Connected() bool {
	return f.client.IsConnected()
}

// Age implements app.Feed.
func (f *Feed) Age() (time.Duration, bool) {
	return f.age()
}

// Run connects the stream and, with fallback enabled, polls REST while the
// cell is stale. Returns nil once ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	defer f.client.Close()

	go func() {
		if err := f.client.Connect(ctx); err != nil && ctx.Err() == nil {
			f.logger.Error(ctx, "binance stream gave up", "error", err)
		}
	}()

	if f.http == nil {
		<-ctx.Done()
		return nil
	}

	return app.PollWhenStale(ctx, f.age, f.config.StaleTimeout, f.config.StaleTimeout/2,
		func(ctx context.Context) error {
			tk, err := f.http.BookTicker(ctx, f.config.Symbol)
			if err != nil {
				return err
			}
			f.logger.Debug(ctx, "ticker stale, refreshed via HTTP", "symbol", f.config.Symbol)
			f.sink.Store(tk)
			return nil
		},
		func(err error) {
			f.logger.Warn(ctx, "binance HTTP fallback failed", "error", err)
		})
}
