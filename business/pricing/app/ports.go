// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
)

// Feed is a publisher that keeps one price cell current until ctx is done.
type Feed interface {
	Name() string
	Run(ctx context.Context) error
	// Connected reports whether the streaming transport is up.
	Connected() bool
	// Age reports how old the feed's newest value is, false when empty.
	Age() (time.Duration, bool)
}

// OracleFetcher reads the current oracle price on demand (REST or contract call).
type OracleFetcher interface {
	LatestPrice(ctx context.Context) (domain.PriceObservation, error)
}

// TickerFetcher reads the current best bid/ask on demand.
type TickerFetcher interface {
	BookTicker(ctx context.Context, symbol string) (domain.BookTicker, error)
}

// ObservationSink receives oracle observations.
type ObservationSink interface {
	Load() (domain.PriceObservation, bool)
	Store(domain.PriceObservation)
}

// TickerSink receives exchange tickers.
type TickerSink interface {
	Store(domain.BookTicker)
}
