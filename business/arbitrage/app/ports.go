// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
)

// Reporter defines the interface for reporting arbitrage opportunities.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report publishes a detected opportunity.
	Report(signal *domain.Signal)

	// UpdatePrices updates the current price display.
	UpdatePrices(prices *pricingDomain.PriceSnapshot)

	// UpdateConnectionStatus updates a connection status display. age is how
	// old the feed's newest value is.
	UpdateConnectionStatus(name string, connected bool, age time.Duration)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
