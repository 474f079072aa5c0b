// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/oracle-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
)

// GetPricingService returns the shared pricing service.
func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}
