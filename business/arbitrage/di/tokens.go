// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/oracle-arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Detector = di.NewToken[*app.Detector]("arbitrage.Detector")
)

// Private service tokens - internal to arbitrage module
var (
	Finder    = di.NewToken[*app.Finder]("arbitrage.Finder")
	Reporters = di.NewToken[[]app.Reporter]("arbitrage.Reporters")
)

// GetDetector returns the arbitrage detector.
func GetDetector(c di.ServiceRegistry) *app.Detector {
	return di.GetToken(c, Detector)
}

// GetFinder returns the shared opportunity finder.
func GetFinder(c di.ServiceRegistry) *app.Finder {
	return di.GetToken(c, Finder)
}
