// Package arbitrage implements the arbitrage bounded context: it watches the
// pricing cells and reports every new oracle-vs-exchange opportunity.
package arbitrage

import (
	"context"
	"fmt"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/di"
	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/infra"
	pricingDI "github.com/fd1az/oracle-arbitrage-bot/business/pricing/di"
	"github.com/fd1az/oracle-arbitrage-bot/internal/config"
	"github.com/fd1az/oracle-arbitrage-bot/internal/di"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
	"github.com/fd1az/oracle-arbitrage-bot/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Finder, func(sr di.ServiceRegistry) *app.Finder {
		return app.NewFinder()
	})

	// Console output in CLI mode, dashboard messages in TUI mode.
	di.RegisterToken(c, arbitrageDI.Reporters, func(sr di.ServiceRegistry) []app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Arbitrage.TUIMode {
			return []app.Reporter{infra.NewTUIReporter()}
		}
		return []app.Reporter{infra.NewConsoleReporter(nil)}
	})

	di.RegisterToken(c, arbitrageDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		detector, err := app.NewDetector(
			pricingDI.GetPricingService(sr),
			arbitrageDI.GetFinder(sr),
			di.GetToken(sr, arbitrageDI.Reporters),
			app.DetectorConfig{
				PollInterval: cfg.Arbitrage.PollInterval,
				Symbol:       cfg.Binance.Symbol,
				FeedID:       cfg.Oracle.FeedID,
			},
			log,
		)
		if err != nil {
			panic("failed to create detector: " + err.Error())
		}
		return detector
	})

	return nil
}

// Startup wires the optional Redis fan-out and runs the detector under the
// monolith supervisor. A fatal detection error ends the whole application.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()
	detector := arbitrageDI.GetDetector(mono.Services())

	if cfg.Redis.Enabled {
		bus, err := infra.NewSignalBus(ctx, infra.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		mono.OnClose(bus.Close)

		reporter, err := infra.NewRedisReporter(bus, cfg.Redis.Channel, cfg.Redis.Stream, log)
		if err != nil {
			return fmt.Errorf("redis reporter: %w", err)
		}
		detector.AddReporter(reporter)
		log.Info(ctx, "redis signal fan-out enabled", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}

	mono.Go("detector", detector.Run)

	log.Info(ctx, "arbitrage module started", "poll_interval", cfg.Arbitrage.PollInterval)
	return nil
}
