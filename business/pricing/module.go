// Package pricing implements the pricing bounded context: it keeps the
// latest oracle observation and exchange ticker current.
package pricing

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/app"
	pricingDI "github.com/fd1az/oracle-arbitrage-bot/business/pricing/di"
	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/infra/binance"
	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/infra/pyth"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
	"github.com/fd1az/oracle-arbitrage-bot/internal/config"
	"github.com/fd1az/oracle-arbitrage-bot/internal/di"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
	"github.com/fd1az/oracle-arbitrage-bot/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		cfg := sr.Get("config").(*config.Config)
		return app.NewPricingService(cfg.Oracle.StaleTimeout, cfg.Binance.StaleTimeout)
	})

	return nil
}

// Startup builds the ticker and oracle feeds and runs them under the
// monolith supervisor.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()
	svc := pricingDI.GetPricingService(mono.Services())

	tickerFeed, err := binance.NewFeed(binance.FeedConfig{
		WebSocketURL:   cfg.Binance.WebSocketURL,
		HTTPURL:        cfg.Binance.HTTPURL,
		Symbol:         cfg.Binance.Symbol,
		StaleTimeout:   cfg.Binance.StaleTimeout,
		EnableFallback: cfg.Binance.EnableFallback,
	}, svc.Ticker(), svc.Ticker().Age, log)
	if err != nil {
		return fmt.Errorf("binance feed: %w", err)
	}
	svc.AddFeed(tickerFeed)

	oracleFeed, err := newOracleFeed(ctx, mono, svc, log)
	if err != nil {
		return fmt.Errorf("oracle feed: %w", err)
	}
	svc.AddFeed(oracleFeed)

	for _, f := range svc.Feeds() {
		mono.Go(f.Name(), f.Run)
	}

	log.Info(ctx, "pricing module started",
		"symbol", cfg.Binance.Symbol,
		"oracle_source", cfg.Oracle.Source,
		"feed_id", cfg.Oracle.FeedID,
	)
	return nil
}

func newOracleFeed(ctx context.Context, mono monolith.Monolith, svc *app.PricingService, log logger.LoggerInterface) (app.Feed, error) {
	cfg := mono.Config().Oracle

	switch cfg.Source {
	case config.OracleSourceEVM:
		client, err := ethclient.DialContext(ctx, cfg.EVMRPCURL)
		if err != nil {
			return nil, apperror.New(apperror.CodeOracleConnectionFailed,
				apperror.WithCause(err),
				apperror.WithContext("failed to dial EVM RPC"))
		}
		mono.OnClose(func() error {
			client.Close()
			return nil
		})

		reader, err := pyth.NewEVMReader(client, cfg.EVMContractAddress(), cfg.FeedID, log)
		if err != nil {
			return nil, err
		}
		return pyth.NewPollingFeed("pyth-evm", reader, svc.Oracle(), svc.Oracle().Age, cfg.PollInterval, log), nil

	default:
		return pyth.NewHermesFeed(pyth.HermesFeedConfig{
			WebSocketURL:      cfg.HermesWSURL,
			HTTPURL:           cfg.HermesHTTPURL,
			FeedID:            cfg.FeedID,
			StaleTimeout:      cfg.StaleTimeout,
			RequestsPerMinute: cfg.RequestsPerMinute,
		}, svc.Oracle(), svc.Oracle().Age, log)
	}
}
