// Package main is the entry point for the oracle arbitrage detector.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage"
	"github.com/fd1az/oracle-arbitrage-bot/business/pricing"
	pricingDI "github.com/fd1az/oracle-arbitrage-bot/business/pricing/di"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apm"
	"github.com/fd1az/oracle-arbitrage-bot/internal/config"
	"github.com/fd1az/oracle-arbitrage-bot/internal/health"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
	"github.com/fd1az/oracle-arbitrage-bot/internal/metrics"
	"github.com/fd1az/oracle-arbitrage-bot/internal/monolith"
	"github.com/fd1az/oracle-arbitrage-bot/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	symbol := flag.String("symbol", "", "Exchange symbol, overrides binance.symbol")
	feedID := flag.String("feed-id", "", "Pyth price feed id, overrides oracle.feed_id")
	flag.Parse()

	if *showVersion {
		fmt.Printf("oracle-arbitrage-bot %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options{
		configPath: *configPath,
		tuiMode:    tuiMode,
		symbol:     *symbol,
		feedID:     *feedID,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	tuiMode    bool
	symbol     string
	feedID     string
}

func run(ctx context.Context, opts options) error {
	if opts.symbol != "" {
		os.Setenv("ARB_BINANCE_SYMBOL", opts.symbol)
	}
	if opts.feedID != "" {
		os.Setenv("ARB_PYTH_FEED_ID", opts.feedID)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set TUI mode in config so modules know
	cfg.Arbitrage.TUIMode = opts.tuiMode

	// The TUI owns the terminal, so logs are discarded there.
	var out io.Writer = os.Stderr
	if opts.tuiMode {
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting oracle arbitrage detector",
		"version", version,
		"environment", cfg.App.Environment,
		"symbol", cfg.Binance.Symbol,
		"oracle_source", cfg.Oracle.Source,
	)

	if cfg.Telemetry.Enabled {
		shutdown, err := setupTelemetry(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	app := monolith.New(ctx, cfg, log)
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn(context.Background(), "cleanup failed", "error", err)
		}
	}()

	// Pricing first: arbitrage reads its cells.
	modules := []monolith.Module{
		&pricing.Module{},
		&arbitrage.Module{},
	}

	if err := app.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	svc := pricingDI.GetPricingService(app.Services())
	healthServer.RegisterCheck("oracle", svc.OracleCheck())
	healthServer.RegisterCheck("binance", svc.TickerCheck())
	if err := healthServer.Start(ctx); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		healthServer.Stop(shutdownCtx)
	}()

	if opts.tuiMode {
		return runTUI(app, modules, cfg)
	}
	return runCLI(app, modules, log)
}

func runCLI(app *monolith.App, modules []monolith.Module, log logger.LoggerInterface) error {
	ctx := app.Context()
	if err := app.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	log.Info(ctx, "all modules started, beginning arbitrage detection")

	if err := app.Wait(); err != nil {
		return fmt.Errorf("detection aborted: %w", err)
	}
	log.Info(context.Background(), "shut down cleanly")
	return nil
}

func runTUI(app *monolith.App, modules []monolith.Module, cfg *config.Config) error {
	ctx := app.Context()
	started := make(chan struct{})

	// Modules start once the welcome screen is done so connection progress
	// is visible.
	ui.OnStartModules = func() {
		ui.Send(ui.StartupMsg{Step: "binance", Status: "connecting"})
		ui.Send(ui.StartupMsg{Step: "oracle", Status: "connecting"})
		if err := app.StartModules(ctx, modules...); err != nil {
			ui.Send(ui.StartupMsg{Step: "oracle", Status: "failed", Message: err.Error()})
			app.Go("startup", func(context.Context) error { return err })
		} else {
			ui.Send(ui.LogMsg{Level: "info", Message: "modules started, detecting"})
		}
		close(started)

		if err := app.Wait(); err != nil && !errors.Is(err, errUserQuit) {
			ui.Send(ui.ErrorMsg{Error: err})
			ui.Quit()
		}
	}

	// Signals end the program even while the dashboard has the keyboard.
	go func() {
		<-ctx.Done()
		ui.Quit()
	}()

	if err := ui.Run(ui.Info{
		Symbol:       cfg.Binance.Symbol,
		FeedID:       cfg.Oracle.FeedID,
		OracleSource: cfg.Oracle.Source,
		Version:      version,
	}); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case <-started:
	default:
		return nil
	}

	// A user quit leaves the tasks running; stop them through a task error.
	app.Go("ui", func(context.Context) error { return errUserQuit })
	if err := app.Wait(); err != nil && !errors.Is(err, errUserQuit) {
		return fmt.Errorf("detection aborted: %w", err)
	}
	return nil
}

var errUserQuit = errors.New("user quit")

func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	tp, err := apm.NewTraceProvider(ctx, apm.Config{
		Provider:    apm.Provider(cfg.Telemetry.TraceExporter),
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	mp, err := metrics.NewMetricProvider(ctx,
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	)
	if err != nil {
		tp.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	prom := metrics.NewPromServer(log, metrics.WithPort(strconv.Itoa(cfg.Telemetry.PrometheusPort)))
	prom.Start(ctx)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := prom.Stop(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "metrics server stop failed", "error", err)
		}
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "meter provider shutdown failed", "error", err)
		}
		if err := tp.Stop(); err != nil {
			log.Warn(shutdownCtx, "trace provider stop failed", "error", err)
		}
	}, nil
}
