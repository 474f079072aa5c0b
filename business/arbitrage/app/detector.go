package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/domain"
	pricingApp "github.com/fd1az/oracle-arbitrage-bot/business/pricing/app"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apm"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
)

const (
	tracerName = "arbitrage"
	meterName  = "arbitrage"

	statusInterval = time.Second
)

// DetectorConfig holds configuration for the arbitrage detector.
type DetectorConfig struct {
	PollInterval time.Duration
	Symbol       string
	FeedID       string
}

type detectorMetrics struct {
	ticks         metric.Int64Counter
	opportunities metric.Int64Counter
	duplicates    metric.Int64Counter
	errors        metric.Int64Counter
	latency       metric.Float64Histogram
}

// Detector polls the price cells, runs the finder and fans each new
// opportunity out to the reporters.
type Detector struct {
	pricing   *pricingApp.PricingService
	finder    *Finder
	reporters []Reporter
	config    DetectorConfig
	logger    logger.LoggerInterface

	tracer  apm.Tracer
	metrics *detectorMetrics
}

// NewDetector creates a new arbitrage Detector.
func NewDetector(
	pricing *pricingApp.PricingService,
	finder *Finder,
	reporters []Reporter,
	config DetectorConfig,
	log logger.LoggerInterface,
) (*Detector, error) {
	if config.PollInterval <= 0 {
		config.PollInterval = 100 * time.Millisecond
	}

	d := &Detector{
		pricing:   pricing,
		finder:    finder,
		reporters: reporters,
		config:    config,
		logger:    log,
		tracer:    apm.NewTracer(tracerName),
	}

	if err := d.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return d, nil
}

func (d *Detector) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	d.metrics = &detectorMetrics{}

	d.metrics.ticks, err = meter.Int64Counter(
		"arbitrage_ticks_total",
		metric.WithDescription("Detection passes run"),
	)
	if err != nil {
		return err
	}

	d.metrics.opportunities, err = meter.Int64Counter(
		"arbitrage_opportunities_total",
		metric.WithDescription("Distinct opportunities reported"),
	)
	if err != nil {
		return err
	}

	d.metrics.duplicates, err = meter.Int64Counter(
		"arbitrage_duplicates_suppressed_total",
		metric.WithDescription("Repeated opportunities not reported again"),
	)
	if err != nil {
		return err
	}

	d.metrics.errors, err = meter.Int64Counter(
		"arbitrage_errors_total",
		metric.WithDescription("Fatal detection errors"),
	)
	if err != nil {
		return err
	}

	d.metrics.latency, err = meter.Float64Histogram(
		"arbitrage_detection_latency_ms",
		metric.WithDescription("Time spent in one detection pass"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// AddReporter appends a reporter. It must be called before Run.
func (d *Detector) AddReporter(r Reporter) {
	d.reporters = append(d.reporters, r)
}

// Finder returns the detector's finder.
func (d *Detector) Finder() *Finder {
	return d.finder
}

// Run starts the reporters and detects until ctx is done or a fatal error
// occurs. Reporters are stopped before it returns.
func (d *Detector) Run(ctx context.Context) error {
	for _, r := range d.reporters {
		if err := r.Start(ctx); err != nil {
			return fmt.Errorf("start reporter: %w", err)
		}
	}
	defer d.stopReporters()

	d.logger.Info(ctx, "arbitrage detector started",
		"symbol", d.config.Symbol,
		"feed_id", d.config.FeedID,
		"poll_interval", d.config.PollInterval,
	)

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()
	status := time.NewTicker(statusInterval)
	defer status.Stop()

	d.reportStatus()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info(ctx, "detector stopping", "reason", ctx.Err())
			return nil
		case <-status.C:
			d.reportStatus()
		case <-ticker.C:
			if err := d.tick(ctx); err != nil {
				d.logger.Error(ctx, "detection failed", "error", err)
				return err
			}
		}
	}
}

// tick runs one detection pass.
func (d *Detector) tick(ctx context.Context) error {
	ctx, span := d.tracer.StartSpanFromContext(ctx, "arbitrage.detect",
		trace.WithAttributes(attribute.String("symbol", d.config.Symbol)),
	)
	defer span.End()

	start := time.Now()
	dupsBefore := d.finder.Duplicates()

	opp, err := d.finder.FindOpportunity(ctx, d.pricing.Oracle(), d.pricing.Ticker())

	d.metrics.ticks.Add(ctx, 1)
	d.metrics.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	if n := d.finder.Duplicates() - dupsBefore; n > 0 {
		d.metrics.duplicates.Add(ctx, int64(n))
	}

	if err != nil {
		d.metrics.errors.Add(ctx, 1)
		span.NoticeError(err)
		return err
	}

	snapshot := d.pricing.Snapshot()
	for _, r := range d.reporters {
		r.UpdatePrices(snapshot)
	}

	if opp == nil {
		return nil
	}

	// Band the opportunity was measured against.
	band, _ := d.finder.LastBand()
	signal := domain.NewSignal(d.config.Symbol, d.config.FeedID, *opp, band)

	d.metrics.opportunities.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direction", string(opp.Direction)),
	))
	span.SetAttributes(
		attribute.String("direction", string(opp.Direction)),
		attribute.String("profit", opp.EstimatedProfit.String()),
		attribute.String("signal_id", signal.ID.String()),
	)

	d.logger.Info(ctx, "opportunity found",
		"signal_id", signal.ID.String(),
		"direction", string(opp.Direction),
		"quantity", opp.Quantity.String(),
		"exchange_price", opp.ExchangePrice.String(),
		"oracle_price", opp.OraclePrice.String(),
		"estimated_profit", opp.EstimatedProfit.String(),
	)

	for _, r := range d.reporters {
		r.Report(signal)
	}
	return nil
}

func (d *Detector) reportStatus() {
	for _, f := range d.pricing.Feeds() {
		age, _ := f.Age()
		for _, r := range d.reporters {
			r.UpdateConnectionStatus(f.Name(), f.Connected(), age)
		}
	}
}

func (d *Detector) stopReporters() {
	for _, r := range d.reporters {
		if err := r.Stop(); err != nil {
			d.logger.Warn(context.Background(), "reporter stop failed", "error", err)
		}
	}
}
