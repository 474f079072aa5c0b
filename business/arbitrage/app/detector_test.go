package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/domain"
	pricingApp "github.com/fd1az/oracle-arbitrage-bot/business/pricing/app"
	pricingDomain "github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apm"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

type fakeReporter struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	signals  []*domain.Signal
	snapshot int
}

func (r *fakeReporter) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

func (r *fakeReporter) Report(s *domain.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
}

func (r *fakeReporter) UpdatePrices(*pricingDomain.PriceSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot++
}

func (r *fakeReporter) UpdateConnectionStatus(string, bool, time.Duration) {}

func (r *fakeReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	return nil
}

func (r *fakeReporter) reports() []*domain.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Signal(nil), r.signals...)
}

func (r *fakeReporter) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

func newTestDetector(t *testing.T, svc *pricingApp.PricingService, rep Reporter) *Detector {
	t.Helper()
	d, err := NewDetector(svc, NewFinder(), []Reporter{rep}, DetectorConfig{
		PollInterval: 5 * time.Millisecond,
		Symbol:       "SOLUSDT",
		FeedID:       "0xef0d",
	}, &mockLogger{})
	require.NoError(t, err)
	return d
}

// runDetector runs d in the background and delivers Run's result on the
// returned channel.
func runDetector(ctx context.Context, d *Detector) (<-chan error, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Run(ctx)
	}()
	return errCh, cancel
}

func TestDetector_ReportsEachOpportunityOnce(t *testing.T) {
	svc := pricingApp.NewPricingService(time.Minute, time.Minute)
	svc.Oracle().Store(solObservation())
	svc.Ticker().Store(ticker("71.2833", "0.8574", "72.0012", "0.9245"))

	rep := &fakeReporter{}
	d := newTestDetector(t, svc, rep)
	errCh, cancel := runDetector(context.Background(), d)
	defer cancel()

	require.Eventually(t, func() bool { return len(rep.reports()) == 1 }, time.Second, 5*time.Millisecond)

	// Same quote on later ticks is a duplicate.
	require.Eventually(t, func() bool { return d.Finder().Duplicates() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Len(t, rep.reports(), 1)

	svc.Ticker().Store(ticker("67.5421", "1.1258", "67.8423", "2.5569"))
	require.Eventually(t, func() bool { return len(rep.reports()) == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
	assert.True(t, rep.isStopped())

	got := rep.reports()
	assert.Equal(t, domain.DirectionSellOnExchange, got[0].Opportunity.Direction)
	assert.Equal(t, "SOLUSDT", got[0].Symbol)
	assert.True(t, got[0].Band.Upper.Equal(dec("71.27225988")), "upper = %s", got[0].Band.Upper)
	assert.Equal(t, domain.DirectionBuyOnExchange, got[1].Opportunity.Direction)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestDetector_NoDataNoReports(t *testing.T) {
	svc := pricingApp.NewPricingService(time.Minute, time.Minute)
	rep := &fakeReporter{}
	d := newTestDetector(t, svc, rep)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, d.Run(ctx))
	assert.Empty(t, rep.reports())
	assert.True(t, rep.isStopped())
}

func TestDetector_FatalErrorStopsLoop(t *testing.T) {
	svc := pricingApp.NewPricingService(time.Minute, time.Minute)
	svc.Oracle().Store(solObservation())
	svc.Ticker().Store(ticker("not-a-price", "1", "70", "1"))

	rep := &fakeReporter{}
	d := newTestDetector(t, svc, rep)
	errCh, cancel := runDetector(context.Background(), d)
	defer cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTicker))
	case <-time.After(time.Second):
		t.Fatal("detector did not stop on a malformed ticker")
	}

	assert.True(t, rep.isStopped())
	assert.Empty(t, rep.reports())
}

func TestDetector_FailedPassRecordsErrorSpan(t *testing.T) {
	svc := pricingApp.NewPricingService(time.Minute, time.Minute)
	svc.Oracle().Store(solObservation())
	svc.Ticker().Store(ticker("not-a-price", "1", "70", "1"))

	d := newTestDetector(t, svc, &fakeReporter{})
	rec := tracetest.NewSpanRecorder()
	d.tracer = apm.FromTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)).Tracer("test"))

	require.Error(t, d.tick(context.Background()))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "arbitrage.detect", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestDetector_SignalBandMatchesOpportunity(t *testing.T) {
	svc := pricingApp.NewPricingService(time.Minute, time.Minute)
	low := solObservation()
	high := low
	high.Mantissa += 500000
	svc.Oracle().Store(low)
	svc.Ticker().Store(ticker("75", "1", "76", "1"))

	rep := &fakeReporter{}
	d := newTestDetector(t, svc, rep)

	// Each oracle move changes the band edge, so every pass reports.
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			svc.Oracle().Store(high)
		} else {
			svc.Oracle().Store(low)
		}
		go svc.Oracle().Store(low)
		require.NoError(t, d.tick(context.Background()))
	}

	require.NotEmpty(t, rep.reports())
	for _, s := range rep.reports() {
		require.Equal(t, domain.DirectionSellOnExchange, s.Opportunity.Direction)
		assert.True(t, s.Band.Upper.Equal(s.Opportunity.OraclePrice),
			"band upper %s, oracle price %s", s.Band.Upper, s.Opportunity.OraclePrice)
	}
}
