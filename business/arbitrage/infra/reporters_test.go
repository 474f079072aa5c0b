package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
	"github.com/fd1az/oracle-arbitrage-bot/pkg/ui"
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

func testSignal(t *testing.T) *domain.Signal {
	t.Helper()
	opp, err := domain.NewOpportunity(
		domain.DirectionSellOnExchange,
		decimal.RequireFromString("0.8574"),
		decimal.RequireFromString("0.009465798888"),
		decimal.RequireFromString("71.2833"),
		decimal.RequireFromString("71.27225988"),
	)
	require.NoError(t, err)
	return domain.NewSignal("SOLUSDT", "0xef0d", opp, pricingDomain.ProbableBand{
		Upper: decimal.RequireFromString("71.27225988"),
		Lower: decimal.RequireFromString("68.43263012"),
	})
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf)
	ctx := context.Background()

	require.NoError(t, r.Start(ctx))
	r.Report(testSignal(t))
	r.UpdatePrices(&pricingDomain.PriceSnapshot{})
	r.UpdateConnectionStatus("binance", true, 15*time.Millisecond)
	r.UpdateConnectionStatus("binance", true, 30*time.Millisecond)
	r.UpdateConnectionStatus("binance", false, 0)
	require.NoError(t, r.Stop())

	out := buf.String()
	assert.Contains(t, out, "ARBITRAGE OPPORTUNITY DETECTED")
	assert.Contains(t, out, "Sell on exchange")
	assert.Contains(t, out, "0.8574")
	assert.Contains(t, out, "0.009465798888")
	assert.Contains(t, out, "[68.43263012, 71.27225988]")
	assert.Equal(t, 1, strings.Count(out, "binance: connected"), "unchanged status is printed once")
	assert.Contains(t, out, "binance: disconnected")
}

func TestTUIReporter(t *testing.T) {
	var msgs []any
	r := &TUIReporter{send: func(msg any) { msgs = append(msgs, msg) }}

	s := testSignal(t)
	snap := &pricingDomain.PriceSnapshot{}
	r.Report(s)
	r.UpdatePrices(snap)
	r.UpdateConnectionStatus("pyth-hermes", true, time.Second)

	require.Len(t, msgs, 3)
	assert.Equal(t, ui.OpportunityMsg{Signal: s}, msgs[0])
	assert.Equal(t, ui.PriceUpdateMsg{Snapshot: snap}, msgs[1])
	assert.Equal(t, ui.ConnectionStatusMsg{Name: "pyth-hermes", Connected: true, Age: time.Second}, msgs[2])
}

type fakePublisher struct {
	mu        sync.Mutex
	published map[string][][]byte
	streamed  map[string][][]byte
	err       error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: map[string][][]byte{}, streamed: map[string][][]byte{}}
}

func (f *fakePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published[channel] = append(f.published[channel], payload)
	return nil
}

func (f *fakePublisher) StreamAppend(_ context.Context, stream string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamed[stream] = append(f.streamed[stream], payload)
	return nil
}

func TestRedisReporter_PublishesSignals(t *testing.T) {
	pub := newFakePublisher()
	r, err := NewRedisReporter(pub, "arbitrage:opportunities", "arbitrage:opportunities:log", &mockLogger{})
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	s := testSignal(t)
	r.Report(s)
	require.NoError(t, r.Stop())

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.published["arbitrage:opportunities"], 1)
	require.Len(t, pub.streamed["arbitrage:opportunities:log"], 1)

	var got struct {
		ID          string `json:"id"`
		Symbol      string `json:"symbol"`
		Opportunity struct {
			Direction       string `json:"direction"`
			Quantity        string `json:"quantity"`
			EstimatedProfit string `json:"estimated_profit"`
		} `json:"opportunity"`
		Band struct {
			Upper string `json:"upper"`
			Lower string `json:"lower"`
		} `json:"band"`
	}
	require.NoError(t, json.Unmarshal(pub.published["arbitrage:opportunities"][0], &got))
	assert.Equal(t, s.ID.String(), got.ID)
	assert.Equal(t, "SOLUSDT", got.Symbol)
	assert.Equal(t, string(domain.DirectionSellOnExchange), got.Opportunity.Direction)
	assert.Equal(t, "0.8574", got.Opportunity.Quantity)
	assert.Equal(t, "0.009465798888", got.Opportunity.EstimatedProfit)
	assert.Equal(t, "71.27225988", got.Band.Upper)
}

func TestRedisReporter_FailuresAreNotFatal(t *testing.T) {
	pub := newFakePublisher()
	pub.err = errors.New("connection refused")
	r, err := NewRedisReporter(pub, "ch", "", &mockLogger{})
	require.NoError(t, err)

	require.NoError(t, r.Start(context.Background()))
	r.Report(testSignal(t))
	r.Report(testSignal(t))
	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop(), "stop is idempotent")

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Empty(t, pub.streamed)
}

func TestRedisReporter_DropsWhenQueueFull(t *testing.T) {
	r, err := NewRedisReporter(newFakePublisher(), "ch", "", &mockLogger{})
	require.NoError(t, err)

	// Not started: nothing drains the queue.
	for i := 0; i < queueSize+5; i++ {
		r.Report(testSignal(t))
	}
	assert.Len(t, r.queue, queueSize)
}
