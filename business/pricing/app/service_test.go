package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
)

func TestPricingService_SnapshotEmpty(t *testing.T) {
	s := NewPricingService(time.Second, time.Second)

	snap := s.Snapshot()
	assert.Nil(t, snap.Observation)
	assert.Nil(t, snap.Ticker)
	assert.Nil(t, snap.Band)

	healthy, _ := s.OracleCheck()(context.Background())
	assert.False(t, healthy)
	healthy, _ = s.TickerCheck()(context.Background())
	assert.False(t, healthy)
}

func TestPricingService_Snapshot(t *testing.T) {
	s := NewPricingService(time.Minute, time.Minute)
	s.Oracle().Store(domain.PriceObservation{Mantissa: 69852445, Exponent: -6, Confidence: 669724})
	s.Ticker().Store(domain.BookTicker{BidPrice: "69.2222", BidQty: "1", AskPrice: "69.1111", AskQty: "2"})

	snap := s.Snapshot()
	require.NotNil(t, snap.Band)
	require.NotNil(t, snap.Quote)
	assert.True(t, snap.Band.Upper.Equal(decimal.RequireFromString("71.27225988")))
	assert.True(t, snap.Quote.AskQty.Equal(decimal.NewFromInt(2)))

	healthy, _ := s.OracleCheck()(context.Background())
	assert.True(t, healthy)
}

func TestPricingService_SnapshotMalformedTickerHasNoQuote(t *testing.T) {
	s := NewPricingService(time.Minute, time.Minute)
	s.Ticker().Store(domain.BookTicker{BidPrice: "x"})

	snap := s.Snapshot()
	require.NotNil(t, snap.Ticker)
	assert.Nil(t, snap.Quote)
}
