package app

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
	"github.com/fd1az/oracle-arbitrage-bot/internal/latest"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// solObservation gives the band [68.43263012, 71.27225988].
func solObservation() pricingDomain.PriceObservation {
	return pricingDomain.PriceObservation{Mantissa: 69852445, Exponent: -6, Confidence: 669724}
}

func ticker(bid, bidQty, ask, askQty string) pricingDomain.BookTicker {
	return pricingDomain.BookTicker{Symbol: "SOLUSDT", BidPrice: bid, BidQty: bidQty, AskPrice: ask, AskQty: askQty}
}

func cells(obs *pricingDomain.PriceObservation, tk *pricingDomain.BookTicker) (*latest.Cell[pricingDomain.PriceObservation], *latest.Cell[pricingDomain.BookTicker]) {
	oracle := latest.New[pricingDomain.PriceObservation]()
	exchange := latest.New[pricingDomain.BookTicker]()
	if obs != nil {
		oracle.Store(*obs)
	}
	if tk != nil {
		exchange.Store(*tk)
	}
	return oracle, exchange
}

func TestFindOpportunity(t *testing.T) {
	tests := []struct {
		name          string
		ticker        pricingDomain.BookTicker
		wantNil       bool
		wantDirection domain.Direction
		wantQty       string
		wantProfit    string
		wantExchange  string
		wantOracle    string
	}{
		{
			name:          "sell_bid_above_upper",
			ticker:        ticker("71.2833", "0.8574", "72.0012", "0.9245"),
			wantDirection: domain.DirectionSellOnExchange,
			wantQty:       "0.8574",
			wantProfit:    "0.009465798888",
			wantExchange:  "71.2833",
			wantOracle:    "71.27225988",
		},
		{
			name:          "buy_ask_below_lower",
			ticker:        ticker("67.5421", "1.1258", "67.8423", "2.5569"),
			wantDirection: domain.DirectionBuyOnExchange,
			wantQty:       "2.5569",
			wantProfit:    "1.509415083828",
			wantExchange:  "67.8423",
			wantOracle:    "68.43263012",
		},
		{
			name:    "inside_band",
			ticker:  ticker("69.2222", "1", "69.1111", "1"),
			wantNil: true,
		},
		{
			name:    "bid_on_upper_edge",
			ticker:  ticker("71.27225988", "1", "71.3", "1"),
			wantNil: true,
		},
		{
			name:    "ask_on_lower_edge",
			ticker:  ticker("68.3", "1", "68.43263012", "1"),
			wantNil: true,
		},
		{
			// Crossed book: both sides out of band, sell wins.
			name:          "sell_checked_first",
			ticker:        ticker("72", "3", "68", "5"),
			wantDirection: domain.DirectionSellOnExchange,
			wantQty:       "3",
			wantProfit:    "2.18322036",
			wantExchange:  "72",
			wantOracle:    "71.27225988",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := solObservation()
			oracle, exchange := cells(&obs, &tt.ticker)

			opp, err := NewFinder().FindOpportunity(context.Background(), oracle, exchange)
			require.NoError(t, err)

			if tt.wantNil {
				assert.Nil(t, opp)
				return
			}
			require.NotNil(t, opp)
			assert.Equal(t, tt.wantDirection, opp.Direction)
			assert.True(t, opp.Quantity.Equal(dec(tt.wantQty)), "quantity = %s", opp.Quantity)
			assert.True(t, opp.EstimatedProfit.Equal(dec(tt.wantProfit)), "profit = %s", opp.EstimatedProfit)
			assert.True(t, opp.ExchangePrice.Equal(dec(tt.wantExchange)), "exchange price = %s", opp.ExchangePrice)
			assert.True(t, opp.OraclePrice.Equal(dec(tt.wantOracle)), "oracle price = %s", opp.OraclePrice)
		})
	}
}

func TestFindOpportunity_EmptyCells(t *testing.T) {
	obs := solObservation()
	tk := ticker("71.2833", "0.8574", "72.0012", "0.9245")

	tests := []struct {
		name string
		obs  *pricingDomain.PriceObservation
		tk   *pricingDomain.BookTicker
	}{
		{name: "both_empty"},
		{name: "no_oracle", tk: &tk},
		{name: "no_ticker", obs: &obs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle, exchange := cells(tt.obs, tt.tk)
			f := NewFinder()

			opp, err := f.FindOpportunity(context.Background(), oracle, exchange)
			require.NoError(t, err)
			assert.Nil(t, opp)

			_, ok := f.LastFound()
			assert.False(t, ok, "empty cells must not arm the finder")
		})
	}
}

func TestFindOpportunity_Dedup(t *testing.T) {
	obs := solObservation()
	sell := ticker("71.2833", "0.8574", "72.0012", "0.9245")
	oracle, exchange := cells(&obs, &sell)
	f := NewFinder()
	ctx := context.Background()

	first, err := f.FindOpportunity(ctx, oracle, exchange)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := f.FindOpportunity(ctx, oracle, exchange)
	require.NoError(t, err)
	assert.Nil(t, second, "identical inputs must not be reported twice")
	assert.Equal(t, uint64(1), f.Duplicates())

	// Same values in a new ticker (different update id) are still a duplicate.
	again := sell
	again.UpdateID = 99
	again.BidPrice = "71.28330"
	exchange.Store(again)
	third, err := f.FindOpportunity(ctx, oracle, exchange)
	require.NoError(t, err)
	assert.Nil(t, third)

	// Falling back into the band keeps lastFound.
	exchange.Store(ticker("69.2222", "1", "69.1111", "1"))
	none, err := f.FindOpportunity(ctx, oracle, exchange)
	require.NoError(t, err)
	assert.Nil(t, none)

	last, ok := f.LastFound()
	require.True(t, ok)
	assert.True(t, last.Equal(*first))

	// The same opportunity returning after a quiet period is still suppressed.
	exchange.Store(sell)
	back, err := f.FindOpportunity(ctx, oracle, exchange)
	require.NoError(t, err)
	assert.Nil(t, back)

	// A different quantity is a new opportunity.
	bigger := sell
	bigger.BidQty = "1.0000"
	exchange.Store(bigger)
	next, err := f.FindOpportunity(ctx, oracle, exchange)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.Quantity.Equal(dec("1")))
}

func TestFindOpportunity_AlternatingSides(t *testing.T) {
	obs := solObservation()
	sell := ticker("71.2833", "0.8574", "72.0012", "0.9245")
	buy := ticker("67.5421", "1.1258", "67.8423", "2.5569")
	oracle, exchange := cells(&obs, &sell)
	f := NewFinder()
	ctx := context.Background()

	for i, tk := range []pricingDomain.BookTicker{sell, buy, sell} {
		exchange.Store(tk)
		opp, err := f.FindOpportunity(ctx, oracle, exchange)
		require.NoError(t, err)
		assert.NotNil(t, opp, "step %d should report", i)
	}
}

func TestFindOpportunity_FatalErrors(t *testing.T) {
	tests := []struct {
		name     string
		obs      pricingDomain.PriceObservation
		tk       pricingDomain.BookTicker
		wantCode apperror.Code
	}{
		{
			name:     "malformed_bid",
			obs:      solObservation(),
			tk:       ticker("abc", "1", "72", "1"),
			wantCode: apperror.CodeInvalidTicker,
		},
		{
			name:     "empty_ask_qty",
			obs:      solObservation(),
			tk:       ticker("70", "1", "70.1", ""),
			wantCode: apperror.CodeInvalidTicker,
		},
		{
			name:     "confidence_overflow",
			obs:      pricingDomain.PriceObservation{Mantissa: 1, Exponent: -2, Confidence: 1 << 63},
			tk:       ticker("70", "1", "70.1", "1"),
			wantCode: apperror.CodeInvalidOraclePrice,
		},
		{
			name:     "negative_quantity",
			obs:      solObservation(),
			tk:       ticker("80", "-1", "81", "1"),
			wantCode: apperror.CodeInvalidOpportunity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle, exchange := cells(&tt.obs, &tt.tk)
			f := NewFinder()

			opp, err := f.FindOpportunity(context.Background(), oracle, exchange)
			assert.Nil(t, opp)
			assert.True(t, apperror.HasCode(err, tt.wantCode), "err = %v, want %s", err, tt.wantCode)

			_, ok := f.LastFound()
			assert.False(t, ok)
		})
	}
}

func TestFindOpportunity_EmptySideIsNotAnOpportunity(t *testing.T) {
	tests := []struct {
		name string
		tk   pricingDomain.BookTicker
	}{
		{name: "empty_bid_above_band", tk: ticker("80", "0.00000000", "81", "1")},
		{name: "empty_ask_below_band", tk: ticker("60", "1", "61", "0.00000000")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := solObservation()
			oracle, exchange := cells(&obs, &tt.tk)
			f := NewFinder()

			opp, err := f.FindOpportunity(context.Background(), oracle, exchange)
			require.NoError(t, err)
			assert.Nil(t, opp)

			_, ok := f.LastFound()
			assert.False(t, ok)
		})
	}
}

func TestFinder_LastBandMatchesOpportunity(t *testing.T) {
	obs := solObservation()
	sell := ticker("71.2833", "0.8574", "72.0012", "0.9245")
	oracle, exchange := cells(&obs, &sell)
	f := NewFinder()

	_, ok := f.LastBand()
	assert.False(t, ok)

	opp, err := f.FindOpportunity(context.Background(), oracle, exchange)
	require.NoError(t, err)
	require.NotNil(t, opp)

	// A later oracle update must not leak into the remembered band.
	moved := obs
	moved.Mantissa += 100000000
	oracle.Store(moved)

	band, ok := f.LastBand()
	require.True(t, ok)
	assert.True(t, band.Upper.Equal(opp.OraclePrice), "upper = %s, oracle price = %s", band.Upper, opp.OraclePrice)

	want, err := pricingDomain.CalculateBand(obs)
	require.NoError(t, err)
	assert.True(t, band.Lower.Equal(want.Lower))
}

type panickingReader struct{}

func (panickingReader) Load() (pricingDomain.PriceObservation, bool) {
	panic("boom")
}

func TestFindOpportunity_RecoversPanics(t *testing.T) {
	_, exchange := cells(nil, nil)
	opp, err := NewFinder().FindOpportunity(context.Background(), panickingReader{}, exchange)
	assert.Nil(t, opp)
	assert.True(t, apperror.HasCode(err, apperror.CodeInternalError), "err = %v", err)
}

func TestFinder_LastFoundConcurrentReads(t *testing.T) {
	obs := solObservation()
	sell := ticker("71.2833", "0.8574", "72.0012", "0.9245")
	buy := ticker("67.5421", "1.1258", "67.8423", "2.5569")
	oracle, exchange := cells(&obs, &sell)
	f := NewFinder()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			f.LastFound()
		}
	}()

	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			exchange.Store(sell)
		} else {
			exchange.Store(buy)
		}
		_, err := f.FindOpportunity(context.Background(), oracle, exchange)
		require.NoError(t, err)
	}
	wg.Wait()
}
