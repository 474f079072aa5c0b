package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
)

func TestBookTicker_Parse(t *testing.T) {
	tk := BookTicker{Symbol: "SOLUSDT", BidPrice: "71.2833", BidQty: "0.8574", AskPrice: "72.0012", AskQty: "0.9245"}

	q, err := tk.Parse()
	require.NoError(t, err)
	assert.True(t, q.BidPrice.Equal(decimal.RequireFromString("71.2833")))
	assert.True(t, q.BidQty.Equal(decimal.RequireFromString("0.8574")))
	assert.True(t, q.AskPrice.Equal(decimal.RequireFromString("72.0012")))
	assert.True(t, q.AskQty.Equal(decimal.RequireFromString("0.9245")))
}

func TestBookTicker_ParseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		tk    BookTicker
		field string
	}{
		{"bid price", BookTicker{BidPrice: "abc", BidQty: "1", AskPrice: "1", AskQty: "1"}, "bid price"},
		{"bid qty", BookTicker{BidPrice: "1", BidQty: "", AskPrice: "1", AskQty: "1"}, "bid qty"},
		{"ask price", BookTicker{BidPrice: "1", BidQty: "1", AskPrice: "1.2.3", AskQty: "1"}, "ask price"},
		{"ask qty", BookTicker{BidPrice: "1", BidQty: "1", AskPrice: "1", AskQty: "NaN"}, "ask qty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.tk.Parse()
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTicker))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParseObservation(t *testing.T) {
	obs, err := ParseObservation("0xfeed", "4856126854", "612455", -5, 1700000000)
	require.NoError(t, err)
	assert.Equal(t, int64(4856126854), obs.Mantissa)
	assert.Equal(t, int32(-5), obs.Exponent)
	assert.Equal(t, uint64(612455), obs.Confidence)
	assert.Equal(t, int64(1700000000), obs.PublishTime.Unix())

	_, err = ParseObservation("0xfeed", "9223372036854775808", "1", -8, 0)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidOraclePrice))

	_, err = ParseObservation("0xfeed", "1", "-1", -8, 0)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidOraclePrice))
}
