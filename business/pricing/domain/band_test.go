package domain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
)

func TestCalculateBand_KnownValues(t *testing.T) {
	tests := []struct {
		name  string
		obs   PriceObservation
		lower string
		upper string
	}{
		{
			name:  "btc expo -5",
			obs:   PriceObservation{Mantissa: 4856126854, Exponent: -5, Confidence: 612455},
			lower: "48548.284494",
			upper: "48574.252586",
		},
		{
			name:  "expo -6",
			obs:   PriceObservation{Mantissa: 69852445, Exponent: -6, Confidence: 669724},
			lower: "68.43263012",
			upper: "71.27225988",
		},
		{
			name:  "zero confidence collapses the band",
			obs:   PriceObservation{Mantissa: 12345, Exponent: -2, Confidence: 0},
			lower: "123.45",
			upper: "123.45",
		},
		{
			name:  "positive exponent scales down like its absolute value",
			obs:   PriceObservation{Mantissa: 100, Exponent: 2, Confidence: 10},
			lower: "0.788",
			upper: "1.212",
		},
		{
			name:  "negative mantissa",
			obs:   PriceObservation{Mantissa: -500, Exponent: -1, Confidence: 5},
			lower: "-51.06",
			upper: "-48.94",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			band, err := CalculateBand(tt.obs)
			require.NoError(t, err)
			assert.True(t, band.Lower.Equal(decimal.RequireFromString(tt.lower)), "lower = %s, want %s", band.Lower, tt.lower)
			assert.True(t, band.Upper.Equal(decimal.RequireFromString(tt.upper)), "upper = %s, want %s", band.Upper, tt.upper)
		})
	}
}

func TestCalculateBand_WidthIsConfidenceTimes424(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	factor := decimal.RequireFromString("4.24")

	for i := 0; i < 500; i++ {
		obs := PriceObservation{
			Mantissa:   r.Int63() - r.Int63(),
			Exponent:   int32(r.Intn(25) - 12),
			Confidence: uint64(r.Int63()),
		}

		band, err := CalculateBand(obs)
		require.NoError(t, err)

		scale := int32(obs.Exponent)
		if scale < 0 {
			scale = -scale
		}
		want := decimal.New(int64(obs.Confidence), -scale).Mul(factor)
		require.True(t, band.Width().Equal(want), "obs %+v: width %s, want %s", obs, band.Width(), want)
		require.True(t, band.Upper.GreaterThanOrEqual(band.Lower))
	}
}

func TestCalculateBand_ConfidenceOverflow(t *testing.T) {
	_, err := CalculateBand(PriceObservation{Mantissa: 1, Exponent: -8, Confidence: math.MaxInt64 + 1})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidOraclePrice))

	_, err = CalculateBand(PriceObservation{Mantissa: 1, Exponent: -8, Confidence: math.MaxInt64})
	assert.NoError(t, err)
}

func TestCalculateBand_ExtremeExponent(t *testing.T) {
	_, err := CalculateBand(PriceObservation{Mantissa: 1, Exponent: math.MinInt32, Confidence: 1})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidOraclePrice))

	band, err := CalculateBand(PriceObservation{Mantissa: 1, Exponent: -1000, Confidence: 1})
	require.NoError(t, err)
	assert.True(t, band.Upper.GreaterThan(band.Lower))
}

func TestProbableBand_Contains(t *testing.T) {
	band := ProbableBand{
		Lower: decimal.RequireFromString("68.43263012"),
		Upper: decimal.RequireFromString("71.27225988"),
	}

	assert.True(t, band.Contains(decimal.RequireFromString("69.2222")))
	assert.True(t, band.Contains(band.Upper))
	assert.False(t, band.Contains(decimal.RequireFromString("71.2833")))
	assert.False(t, band.Contains(decimal.RequireFromString("67.8423")))
}
