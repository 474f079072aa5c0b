package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
)

// LaplaceConfidence95 scales a Pyth confidence interval to two-sided 95%
// coverage, treating the interval as a Laplace scale parameter.
var LaplaceConfidence95 = decimal.New(212, -2)

// ProbableBand is the price range the oracle considers plausible.
type ProbableBand struct {
	Upper decimal.Decimal `json:"upper"`
	Lower decimal.Decimal `json:"lower"`
}

// Width returns Upper - Lower.
func (b ProbableBand) Width() decimal.Decimal {
	return b.Upper.Sub(b.Lower)
}

// Contains reports whether p lies inside the band, edges included.
func (b ProbableBand) Contains(p decimal.Decimal) bool {
	return p.GreaterThanOrEqual(b.Lower) && p.LessThanOrEqual(b.Upper)
}

// CalculateBand derives the band price ± conf*2.12 with exact decimals.
// Price and confidence are both scaled by 10^-|Exponent|.
func CalculateBand(obs PriceObservation) (ProbableBand, error) {
	if obs.Confidence > math.MaxInt64 {
		return ProbableBand{}, apperror.New(apperror.CodeInvalidOraclePrice,
			apperror.WithContext(fmt.Sprintf("confidence %d overflows int64", obs.Confidence)))
	}

	scale := int64(obs.Exponent)
	if scale < 0 {
		scale = -scale
	}
	// The 2.12 factor adds two more decimal places.
	if scale > math.MaxInt32-2 {
		return ProbableBand{}, apperror.New(apperror.CodeInvalidOraclePrice,
			apperror.WithContext(fmt.Sprintf("exponent %d overflows decimal scale", obs.Exponent)))
	}
	exp := int32(-scale)

	price := decimal.New(obs.Mantissa, exp)
	conf := decimal.New(int64(obs.Confidence), exp).Mul(LaplaceConfidence95)

	return ProbableBand{
		Upper: price.Add(conf),
		Lower: price.Sub(conf),
	}, nil
}
