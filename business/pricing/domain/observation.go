// Package domain contains the core domain types for the pricing context.
package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
)

// PriceObservation is one oracle reading: the price is Mantissa*10^Exponent
// with an uncertainty of Confidence*10^Exponent. Replaced wholesale on each
// update.
type PriceObservation struct {
	Mantissa   int64
	Exponent   int32
	Confidence uint64

	FeedID      string
	PublishTime time.Time
}

// ParseObservation builds an observation from the decimal-string encoding
// used by Pyth Hermes.
func ParseObservation(feedID, price, conf string, expo int32, publishTime int64) (PriceObservation, error) {
	mantissa, err := strconv.ParseInt(price, 10, 64)
	if err != nil {
		return PriceObservation{}, apperror.New(apperror.CodeInvalidOraclePrice,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("feed %s: price %q", feedID, price)))
	}

	confidence, err := strconv.ParseUint(conf, 10, 64)
	if err != nil {
		return PriceObservation{}, apperror.New(apperror.CodeInvalidOraclePrice,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("feed %s: conf %q", feedID, conf)))
	}

	return PriceObservation{
		Mantissa:    mantissa,
		Exponent:    expo,
		Confidence:  confidence,
		FeedID:      feedID,
		PublishTime: time.Unix(publishTime, 0).UTC(),
	}, nil
}
