package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
)

// BookTicker is the exchange's best bid/ask snapshot, kept as the decimal
// strings the exchange sent.
type BookTicker struct {
	Symbol   string
	BidPrice string
	BidQty   string
	AskPrice string
	AskQty   string
	UpdateID int64
}

// Quote is a BookTicker with its fields parsed.
type Quote struct {
	BidPrice decimal.Decimal
	BidQty   decimal.Decimal
	AskPrice decimal.Decimal
	AskQty   decimal.Decimal
}

// Parse converts the ticker strings to decimals. A malformed field means the
// feed broke its contract and yields CodeInvalidTicker.
func (t BookTicker) Parse() (Quote, error) {
	var q Quote
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"bid price", t.BidPrice, &q.BidPrice},
		{"bid qty", t.BidQty, &q.BidQty},
		{"ask price", t.AskPrice, &q.AskPrice},
		{"ask qty", t.AskQty, &q.AskQty},
	}

	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return Quote{}, apperror.New(apperror.CodeInvalidTicker,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("%s %s %q", t.Symbol, f.name, f.raw)))
		}
		*f.dst = d
	}

	return q, nil
}
