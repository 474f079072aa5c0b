package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
)

// Opportunity is an exchange quote sitting outside the oracle band. Two
// opportunities are the same when every field has the same decimal value.
type Opportunity struct {
	Direction       Direction       `json:"direction"`
	Quantity        decimal.Decimal `json:"quantity"`
	EstimatedProfit decimal.Decimal `json:"estimated_profit"`
	ExchangePrice   decimal.Decimal `json:"exchange_price"`
	OraclePrice     decimal.Decimal `json:"oracle_price"`
}

// NewOpportunity validates and builds an Opportunity. Quantity must be
// positive and profit non-negative.
func NewOpportunity(direction Direction, quantity, profit, exchangePrice, oraclePrice decimal.Decimal) (Opportunity, error) {
	if direction != DirectionSellOnExchange && direction != DirectionBuyOnExchange {
		return Opportunity{}, apperror.New(apperror.CodeInvalidOpportunity,
			apperror.WithContext(fmt.Sprintf("unknown direction %q", direction)))
	}
	if !quantity.IsPositive() {
		return Opportunity{}, apperror.New(apperror.CodeInvalidOpportunity,
			apperror.WithContext("quantity must be positive, got "+quantity.String()))
	}
	if profit.IsNegative() {
		return Opportunity{}, apperror.New(apperror.CodeInvalidOpportunity,
			apperror.WithContext("profit must not be negative, got "+profit.String()))
	}

	return Opportunity{
		Direction:       direction,
		Quantity:        quantity,
		EstimatedProfit: profit,
		ExchangePrice:   exchangePrice,
		OraclePrice:     oraclePrice,
	}, nil
}

// Equal compares by value, so 1.50 equals 1.5.
func (o Opportunity) Equal(other Opportunity) bool {
	return o.Direction == other.Direction &&
		o.Quantity.Equal(other.Quantity) &&
		o.EstimatedProfit.Equal(other.EstimatedProfit) &&
		o.ExchangePrice.Equal(other.ExchangePrice) &&
		o.OraclePrice.Equal(other.OraclePrice)
}

// Notional returns ExchangePrice * Quantity.
func (o Opportunity) Notional() decimal.Decimal {
	return o.ExchangePrice.Mul(o.Quantity)
}

// Gap returns the per-unit distance between the exchange price and the band edge.
func (o Opportunity) Gap() decimal.Decimal {
	return o.ExchangePrice.Sub(o.OraclePrice).Abs()
}
