// Package domain contains the core domain types for the arbitrage context.
package domain

// Direction represents which side of the exchange book is out of band.
type Direction string

const (
	// DirectionSellOnExchange means the exchange bid is above the band: sell
	// on the exchange, take the other side at the oracle's upper bound.
	DirectionSellOnExchange Direction = "SELL_ON_EXCHANGE_BUY_ORACLE_SIDE"

	// DirectionBuyOnExchange means the exchange ask is below the band: buy on
	// the exchange, take the other side at the oracle's lower bound.
	DirectionBuyOnExchange Direction = "BUY_ON_EXCHANGE_SELL_ORACLE_SIDE"
)

// String returns a human-readable description of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionSellOnExchange:
		return "Sell on exchange, buy at oracle upper bound"
	case DirectionBuyOnExchange:
		return "Buy on exchange, sell at oracle lower bound"
	default:
		return "Unknown"
	}
}

// Short returns a compact label for tables and logs.
func (d Direction) Short() string {
	switch d {
	case DirectionSellOnExchange:
		return "SELL"
	case DirectionBuyOnExchange:
		return "BUY"
	default:
		return "?"
	}
}
