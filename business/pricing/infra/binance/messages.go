// Package binance publishes Binance best bid/ask quotes into the pricing
// context's ticker cell.
package binance

import (
	"encoding/json"
	"strings"

	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
)

// WebSocket request/response messages

// WSRequest is a WebSocket control request.
type WSRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
	ID     int64    `json:"id"`
}

// WSResponse is a WebSocket control response.
type WSResponse struct {
	Result json.RawMessage `json:"result"`
	ID     int64           `json:"id"`
}

// StreamEvent is the combined-stream wrapper for all stream messages.
type StreamEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// BookTickerEvent represents best bid/ask update (real-time).
// Stream: <symbol>@bookTicker
type BookTickerEvent struct {
	UpdateID int64  `json:"u"` // Order book updateId
	Symbol   string `json:"s"` // Symbol
	BidPrice string `json:"b"` // Best bid price
	BidQty   string `json:"B"` // Best bid qty
	AskPrice string `json:"a"` // Best ask price
	AskQty   string `json:"A"` // Best ask qty
}

// ToDomain converts the event without parsing the decimal strings.
func (e *BookTickerEvent) ToDomain() domain.BookTicker {
	return domain.BookTicker{
		Symbol:   e.Symbol,
		BidPrice: e.BidPrice,
		BidQty:   e.BidQty,
		AskPrice: e.AskPrice,
		AskQty:   e.AskQty,
		UpdateID: e.UpdateID,
	}
}

// BookTickerResponse is the REST /api/v3/ticker/bookTicker payload.
type BookTickerResponse struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
}

// ToDomain converts the REST payload. REST tickers carry no update id.
func (r *BookTickerResponse) ToDomain() domain.BookTicker {
	return domain.BookTicker{
		Symbol:   r.Symbol,
		BidPrice: r.BidPrice,
		BidQty:   r.BidQty,
		AskPrice: r.AskPrice,
		AskQty:   r.AskQty,
	}
}

// BookTickerStream returns the bookTicker stream name for a symbol.
func BookTickerStream(symbol string) string {
	return strings.ToLower(symbol) + "@bookTicker"
}
