// Package pyth publishes Pyth oracle prices into the pricing context's
// observation cell, from Hermes (WebSocket with REST fallback) or directly
// from the on-chain contract.
package pyth

import (
	"strings"

	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
)

// Hermes WebSocket message types
const (
	MessageTypeSubscribe   = "subscribe"
	MessageTypeResponse    = "response"
	MessageTypePriceUpdate = "price_update"
)

// SubscribeRequest subscribes to price updates for the given feed ids.
type SubscribeRequest struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

// StreamMessage is any frame Hermes sends over the WebSocket.
type StreamMessage struct {
	Type      string     `json:"type"`
	Status    string     `json:"status,omitempty"`
	Error     string     `json:"error,omitempty"`
	PriceFeed *PriceFeed `json:"price_feed,omitempty"`
}

// PriceFeed is a feed id with its latest price.
type PriceFeed struct {
	ID    string `json:"id"`
	Price Price  `json:"price"`
}

// Price is the Hermes price encoding: price and conf are integer strings
// scaled by 10^expo.
type Price struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int32  `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

// ToDomain parses the feed into an observation.
func (f *PriceFeed) ToDomain() (domain.PriceObservation, error) {
	return domain.ParseObservation(FormatFeedID(f.ID), f.Price.Price, f.Price.Conf, f.Price.Expo, f.Price.PublishTime)
}

// LatestPriceResponse is the /v2/updates/price/latest payload with parsed=true.
type LatestPriceResponse struct {
	Parsed []PriceFeed `json:"parsed"`
}

// NormalizeFeedID strips the 0x prefix and lowercases, the form Hermes
// returns ids in.
func NormalizeFeedID(id string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(id)), "0x")
}

// FormatFeedID returns the 0x-prefixed lowercase form.
func FormatFeedID(id string) string {
	return "0x" + NormalizeFeedID(id)
}
