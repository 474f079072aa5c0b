package domain

import (
	"time"

	"github.com/google/uuid"

	pricingDomain "github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
)

// Signal wraps a found opportunity with identity and context for reporters.
// ID and DetectedAt play no part in opportunity equality.
type Signal struct {
	ID          uuid.UUID                  `json:"id"`
	DetectedAt  time.Time                  `json:"detected_at"`
	Symbol      string                     `json:"symbol"`
	FeedID      string                     `json:"feed_id"`
	Opportunity Opportunity                `json:"opportunity"`
	Band        pricingDomain.ProbableBand `json:"band"`
}

// NewSignal stamps opp with a fresh ID and the current time.
func NewSignal(symbol, feedID string, opp Opportunity, band pricingDomain.ProbableBand) *Signal {
	return &Signal{
		ID:          uuid.New(),
		DetectedAt:  time.Now().UTC(),
		Symbol:      symbol,
		FeedID:      feedID,
		Opportunity: opp,
		Band:        band,
	}
}
