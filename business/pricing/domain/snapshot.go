package domain

import "time"

// PriceSnapshot is what the detector saw on one tick, for display. Nil
// fields mean the feed has not produced data yet.
type PriceSnapshot struct {
	Observation *PriceObservation
	Ticker      *BookTicker
	Band        *ProbableBand
	Quote       *Quote
	OracleAge   time.Duration
	TickerAge   time.Duration
	Timestamp   time.Time
}
