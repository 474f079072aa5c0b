package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/internal/apperror"
)

// PriceReader yields the latest oracle observation, false when none yet.
type PriceReader interface {
	Load() (pricingDomain.PriceObservation, bool)
}

// TickerReader yields the latest exchange ticker, false when none yet.
type TickerReader interface {
	Load() (pricingDomain.BookTicker, bool)
}

// found is what dedup compares: the opportunity plus the band edge and
// exchange price it was derived from. band is kept for reporting only.
type found struct {
	opp           domain.Opportunity
	edge          decimal.Decimal
	exchangePrice decimal.Decimal
	band          pricingDomain.ProbableBand
}

func (f found) equal(other found) bool {
	return f.opp.Equal(other.opp) &&
		f.edge.Equal(other.edge) &&
		f.exchangePrice.Equal(other.exchangePrice)
}

// Finder compares the exchange book against the oracle band and reports
// each distinct opportunity once. FindOpportunity must not be called
// concurrently; LastFound is safe from any goroutine.
type Finder struct {
	mu        sync.Mutex
	lastFound *found

	duplicates atomic.Uint64
}

// NewFinder creates a Finder with nothing remembered.
func NewFinder() *Finder {
	return &Finder{}
}

// FindOpportunity returns a new opportunity, nil when there is none or it
// repeats the last one, or an error when the inputs are unusable.
func (f *Finder) FindOpportunity(ctx context.Context, oracle PriceReader, exchange TickerReader) (opp *domain.Opportunity, err error) {
	defer func() {
		if r := recover(); r != nil {
			opp = nil
			err = apperror.New(apperror.CodeInternalError,
				apperror.WithContext(fmt.Sprintf("opportunity search panicked: %v", r)))
		}
	}()

	obs, ok := oracle.Load()
	if !ok {
		return nil, nil
	}
	tk, ok := exchange.Load()
	if !ok {
		return nil, nil
	}

	band, err := pricingDomain.CalculateBand(obs)
	if err != nil {
		return nil, err
	}
	quote, err := tk.Parse()
	if err != nil {
		return nil, err
	}

	candidate, err := evaluate(band, quote)
	if err != nil || candidate == nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lastFound != nil && f.lastFound.equal(*candidate) {
		f.duplicates.Add(1)
		return nil, nil
	}
	f.lastFound = candidate

	result := candidate.opp
	return &result, nil
}

// evaluate checks the sell side first; a match there skips the buy side.
// A side showing no size has nothing to trade and never matches.
func evaluate(band pricingDomain.ProbableBand, q pricingDomain.Quote) (*found, error) {
	if q.BidPrice.GreaterThan(band.Upper) && !q.BidQty.IsZero() {
		opp, err := domain.NewOpportunity(
			domain.DirectionSellOnExchange,
			q.BidQty,
			q.BidPrice.Sub(band.Upper).Mul(q.BidQty),
			q.BidPrice,
			band.Upper,
		)
		if err != nil {
			return nil, err
		}
		return &found{opp: opp, edge: band.Upper, exchangePrice: q.BidPrice, band: band}, nil
	}

	if q.AskPrice.LessThan(band.Lower) && !q.AskQty.IsZero() {
		opp, err := domain.NewOpportunity(
			domain.DirectionBuyOnExchange,
			q.AskQty,
			band.Lower.Sub(q.AskPrice).Mul(q.AskQty),
			q.AskPrice,
			band.Lower,
		)
		if err != nil {
			return nil, err
		}
		return &found{opp: opp, edge: band.Lower, exchangePrice: q.AskPrice, band: band}, nil
	}

	return nil, nil
}

// LastFound returns a copy of the remembered opportunity.
func (f *Finder) LastFound() (domain.Opportunity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastFound == nil {
		return domain.Opportunity{}, false
	}
	return f.lastFound.opp, true
}

// LastBand returns the oracle band the remembered opportunity was measured
// against.
func (f *Finder) LastBand() (pricingDomain.ProbableBand, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastFound == nil {
		return pricingDomain.ProbableBand{}, false
	}
	return f.lastFound.band, true
}

// Duplicates returns how many repeats have been suppressed.
func (f *Finder) Duplicates() uint64 {
	return f.duplicates.Load()
}
