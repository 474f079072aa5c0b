package app

import (
	"time"

	"github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/internal/health"
	"github.com/fd1az/oracle-arbitrage-bot/internal/latest"
)

// PricingService owns the two latest-value cells and the feeds that fill them.
type PricingService struct {
	oracle *latest.Cell[domain.PriceObservation]
	ticker *latest.Cell[domain.BookTicker]

	oracleStale time.Duration
	tickerStale time.Duration

	feeds []Feed
}

// NewPricingService creates the service with empty cells.
func NewPricingService(oracleStale, tickerStale time.Duration) *PricingService {
	return &PricingService{
		oracle:      latest.New[domain.PriceObservation](),
		ticker:      latest.New[domain.BookTicker](),
		oracleStale: oracleStale,
		tickerStale: tickerStale,
	}
}

// Oracle returns the oracle observation cell.
func (s *PricingService) Oracle() *latest.Cell[domain.PriceObservation] {
	return s.oracle
}

// Ticker returns the exchange ticker cell.
func (s *PricingService) Ticker() *latest.Cell[domain.BookTicker] {
	return s.ticker
}

// AddFeed registers a feed to be run by the module.
func (s *PricingService) AddFeed(f Feed) {
	s.feeds = append(s.feeds, f)
}

// Feeds returns the registered feeds.
func (s *PricingService) Feeds() []Feed {
	return s.feeds
}

// OracleCheck is healthy while the oracle cell is fresh.
func (s *PricingService) OracleCheck() health.CheckFunc {
	return health.FreshnessCheck(s.oracle.Age, s.oracleStale)
}

// TickerCheck is healthy while the ticker cell is fresh.
func (s *PricingService) TickerCheck() health.CheckFunc {
	return health.FreshnessCheck(s.ticker.Age, s.tickerStale)
}

// Snapshot copies both cells out for display. The band is left nil when the
// oracle observation cannot produce one.
func (s *PricingService) Snapshot() *domain.PriceSnapshot {
	snap := &domain.PriceSnapshot{Timestamp: time.Now()}

	if obs, ok := s.oracle.Load(); ok {
		snap.Observation = &obs
		snap.OracleAge, _ = s.oracle.Age()
		if band, err := domain.CalculateBand(obs); err == nil {
			snap.Band = &band
		}
	}

	if tk, ok := s.ticker.Load(); ok {
		snap.Ticker = &tk
		snap.TickerAge, _ = s.ticker.Age()
		if q, err := tk.Parse(); err == nil {
			snap.Quote = &q
		}
	}

	return snap
}
