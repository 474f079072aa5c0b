package infra

import (
	"context"
	"time"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
	"github.com/fd1az/oracle-arbitrage-bot/pkg/ui"
)

var _ app.Reporter = (*TUIReporter)(nil)

// TUIReporter forwards detector output to the Bubble Tea program as messages.
type TUIReporter struct {
	send func(msg any)
}

// NewTUIReporter creates a TUIReporter that sends to the running program.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{send: func(msg any) { ui.Send(msg) }}
}

// Start is a no-op; main owns the program lifecycle.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// Report sends an opportunity to the TUI.
func (r *TUIReporter) Report(s *domain.Signal) {
	r.send(ui.OpportunityMsg{Signal: s})
}

// UpdatePrices sends the latest snapshot to the TUI.
func (r *TUIReporter) UpdatePrices(prices *pricingDomain.PriceSnapshot) {
	r.send(ui.PriceUpdateMsg{Snapshot: prices})
}

// UpdateConnectionStatus sends a feed's status to the TUI.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, age time.Duration) {
	r.send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Age: age})
}

// Stop is a no-op; main owns the program lifecycle.
func (r *TUIReporter) Stop() error {
	return nil
}
