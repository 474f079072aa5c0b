// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/app"
	"github.com/fd1az/oracle-arbitrage-bot/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/oracle-arbitrage-bot/business/pricing/domain"
)

var _ app.Reporter = (*ConsoleReporter)(nil)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer

	mu     sync.Mutex
	status map[string]bool
}

// NewConsoleReporter creates a ConsoleReporter writing to out, or stdout
// when out is nil.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{
		out:    out,
		status: make(map[string]bool),
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Oracle Arbitrage Detector Started")
	fmt.Fprintln(r.out, "=================================")
	return nil
}

// Report prints one block per signal.
func (r *ConsoleReporter) Report(s *domain.Signal) {
	opp := s.Opportunity

	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintln(r.out, "ARBITRAGE OPPORTUNITY DETECTED")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Signal:         %s\n", s.ID)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", s.DetectedAt.Format(time.RFC3339Nano))
	fmt.Fprintf(r.out, "Symbol:         %s\n", s.Symbol)
	fmt.Fprintf(r.out, "Direction:      %s\n", opp.Direction.String())
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PRICES")
	fmt.Fprintf(r.out, "  Exchange:       %s\n", opp.ExchangePrice.String())
	fmt.Fprintf(r.out, "  Oracle edge:    %s\n", opp.OraclePrice.String())
	fmt.Fprintf(r.out, "  Band:           [%s, %s]\n", s.Band.Lower.String(), s.Band.Upper.String())
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintf(r.out, "  Quantity:       %s\n", opp.Quantity.String())
	fmt.Fprintf(r.out, "  Est. profit:    %s\n", opp.EstimatedProfit.String())
	fmt.Fprintln(r.out, "================================================================================")
}

// UpdatePrices is a no-op; the console only prints opportunities.
func (r *ConsoleReporter) UpdatePrices(prices *pricingDomain.PriceSnapshot) {}

// UpdateConnectionStatus prints a line when a feed's connection changes.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, age time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, seen := r.status[name]; seen && prev == connected {
		return
	}
	r.status[name] = connected

	status := "disconnected"
	if connected {
		status = fmt.Sprintf("connected (data age %s)", age.Round(time.Millisecond))
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Oracle Arbitrage Detector Stopped")
	return nil
}
