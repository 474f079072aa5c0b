// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// BandView is the oracle band against the exchange book, as seen on one tick.
type BandView struct {
	OraclePrice decimal.Decimal
	Confidence  decimal.Decimal
	Upper       decimal.Decimal
	Lower       decimal.Decimal
	HasBand     bool

	Bid     decimal.Decimal
	BidQty  decimal.Decimal
	Ask     decimal.Decimal
	AskQty  decimal.Decimal
	HasBook bool

	OracleAge time.Duration
	TickerAge time.Duration
}

// PricesComponent renders the band and the book side by side.
type PricesComponent struct {
	view   BandView
	symbol string
	source string
}

// NewPricesComponent creates a new prices component.
func NewPricesComponent(symbol, source string) *PricesComponent {
	return &PricesComponent{symbol: symbol, source: source}
}

// Update replaces the displayed data.
func (p *PricesComponent) Update(v BandView) {
	p.view = v
}

// Position describes where the book sits relative to the band.
func (v BandView) Position() string {
	switch {
	case !v.HasBand || !v.HasBook:
		return "WAITING"
	case v.Bid.GreaterThan(v.Upper):
		return "BID ABOVE BAND"
	case v.Ask.LessThan(v.Lower):
		return "ASK BELOW BAND"
	default:
		return "IN BAND"
	}
}

// View renders the prices component.
func (p *PricesComponent) View() string {
	v := p.view
	if !v.HasBand && !v.HasBook {
		return "Waiting for price data..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("PRICES (%s)", p.symbol)))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  %-16s  %s\n", "Oracle ("+p.source+")", dimStyle.Render(age(v.OracleAge, v.HasBand))))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 44)) + "\n")
	if v.HasBand {
		sb.WriteString(fmt.Sprintf("  %-12s %s\n", "Price", v.OraclePrice.String()))
		sb.WriteString(fmt.Sprintf("  %-12s ±%s\n", "Confidence", v.Confidence.String()))
		sb.WriteString(fmt.Sprintf("  %-12s %s\n", "Upper", warnStyle.Render(v.Upper.String())))
		sb.WriteString(fmt.Sprintf("  %-12s %s\n", "Lower", warnStyle.Render(v.Lower.String())))
	} else {
		sb.WriteString(dimStyle.Render("  no observation yet") + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  %-16s  %s\n", "Binance book", dimStyle.Render(age(v.TickerAge, v.HasBook))))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 44)) + "\n")
	if v.HasBook {
		bidStyle, askStyle := dimStyle, dimStyle
		if v.HasBand && v.Bid.GreaterThan(v.Upper) {
			bidStyle = positiveStyle
		}
		if v.HasBand && v.Ask.LessThan(v.Lower) {
			askStyle = positiveStyle
		}
		sb.WriteString(fmt.Sprintf("  %-12s %s  x %s\n", "Bid", bidStyle.Render(v.Bid.String()), v.BidQty.String()))
		sb.WriteString(fmt.Sprintf("  %-12s %s  x %s\n", "Ask", askStyle.Render(v.Ask.String()), v.AskQty.String()))
	} else {
		sb.WriteString(dimStyle.Render("  no ticker yet") + "\n")
	}

	sb.WriteString("\n")
	pos := v.Position()
	posStyle := dimStyle
	switch pos {
	case "IN BAND":
		posStyle = negativeStyle
	case "BID ABOVE BAND", "ASK BELOW BAND":
		posStyle = positiveStyle
	}
	sb.WriteString("  " + posStyle.Render(pos) + "\n")

	return sb.String()
}

func age(d time.Duration, ok bool) string {
	if !ok {
		return "-"
	}
	return d.Round(time.Millisecond).String() + " old"
}
